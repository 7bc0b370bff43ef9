// Package scheduler runs the deferred work: asking how planned actions went,
// goal check-ins, and the nightly memory consolidation sweep.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/talkmira/mira/internal/bus"
	"github.com/talkmira/mira/internal/goal"
	"github.com/talkmira/mira/internal/memory"
)

const dailySummaryDepth = 30

type Service struct {
	engine     *memory.Engine
	summarizer *memory.Summarizer
	goals      *goal.Tracker
	bus        *bus.MessageBus
	dailySweep string // HH:MM

	cron *rcron.Cron
	now  func() time.Time
}

func NewService(engine *memory.Engine, summarizer *memory.Summarizer, goals *goal.Tracker, b *bus.MessageBus, dailySweep string) *Service {
	return NewServiceAt(engine, summarizer, goals, b, dailySweep, time.Now)
}

// NewServiceAt pins the clock for tests.
func NewServiceAt(engine *memory.Engine, summarizer *memory.Summarizer, goals *goal.Tracker, b *bus.MessageBus, dailySweep string, now func() time.Time) *Service {
	return &Service{
		engine:     engine,
		summarizer: summarizer,
		goals:      goals,
		bus:        b,
		dailySweep: dailySweep,
		now:        now,
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.cron = rcron.New()

	if _, err := s.cron.AddFunc("* * * * *", func() {
		s.sweepFollowUps()
		s.sweepGoalCheckIns()
	}); err != nil {
		return fmt.Errorf("register minute sweep: %w", err)
	}

	daily, err := dailySpec(s.dailySweep)
	if err != nil {
		return fmt.Errorf("scheduler daily sweep time: %w", err)
	}
	if _, err := s.cron.AddFunc(daily, func() {
		s.sweepDaily(ctx)
	}); err != nil {
		return fmt.Errorf("register daily sweep: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] started, daily sweep at %s", s.dailySweep)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[scheduler] stop timeout waiting for running sweeps")
	}
	log.Printf("[scheduler] stopped")
}

// sweepFollowUps asks about every plan whose ask-time arrived. Each record is
// marked asked before sending so a delivery failure cannot re-ask forever.
func (s *Service) sweepFollowUps() {
	due, err := s.engine.DueFollowUps(s.now())
	if err != nil {
		log.Printf("[scheduler] load due followups: %v", err)
		return
	}

	for _, f := range due {
		if err := s.engine.MarkFollowUpAsked(f.ID); err != nil {
			log.Printf("[scheduler] mark followup %d asked: %v", f.ID, err)
			continue
		}
		s.send(f.UserID, followUpPrompt(f))
	}
	if len(due) > 0 {
		log.Printf("[scheduler] asked about %d followups", len(due))
	}
}

func (s *Service) sweepGoalCheckIns() {
	due, err := s.engine.GoalsDueCheckIn(s.now())
	if err != nil {
		log.Printf("[scheduler] load due goals: %v", err)
		return
	}

	for i := range due {
		g := &due[i]
		if err := s.goals.RescheduleCheckIn(g); err != nil {
			log.Printf("[scheduler] reschedule goal %d check-in: %v", g.ID, err)
			continue
		}
		s.send(g.UserID, goalCheckInPrompt(g))
	}
	if len(due) > 0 {
		log.Printf("[scheduler] checked in on %d goals", len(due))
	}
}

// sweepDaily consolidates every user's recent conversation into long-term
// memory, then drops entries past their expiry.
func (s *Service) sweepDaily(ctx context.Context) {
	userIDs, err := s.engine.ConversationUserIDs()
	if err != nil {
		log.Printf("[scheduler] list users for daily sweep: %v", err)
		return
	}

	for _, userID := range userIDs {
		turns, err := s.engine.RecentTurns(userID, dailySummaryDepth)
		if err != nil {
			log.Printf("[scheduler] load turns for %s: %v", userID, err)
			continue
		}
		if _, err := s.summarizer.ExtractAndSave(ctx, userID, turns); err != nil {
			log.Printf("[scheduler] consolidate memory for %s: %v", userID, err)
		}
	}

	purged, err := s.engine.PurgeExpired(s.now())
	if err != nil {
		log.Printf("[scheduler] purge expired memories: %v", err)
		return
	}
	log.Printf("[scheduler] daily sweep done: %d users, %d expired memories purged", len(userIDs), purged)
}

// send routes an unsolicited prompt back through the bus. User IDs are
// session keys ("channel:chatID"), so the route is recoverable without a
// separate lookup.
func (s *Service) send(userID, content string) {
	channel, chatID, ok := strings.Cut(userID, ":")
	if !ok || channel == "" || chatID == "" {
		log.Printf("[scheduler] user %q has no channel route, dropping prompt", userID)
		return
	}
	s.bus.Outbound <- bus.OutboundMessage{
		Channel: channel,
		ChatID:  chatID,
		Content: content,
	}
}

func followUpPrompt(f memory.FollowUp) string {
	return fmt.Sprintf("Привет! Ты говорила: «%s». Как прошло?", truncateRunes(f.Action, 80))
}

func goalCheckInPrompt(g *memory.Goal) string {
	title := g.SmartGoal
	if title == "" {
		title = g.OriginalGoal
	}
	return fmt.Sprintf("Привет! Как продвигается твоя цель «%s»? Расскажи, что получилось, а что пока нет.", truncateRunes(title, 100))
}

// dailySpec turns "HH:MM" into a five-field cron spec.
func dailySpec(hhmm string) (string, error) {
	hh, mm, ok := strings.Cut(hhmm, ":")
	if !ok {
		return "", fmt.Errorf("want HH:MM, got %q", hhmm)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("bad hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("bad minute in %q", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
