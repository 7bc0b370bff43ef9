package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/talkmira/mira/internal/config"
	"github.com/talkmira/mira/internal/detect"
	"github.com/talkmira/mira/internal/goal"
	"github.com/talkmira/mira/internal/llm"
	"github.com/talkmira/mira/internal/memory"
)

// TurnResult is everything one conversation turn produced. GoalMention flags
// a voiced goal so the caller can start the SMART conversion flow; the turn
// itself never spends a model call on it.
type TurnResult struct {
	Response    string
	Crisis      detect.CrisisAssessment
	Tags        []string
	Question    *detect.QuestionClassification
	GoalMention bool
}

// Orchestrator sequences one turn: crisis check first, then context and the
// model call, then the text-dependent detectors. Side-effect persistence is
// best-effort and never fails the turn.
type Orchestrator struct {
	cfg *config.Config

	crisis   *detect.CrisisDetector
	question *detect.QuestionTypeDetector
	attempt  *detect.AttemptDetector
	trigger  *detect.TriggerDetector
	followup *detect.FollowUpDetector
	tags     *detect.TagExtractor

	goals      *goal.Tracker
	contextBld *memory.ContextBuilder
	engine     *memory.Engine
	llm        llm.Client

	now func() time.Time
}

func New(cfg *config.Config, engine *memory.Engine, client llm.Client) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		crisis:     detect.NewCrisisDetector(cfg.Crisis.Hotline),
		question:   detect.NewQuestionTypeDetector(),
		attempt:    detect.NewAttemptDetector(),
		trigger:    detect.NewTriggerDetector(),
		followup:   detect.NewFollowUpDetector(),
		tags:       detect.NewTagExtractor(),
		goals:      goal.NewTracker(client, engine),
		contextBld: memory.NewContextBuilder(engine),
		engine:     engine,
		llm:        client,
		now:        time.Now,
	}
}

// GenerateResponse handles one inbound message end to end.
func (o *Orchestrator) GenerateResponse(ctx context.Context, userID, message string) (*TurnResult, error) {
	crisis := o.crisis.Check(message)

	userCtx, err := o.buildContext(userID)
	if err != nil {
		log.Printf("[orchestrator] build context for %s: %v", userID, err)
		// Degrade to profile-only context before giving up on context entirely.
		if userCtx, err = o.contextBld.BuildMinimal(userID); err != nil {
			userCtx = &memory.UserContext{}
		}
	}

	question := o.question.Detect(message)

	var guide *detect.CrisisResponseGuide
	if crisis.IsCrisis {
		g := o.crisis.ResponseGuide(crisis.Level)
		guide = &g
	}
	system := BuildSystemPrompt(o.cfg.Persona, userCtx, guide, question)

	history := o.history(userID, userCtx.Profile.IsPremium)
	prevAssistant := lastAssistantMessage(history)
	messages := append(history, llm.Message{Role: "user", Content: message})

	response, err := o.llm.Complete(ctx, system, messages)
	if err != nil {
		// A high or critical crisis must reach the user with resources even
		// when the model is down. Lesser failures surface to the caller.
		if crisis.Level >= detect.LevelHigh {
			log.Printf("[orchestrator] model failed during crisis turn: %v", err)
			return &TurnResult{
				Response: o.crisisFallback(),
				Crisis:   crisis,
				Tags:     []string{"crisis"},
				Question: question,
			}, nil
		}
		return nil, fmt.Errorf("generate response: %w", err)
	}

	tags := o.tags.Extract(message, response, crisis)

	// Side effects run after the response exists; each failure is logged
	// and swallowed.
	o.logTurn(userID, "user", message, tags)
	o.logTurn(userID, "assistant", response, tags)
	o.persistAttempt(userID, message, response)
	o.persistTrigger(userID, message, prevAssistant)
	o.persistFollowUp(userID, message)

	return &TurnResult{
		Response:    response,
		Crisis:      crisis,
		Tags:        tags,
		Question:    question,
		GoalMention: !crisis.IsCrisis && o.goals.DetectGoalMention(message),
	}, nil
}

func (o *Orchestrator) buildContext(userID string) (*memory.UserContext, error) {
	profile, err := o.engine.GetProfile(userID)
	if err != nil {
		return nil, err
	}
	return o.contextBld.Build(userID, profile.IsPremium)
}

func (o *Orchestrator) history(userID string, premium bool) []llm.Message {
	depth := o.cfg.Memory.FreeDepth
	if premium {
		depth = o.cfg.Memory.PremiumDepth
	}
	turns, err := o.engine.RecentTurns(userID, depth)
	if err != nil {
		log.Printf("[orchestrator] load history for %s: %v", userID, err)
		return nil
	}

	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}

func (o *Orchestrator) logTurn(userID, role, content string, tags []string) {
	if err := o.engine.LogTurn(userID, role, content, tags); err != nil {
		log.Printf("[orchestrator] log %s turn for %s: %v", role, userID, err)
	}
}

func (o *Orchestrator) persistAttempt(userID, message, response string) {
	attempt := o.attempt.Detect(message, response)
	if attempt == nil {
		return
	}
	entry := memory.Entry{
		UserID:     userID,
		Category:   memory.CategoryAttempts,
		Content:    fmt.Sprintf("Пробовала: %s (результат: %s)", attempt.SolutionName, attempt.Result),
		Importance: attempt.Importance,
	}
	if _, err := o.engine.UpsertEntry(entry, attempt.SolutionName); err != nil {
		log.Printf("[orchestrator] save attempt for %s: %v", userID, err)
	}
}

func (o *Orchestrator) persistTrigger(userID, message, prevAssistant string) {
	trigger := o.trigger.DetectNegativeReaction(message, prevAssistant)
	if trigger == nil || trigger.Topic == "" {
		return
	}
	if err := o.engine.UpsertTrigger(userID, trigger.Topic, trigger.Reason, trigger.Severity); err != nil {
		log.Printf("[orchestrator] save trigger for %s: %v", userID, err)
	}
}

func (o *Orchestrator) persistFollowUp(userID, message string) {
	if !o.followup.DetectPlanMention(message) {
		return
	}
	priority := o.followup.DetectPriority(message, "")
	scheduled := o.followup.ExtractTimeframe(message)
	_, err := o.engine.CreateFollowUp(memory.FollowUp{
		UserID:        userID,
		Action:        message,
		Category:      o.followup.DetectCategory(message),
		Priority:      priority,
		ScheduledDate: scheduled,
		FollowUpDate:  o.followup.CalculateFollowUpDate(scheduled, priority),
	})
	if err != nil {
		log.Printf("[orchestrator] save followup for %s: %v", userID, err)
	}
}

func (o *Orchestrator) crisisFallback() string {
	return "Я слышу, как тебе сейчас тяжело, и это очень серьёзно.\n" +
		"Пожалуйста, не оставайся с этим одна.\n" +
		"Телефон доверия (бесплатно, круглосуточно): " + o.cfg.Crisis.Hotline + "\n" +
		"Если есть кто-то рядом — позови. Я здесь и никуда не ухожу."
}

func lastAssistantMessage(history []llm.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			return history[i].Content
		}
	}
	return ""
}
