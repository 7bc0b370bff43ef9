// Package gateway wires the pieces together: channels feed the bus, the
// orchestrator answers, the scheduler nudges.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/talkmira/mira/internal/bus"
	"github.com/talkmira/mira/internal/channel"
	"github.com/talkmira/mira/internal/config"
	"github.com/talkmira/mira/internal/detect"
	"github.com/talkmira/mira/internal/goal"
	"github.com/talkmira/mira/internal/llm"
	"github.com/talkmira/mira/internal/memory"
	"github.com/talkmira/mira/internal/orchestrator"
	"github.com/talkmira/mira/internal/scheduler"
)

// Responder produces one reply per inbound message; the orchestrator in
// production, a stub in tests.
type Responder interface {
	GenerateResponse(ctx context.Context, userID, message string) (*orchestrator.TurnResult, error)
}

type Options struct {
	Responder  Responder
	SignalChan chan os.Signal
}

type Gateway struct {
	cfg       *config.Config
	bus       *bus.MessageBus
	engine    *memory.Engine
	responder Responder
	channels  *channel.ChannelManager
	scheduler *scheduler.Service

	signalChan chan os.Signal
}

func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	dbPath := strings.TrimSpace(cfg.Memory.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join(config.ConfigDir(), "data", "mira.db")
	}
	engine, err := memory.NewEngine(dbPath)
	if err != nil {
		return nil, fmt.Errorf("create memory engine: %w", err)
	}
	g.engine = engine

	client := llm.NewClient(cfg)

	g.responder = opts.Responder
	if g.responder == nil {
		g.responder = orchestrator.New(cfg, engine, client)
	}

	summarizer := memory.NewSummarizer(client, engine, cfg.Memory.ExpiryDays)
	goals := goal.NewTracker(client, engine)
	g.scheduler = scheduler.NewService(engine, summarizer, goals, g.bus, cfg.Scheduler.DailySweep)

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Gateway, g.bus)
	if err != nil {
		_ = engine.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	g.signalChan = opts.SignalChan
	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	if err := g.scheduler.Start(ctx); err != nil {
		log.Printf("[gateway] scheduler start warning: %v", err)
	}

	go g.processLoop(ctx)

	log.Printf("[gateway] running as %s on %s:%d", g.cfg.Persona, g.cfg.Gateway.Host, g.cfg.Gateway.Port)

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

// processLoop answers inbound messages one at a time. The session key doubles
// as the user ID so scheduled prompts can find their way back.
func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			log.Printf("[gateway] inbound from %s/%s: %s", msg.Channel, msg.SenderID, truncate(msg.Content, 80))

			result, err := g.responder.GenerateResponse(ctx, msg.SessionKey(), msg.Content)
			if err != nil {
				log.Printf("[gateway] respond error: %v", err)
				g.bus.Outbound <- bus.OutboundMessage{
					Channel: msg.Channel,
					ChatID:  msg.ChatID,
					Content: "Прости, у меня что-то сломалось. Напиши мне ещё раз чуть позже, хорошо?",
				}
				continue
			}
			if result.Crisis.IsCrisis {
				log.Printf("[gateway] crisis turn (%s) for %s", result.Crisis.Level, msg.SessionKey())
			}

			g.bus.Outbound <- bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: g.withCrisisResources(result),
			}
		case <-ctx.Done():
			return
		}
	}
}

// withCrisisResources guarantees the hotline reaches the user on severe
// crisis turns. The prompt asks the model to include it, but the number must
// not depend on the model doing so.
func (g *Gateway) withCrisisResources(result *orchestrator.TurnResult) string {
	content := result.Response
	if result.Crisis.Level < detect.LevelHigh {
		return content
	}
	if strings.Contains(content, g.cfg.Crisis.Hotline) {
		return content
	}
	return content + "\n\nТелефон доверия (бесплатно, круглосуточно): " + g.cfg.Crisis.Hotline
}

func (g *Gateway) Shutdown() error {
	g.scheduler.Stop()
	_ = g.channels.StopAll()
	if g.engine != nil {
		if err := g.engine.Close(); err != nil {
			log.Printf("[gateway] close memory engine warning: %v", err)
		}
	}
	log.Printf("[gateway] shutdown complete")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
