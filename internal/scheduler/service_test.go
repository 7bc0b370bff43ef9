package scheduler

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talkmira/mira/internal/bus"
	"github.com/talkmira/mira/internal/detect"
	"github.com/talkmira/mira/internal/goal"
	"github.com/talkmira/mira/internal/llm"
	"github.com/talkmira/mira/internal/memory"
)

type fakeLLM struct {
	response string
	calls    int
}

func (f *fakeLLM) Complete(_ context.Context, _ string, _ []llm.Message) (string, error) {
	f.calls++
	return f.response, nil
}

var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func testService(t *testing.T, client llm.Client) (*Service, *memory.Engine, *bus.MessageBus) {
	t.Helper()
	engine, err := memory.NewEngine(filepath.Join(t.TempDir(), "mira.db"))
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	t.Cleanup(func() { engine.Close() })

	b := bus.NewMessageBus(10)
	now := func() time.Time { return testNow }
	summarizer := memory.NewSummarizer(client, engine, 180)
	goals := goal.NewTrackerAt(client, engine, now)

	return NewServiceAt(engine, summarizer, goals, b, "03:30", now), engine, b
}

func receiveOutbound(t *testing.T, b *bus.MessageBus) *bus.OutboundMessage {
	t.Helper()
	select {
	case msg := <-b.Outbound:
		return &msg
	default:
		return nil
	}
}

func TestSweepFollowUpsAsksOnce(t *testing.T) {
	s, engine, b := testService(t, &fakeLLM{})

	_, err := engine.CreateFollowUp(memory.FollowUp{
		UserID:        "telegram:42",
		Action:        "поговорю с мужем про отпуск",
		Category:      detect.CategoryConversation,
		Priority:      detect.PriorityMedium,
		ScheduledDate: testNow.AddDate(0, 0, -2),
		FollowUpDate:  testNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateFollowUp error: %v", err)
	}

	s.sweepFollowUps()

	msg := receiveOutbound(t, b)
	if msg == nil {
		t.Fatal("expected an outbound prompt")
	}
	if msg.Channel != "telegram" || msg.ChatID != "42" {
		t.Errorf("routed to %s:%s, want telegram:42", msg.Channel, msg.ChatID)
	}
	if !strings.Contains(msg.Content, "Как прошло") || !strings.Contains(msg.Content, "поговорю с мужем") {
		t.Errorf("prompt = %q", msg.Content)
	}

	// A second sweep finds nothing: the record moved to asked.
	s.sweepFollowUps()
	if again := receiveOutbound(t, b); again != nil {
		t.Fatalf("followup asked twice: %q", again.Content)
	}
	due, err := engine.DueFollowUps(testNow)
	if err != nil {
		t.Fatalf("DueFollowUps error: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due after sweep = %+v", due)
	}
}

func TestSweepFollowUpsDropsUnroutableUser(t *testing.T) {
	s, engine, b := testService(t, &fakeLLM{})

	_, err := engine.CreateFollowUp(memory.FollowUp{
		UserID:        "local-user",
		Action:        "запишусь к врачу",
		ScheduledDate: testNow.AddDate(0, 0, -1),
		FollowUpDate:  testNow.Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateFollowUp error: %v", err)
	}

	s.sweepFollowUps()

	if msg := receiveOutbound(t, b); msg != nil {
		t.Fatalf("unroutable user got a prompt: %+v", msg)
	}
	// Still consumed, not retried forever.
	due, err := engine.DueFollowUps(testNow)
	if err != nil {
		t.Fatalf("DueFollowUps error: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("due after sweep = %+v", due)
	}
}

func TestSweepGoalCheckIns(t *testing.T) {
	s, engine, b := testService(t, &fakeLLM{})

	_, err := engine.CreateGoal(memory.Goal{
		UserID:       "telegram:42",
		OriginalGoal: "хочу время для себя",
		SmartGoal:    "Выделять 30 минут в день на себя",
		NextCheckIn:  testNow.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateGoal error: %v", err)
	}

	s.sweepGoalCheckIns()

	msg := receiveOutbound(t, b)
	if msg == nil {
		t.Fatal("expected a check-in prompt")
	}
	if !strings.Contains(msg.Content, "Выделять 30 минут") {
		t.Errorf("prompt = %q", msg.Content)
	}

	// Check-in moved into the future.
	due, err := engine.GoalsDueCheckIn(testNow)
	if err != nil {
		t.Fatalf("GoalsDueCheckIn error: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("goal still due after sweep: %+v", due)
	}
}

func TestSweepDailyConsolidatesAndPurges(t *testing.T) {
	client := &fakeLLM{response: `{"family": [], "problems": [], "insights": ["Поняла, что усталость копится из-за того, что совсем нет времени на себя"], "patterns": []}`}
	s, engine, _ := testService(t, client)

	for i := 0; i < 4; i++ {
		if err := engine.LogTurn("telegram:42", "user", "Сегодня опять весь день крутилась между работой и детьми, сил совсем не осталось", nil); err != nil {
			t.Fatalf("LogTurn error: %v", err)
		}
	}
	// An already-expired memory to purge.
	if _, err := engine.SaveEntry(memory.Entry{
		UserID:     "telegram:42",
		Category:   memory.CategoryProblems,
		Content:    "Старый факт, который давно пора забыть",
		Importance: 5,
		ExpiresAt:  testNow.AddDate(0, 0, -1).Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("SaveEntry error: %v", err)
	}

	s.sweepDaily(context.Background())

	if client.calls != 1 {
		t.Fatalf("model calls = %d, want 1", client.calls)
	}
	insights, err := engine.EntriesByCategory("telegram:42", memory.CategoryInsights, 1, 10)
	if err != nil {
		t.Fatalf("EntriesByCategory error: %v", err)
	}
	if len(insights) != 1 || insights[0].Importance != 9 {
		t.Fatalf("insights = %+v, want one with importance 9", insights)
	}
	problems, err := engine.EntriesByCategory("telegram:42", memory.CategoryProblems, 1, 10)
	if err != nil {
		t.Fatalf("EntriesByCategory error: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("expired entry survived: %+v", problems)
	}
}

func TestDailySpec(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "03:30", want: "30 3 * * *"},
		{in: "23:59", want: "59 23 * * *"},
		{in: "0330", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "12:xx", wantErr: true},
	}
	for _, tc := range cases {
		got, err := dailySpec(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("dailySpec(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("dailySpec(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("dailySpec(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
