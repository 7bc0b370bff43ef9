package goal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/talkmira/mira/internal/llm"
	"github.com/talkmira/mira/internal/memory"
)

const smartSystemPrompt = `Ты — эксперт по постановке целей (SMART framework).

Твоя задача — превратить расплывчатую цель в конкретную, измеримую, достижимую формулировку.

**Принципы:**
1. **Specific** — конкретная, понятная формулировка без абстракций
2. **Measurable** — четкая метрика (число, событие, наблюдаемое изменение)
3. **Achievable** — реалистичная для обычного человека
4. **Relevant** — связана с реальными потребностями
5. **Time-bound** — конкретный срок (не "когда-нибудь")

**Важно:**
- НЕ завышай ожидания ("стать самой счастливой" → "улучшить настроение")
- НЕ делай цели слишком долгосрочными (макс 3 месяца)
- Разбивай большие цели на маленькие шаги
- Используй метрики которые человек может сам отследить

**Тон:** дружелюбный, мотивирующий, но реалистичный.`

const smartConversionPrompt = `Преобразуй эту цель в SMART формат:

**Исходная цель:** "%s"

Создай SMART-версию цели, разбив на компоненты:

1. **Specific** (Конкретная) — что именно нужно сделать
2. **Measurable** (Измеримая) — как измерить прогресс
3. **Achievable** (Достижимая) — почему это реально
4. **Relevant** (Значимая) — почему это важно
5. **Time-bound** (Ограниченная во времени) — когда дедлайн

Также предложи 3-5 конкретных шагов (milestones) для достижения цели.

**Формат ответа:**

SMART цель: [одно предложение с SMART формулировкой]

Specific: [конкретика]
Measurable: [метрика]
Achievable: [почему достижимо]
Relevant: [почему важно]
Time-bound: [дата или срок]

Шаги:
1. [первый шаг]
2. [второй шаг]
3. [третий шаг]`

var goalMarkers = []string{
	"хочу", "хотела бы", "мечтаю", "планирую", "собираюсь",
	"моя цель", "моя мечта", "стремлюсь",

	"было бы здорово", "было бы классно", "мне бы",

	"надо бы", "нужно", "стоит", "пора бы",

	"буду", "начну", "попробую",
}

var pastWishMarkers = []string{"хотела", "хотелось", "мечтала", "планировала"}

type categoryGroup struct {
	name     string
	keywords []string
}

var goalCategories = []categoryGroup{
	{"health", []string{"похудеть", "вес", "здоровье", "спорт", "зал", "йога", "питание", "диета"}},
	{"relationships", []string{"отношения", "муж", "дети", "семья", "мама", "папа", "друзья"}},
	{"work", []string{"работа", "карьера", "зарплата", "проект", "бизнес", "заработать"}},
	{"personal_growth", []string{"развитие", "курс", "учеба", "книга", "навык", "хобби"}},
	{"habits", []string{"привычка", "перестать", "бросить", "начать делать", "каждый день"}},
	{"emotions", []string{"спокойнее", "увереннее", "счастливее", "меньше нервничать"}},
}

const defaultCheckInInterval = 7 * 24 * time.Hour

// Smart holds the parsed S-M-A-R-T decomposition of a goal.
type Smart struct {
	SmartGoal  string
	Specific   string
	Measurable string
	Achievable string
	Relevant   string
	TimeBound  string
	Deadline   time.Time
	Milestones []memory.Milestone
}

// Tracker detects voiced goals, converts them to SMART form through the
// model and manages milestone progress.
type Tracker struct {
	llm    llm.Client
	engine *memory.Engine
	now    func() time.Time
}

func NewTracker(client llm.Client, engine *memory.Engine) *Tracker {
	return &Tracker{llm: client, engine: engine, now: time.Now}
}

// NewTrackerAt pins the clock, for deterministic deadline math.
func NewTrackerAt(client llm.Client, engine *memory.Engine, now func() time.Time) *Tracker {
	return &Tracker{llm: client, engine: engine, now: now}
}

// DetectGoalMention reports whether the message voices a goal. Past-tense
// wishes ("хотела", "мечтала") only count when a contrastive "но"/"теперь"
// signals the wish is being renewed.
func (t *Tracker) DetectGoalMention(message string) bool {
	lower := strings.ToLower(message)

	if !containsAny(lower, goalMarkers) {
		return false
	}

	if containsAny(lower, pastWishMarkers) {
		if !strings.Contains(lower, "но") && !strings.Contains(lower, "теперь") {
			return false
		}
	}

	return true
}

// DetectCategory maps the goal text to the first matching category group.
func (t *Tracker) DetectCategory(message string) string {
	lower := strings.ToLower(message)
	for _, group := range goalCategories {
		if containsAny(lower, group.keywords) {
			return group.name
		}
	}
	return "other"
}

// ConvertToSmart asks the model for a SMART decomposition and parses its
// labeled-line reply. Parsing never fails: missing labels yield empty
// fields and an unparseable deadline falls back to +30 days.
func (t *Tracker) ConvertToSmart(ctx context.Context, originalGoal string) (*Smart, error) {
	response, err := t.llm.Complete(ctx, smartSystemPrompt, []llm.Message{{
		Role:    "user",
		Content: fmt.Sprintf(smartConversionPrompt, originalGoal),
	}})
	if err != nil {
		return nil, fmt.Errorf("convert goal: %w", err)
	}
	smart := t.parseSmartResponse(response)
	return &smart, nil
}

// CreateGoal converts and persists a goal in one go, scheduling the first
// weekly check-in.
func (t *Tracker) CreateGoal(ctx context.Context, userID, originalGoal string) (int64, error) {
	smart, err := t.ConvertToSmart(ctx, originalGoal)
	if err != nil {
		return 0, err
	}

	id, err := t.engine.CreateGoal(memory.Goal{
		UserID:       userID,
		OriginalGoal: originalGoal,
		Category:     t.DetectCategory(originalGoal),
		SmartGoal:    smart.SmartGoal,
		Specific:     smart.Specific,
		Measurable:   smart.Measurable,
		Achievable:   smart.Achievable,
		Relevant:     smart.Relevant,
		TimeBound:    smart.TimeBound,
		Deadline:     smart.Deadline,
		Milestones:   smart.Milestones,
		Status:       memory.GoalActive,
		NextCheckIn:  t.now().UTC().Add(defaultCheckInInterval),
	})
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}
	return id, nil
}

// ToggleMilestone flips one milestone and recomputes progress as the
// completed ratio. Reaching 100% marks the goal completed.
func (t *Tracker) ToggleMilestone(goalID int64, index int) (*memory.Goal, error) {
	g, err := t.engine.GetGoal(goalID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(g.Milestones) {
		return nil, fmt.Errorf("milestone index %d out of range [0,%d)", index, len(g.Milestones))
	}

	m := &g.Milestones[index]
	m.Completed = !m.Completed
	if m.Completed {
		m.CompletedAt = t.now().UTC().Format(time.RFC3339)
	} else {
		m.CompletedAt = ""
	}

	completed := 0
	for _, milestone := range g.Milestones {
		if milestone.Completed {
			completed++
		}
	}
	g.Progress = (100*completed + len(g.Milestones)/2) / len(g.Milestones)
	if g.Progress == 100 {
		g.Status = memory.GoalCompleted
	} else if g.Status == memory.GoalCompleted {
		g.Status = memory.GoalActive
	}

	if err := t.engine.UpdateGoal(g); err != nil {
		return nil, err
	}
	return g, nil
}

// RescheduleCheckIn pushes the next check-in another interval out.
func (t *Tracker) RescheduleCheckIn(g *memory.Goal) error {
	g.NextCheckIn = t.now().UTC().Add(defaultCheckInInterval)
	return t.engine.UpdateGoal(g)
}

func (t *Tracker) parseSmartResponse(response string) Smart {
	var smart Smart
	var timeBoundStr string
	inMilestones := false

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "SMART цель:") || strings.HasPrefix(line, "SMART-цель:"):
			smart.SmartGoal = afterColon(line)
			inMilestones = false
		case strings.HasPrefix(line, "Specific:"):
			smart.Specific = afterColon(line)
			inMilestones = false
		case strings.HasPrefix(line, "Measurable:"):
			smart.Measurable = afterColon(line)
			inMilestones = false
		case strings.HasPrefix(line, "Achievable:"):
			smart.Achievable = afterColon(line)
			inMilestones = false
		case strings.HasPrefix(line, "Relevant:"):
			smart.Relevant = afterColon(line)
			inMilestones = false
		case strings.HasPrefix(line, "Time-bound:") || strings.HasPrefix(line, "Time-Bound:"):
			timeBoundStr = afterColon(line)
			smart.TimeBound = timeBoundStr
			inMilestones = false
		case strings.HasPrefix(line, "Шаги:") || strings.HasPrefix(line, "Steps:"):
			inMilestones = true
		case inMilestones && line != "":
			if title, ok := milestoneTitle(line); ok {
				smart.Milestones = append(smart.Milestones, memory.Milestone{Title: title})
			}
		}
	}

	smart.Deadline = t.parseDeadline(timeBoundStr)
	return smart
}

// milestoneTitle accepts lines like "1. сделать X": a leading digit with a
// period within the first three characters.
func milestoneTitle(line string) (string, bool) {
	if line[0] < '0' || line[0] > '9' {
		return "", false
	}
	head := line
	if len(head) > 3 {
		head = head[:3]
	}
	dot := strings.Index(head, ".")
	if dot < 0 {
		return "", false
	}
	full := strings.Index(line, ".")
	return strings.TrimSpace(line[full+1:]), true
}

// parseDeadline turns free-form deadline text ("через 2 недели", "30 дней",
// "1 месяц") into a date. Anything it cannot read means +30 days.
func (t *Tracker) parseDeadline(s string) time.Time {
	now := t.now().UTC()
	fallback := now.AddDate(0, 0, 30)
	if s == "" {
		return fallback
	}
	lower := strings.ToLower(s)

	if strings.Contains(lower, "день") || strings.Contains(lower, "дня") || strings.Contains(lower, "дней") {
		if n, ok := firstNumber(lower); ok {
			return now.AddDate(0, 0, n)
		}
	}
	if strings.Contains(lower, "недел") {
		if n, ok := firstNumber(lower); ok {
			return now.AddDate(0, 0, n*7)
		}
	}
	if strings.Contains(lower, "месяц") {
		if n, ok := firstNumber(lower); ok {
			return now.AddDate(0, 0, n*30)
		}
	}
	return fallback
}

func firstNumber(s string) (int, bool) {
	for _, word := range strings.Fields(s) {
		if n, err := strconv.Atoi(word); err == nil {
			return n, true
		}
	}
	return 0, false
}

func afterColon(line string) string {
	_, rest, _ := strings.Cut(line, ":")
	return strings.TrimSpace(rest)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
