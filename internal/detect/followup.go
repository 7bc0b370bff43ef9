package detect

import (
	"strconv"
	"strings"
	"time"
)

// FollowUpPriority scales how soon we circle back after the planned date.
type FollowUpPriority string

const (
	PriorityUrgent FollowUpPriority = "urgent"
	PriorityHigh   FollowUpPriority = "high"
	PriorityMedium FollowUpPriority = "medium"
	PriorityLow    FollowUpPriority = "low"
)

// FollowUpCategory classifies the kind of plan the user voiced.
type FollowUpCategory string

const (
	CategoryConversation FollowUpCategory = "conversation"
	CategoryTask         FollowUpCategory = "task"
	CategoryAppointment  FollowUpCategory = "appointment"
	CategoryDecision     FollowUpCategory = "decision"
	CategoryHabit        FollowUpCategory = "habit"
	CategoryOther        FollowUpCategory = "other"
)

var planMarkers = []string{
	"завтра", "сегодня вечером", "на этой неделе", "в выходные",
	"планирую", "собираюсь", "хочу", "надо", "нужно",

	"попробую", "постараюсь", "сделаю", "скажу", "поговорю",

	"пойду", "позвоню", "напишу", "встречусь", "решу",
	"начну", "закончу", "сходу", "съезжу",
}

var hypotheticalPrefixes = []string{
	"что если", "а если", "может ли", "стоит ли",
}

var pastFailureMarkers = []string{"не смогла", "не получилось", "не вышло"}

var renewedPlanMarkers = []string{"но", "теперь", "сейчас", "завтра"}

type actionCategoryGroup struct {
	category FollowUpCategory
	keywords []string
}

var actionCategories = []actionCategoryGroup{
	{CategoryConversation, []string{
		"поговорю", "скажу", "объяснюсь", "признаюсь",
		"позвоню", "напишу", "встречусь", "обсужу",
	}},
	{CategoryTask, []string{
		"сделаю", "закончу", "начну", "выполню",
		"подготовлю", "организую", "запланирую",
	}},
	{CategoryAppointment, []string{
		"запись к", "прием", "консультация", "встреча",
		"пойду к врачу", "к психологу", "к специалисту",
	}},
	{CategoryDecision, []string{
		"решу", "выберу", "определюсь", "приму решение",
		"подумаю", "взвешу", "решусь",
	}},
	{CategoryHabit, []string{
		"начну делать", "перестану", "буду", "не буду",
		"каждый день", "регулярно", "по утрам",
	}},
}

type priorityGroup struct {
	priority   FollowUpPriority
	indicators []string
}

var priorityIndicators = []priorityGroup{
	{PriorityUrgent, []string{"срочно", "критично", "немедленно", "сегодня обязательно", "прямо сейчас"}},
	{PriorityHigh, []string{"важно", "очень нужно", "обязательно", "точно", "давно откладывала"}},
	{PriorityLow, []string{"может", "возможно", "если получится", "когда-нибудь", "подумаю"}},
}

// FollowUpDetector recognizes voiced plans ("завтра поговорю с мужем") and
// computes when to ask how it went. Pure; persistence is the caller's job.
type FollowUpDetector struct {
	now func() time.Time
}

func NewFollowUpDetector() *FollowUpDetector {
	return &FollowUpDetector{now: time.Now}
}

// NewFollowUpDetectorAt pins the clock, for deterministic date math.
func NewFollowUpDetectorAt(now func() time.Time) *FollowUpDetector {
	return &FollowUpDetector{now: now}
}

// DetectPlanMention reports whether the message voices a plan or intention.
// Hypothetical questions and reports of past failure (without a renewed
// intent) are filtered out.
func (d *FollowUpDetector) DetectPlanMention(message string) bool {
	lower := strings.ToLower(message)

	if !containsAny(lower, planMarkers) {
		return false
	}

	for _, prefix := range hypotheticalPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}

	if containsAny(lower, pastFailureMarkers) {
		if !containsAny(lower, renewedPlanMarkers) {
			return false
		}
	}

	return true
}

// DetectCategory maps an action phrase to the first matching category.
func (d *FollowUpDetector) DetectCategory(action string) FollowUpCategory {
	lower := strings.ToLower(action)
	for _, group := range actionCategories {
		if containsAny(lower, group.keywords) {
			return group.category
		}
	}
	return CategoryOther
}

// DetectPriority scans message and action together; medium when nothing hits.
func (d *FollowUpDetector) DetectPriority(message, action string) FollowUpPriority {
	full := strings.ToLower(message + " " + action)
	for _, group := range priorityIndicators {
		if containsAny(full, group.indicators) {
			return group.priority
		}
	}
	return PriorityMedium
}

// ExtractTimeframe maps time phrases in the message to a planned date.
// Unrecognized timing defaults to tomorrow.
func (d *FollowUpDetector) ExtractTimeframe(message string) time.Time {
	lower := strings.ToLower(message)
	now := d.now().UTC()

	if strings.Contains(lower, "сегодня") {
		return now
	}
	if strings.Contains(lower, "завтра") {
		return now.AddDate(0, 0, 1)
	}

	// "через N дней"
	if strings.Contains(lower, "через") {
		words := strings.Fields(lower)
		for i, word := range words {
			if word == "через" && i+1 < len(words) {
				if days, err := strconv.Atoi(words[i+1]); err == nil {
					return now.AddDate(0, 0, days)
				}
			}
		}
	}

	if strings.Contains(lower, "на этой неделе") || strings.Contains(lower, "на неделе") {
		return now.AddDate(0, 0, 3)
	}

	if strings.Contains(lower, "в выходные") || strings.Contains(lower, "в субботу") || strings.Contains(lower, "в воскресенье") {
		days := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days)
	}

	if strings.Contains(lower, "на следующей неделе") {
		return now.AddDate(0, 0, 7)
	}

	return now.AddDate(0, 0, 1)
}

// CalculateFollowUpDate returns when to ask "как прошло?": urgent +6h,
// high +1d, medium +2d, low +7d after the planned date.
func (d *FollowUpDetector) CalculateFollowUpDate(scheduled time.Time, priority FollowUpPriority) time.Time {
	if scheduled.IsZero() {
		scheduled = d.now().UTC().AddDate(0, 0, 1)
	}

	switch priority {
	case PriorityUrgent:
		return scheduled.Add(6 * time.Hour)
	case PriorityHigh:
		return scheduled.AddDate(0, 0, 1)
	case PriorityMedium:
		return scheduled.AddDate(0, 0, 2)
	default:
		return scheduled.AddDate(0, 0, 7)
	}
}
