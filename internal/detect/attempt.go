package detect

import (
	"strings"
	"unicode/utf8"
)

// AttemptResult is the reported outcome of a coping strategy the user tried.
type AttemptResult string

const (
	ResultNegative AttemptResult = "negative"
	ResultNeutral  AttemptResult = "neutral"
	ResultPositive AttemptResult = "positive"
	ResultUnknown  AttemptResult = "unknown"
)

// AttemptInfo describes one detected "I already tried X" mention.
type AttemptInfo struct {
	SolutionType string
	SolutionName string
	Result       AttemptResult
	Importance   int
}

const attemptImportance = 8

var attemptMarkers = []string{
	"пыталась",
	"пытался",
	"пробовала",
	"пробовал",
	"делала",
	"делал",
	"попробовала",
	"попробовал",

	"не помогло",
	"не сработало",
	"не получилось",
	"бесполезно",
	"напрасно",
	"зря",

	"уже делаю",
	"уже пыталась",
	"уже пробовала",
	"делала это",
	"пробовала это",

	"стало хуже",
	"не вышло",
	"провалилось",
}

type solutionGroup struct {
	typ      string
	name     string
	keywords []string
}

// Category order is fixed: the first group with any keyword hit wins, even
// when later groups would also match.
var solutionGroups = []solutionGroup{
	{"meditation", "медитация", []string{
		"медитация", "медитировать", "медитации", "медитацию", "медитировала",
	}},
	{"breathing", "дыхательные упражнения", []string{
		"дыхание", "дышать", "дыхательные", "дышала",
		"вдох", "выдох", "дыхательное упражнение",
	}},
	{"therapy", "психолог/терапия", []string{
		"психолог", "терапия", "терапевт", "к психологу",
		"на терапию", "консультация",
	}},
	{"journaling", "дневник", []string{
		"дневник", "записывать", "писать", "письменные практики",
		"вести дневник",
	}},
	{"sport", "спорт/тренировки", []string{
		"спорт", "зал", "тренировки", "бегать", "фитнес",
		"йога", "физические упражнения",
	}},
	{"walking", "прогулки", []string{
		"гулять", "прогулки", "ходить", "гуляла",
	}},
	{"talk_husband", "разговор с мужем", []string{
		"говорила с мужем", "разговор с мужем", "сказала мужу",
		"поговорила", "обсудила с мужем",
	}},
	{"talk_friends", "разговор с подругой", []string{
		"говорила с подругой", "подруге сказала", "друзьям рассказала",
		"поговорила с подругой",
	}},
	{"boundaries", "установление границ", []string{
		"границы", "отказывать", "сказать нет", "отказала",
		"установить границы",
	}},
	{"time_for_self", "время для себя", []string{
		"время для себя", "побыть одной", "уединение",
	}},
	{"medication", "лекарства", []string{
		"лекарства", "таблетки", "антидепрессанты", "препараты",
	}},
	{"doctor", "врач/обследование", []string{
		"к врачу", "доктор", "обследование", "анализы",
	}},
}

var attemptNegativeMarkers = []string{
	"не помогло", "не сработало", "не получилось",
	"бесполезно", "стало хуже", "не вышло",
}

var attemptNeutralMarkers = []string{
	"иногда помогает", "немного помогло", "чуть легче",
}

var attemptPositiveMarkers = []string{
	"помогло", "стало легче", "получилось", "сработало",
}

// AttemptDetector recognizes when the user reports having tried a coping
// strategy and what came of it. Pure function of its inputs.
type AttemptDetector struct{}

func NewAttemptDetector() *AttemptDetector {
	return &AttemptDetector{}
}

// Detect returns nil when no attempt marker is present. The assistant
// response is accepted for interface symmetry with the other detectors but
// attempt mentions are user-authored.
func (d *AttemptDetector) Detect(userMessage, assistantResponse string) *AttemptInfo {
	lower := strings.ToLower(userMessage)

	if !containsAny(lower, attemptMarkers) {
		return nil
	}

	for _, group := range solutionGroups {
		if containsAny(lower, group.keywords) {
			return &AttemptInfo{
				SolutionType: group.typ,
				SolutionName: group.name,
				Result:       extractAttemptResult(lower),
				Importance:   attemptImportance,
			}
		}
	}

	// Attempt mentioned but the strategy is not one we know: keep a raw
	// snippet around the marker as the display name.
	return &AttemptInfo{
		SolutionType: "unknown",
		SolutionName: extractSolutionSnippet(userMessage, lower),
		Result:       extractAttemptResult(lower),
		Importance:   attemptImportance,
	}
}

func extractAttemptResult(lower string) AttemptResult {
	switch {
	case containsAny(lower, attemptNegativeMarkers):
		return ResultNegative
	case containsAny(lower, attemptPositiveMarkers):
		return ResultPositive
	case containsAny(lower, attemptNeutralMarkers):
		return ResultNeutral
	default:
		return ResultUnknown
	}
}

// extractSolutionSnippet takes a 20-rune-before / 30-rune-after window around
// the first attempt marker found in the message.
func extractSolutionSnippet(message, lower string) string {
	for _, marker := range attemptMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}

		runes := []rune(message)
		markerStart := utf8.RuneCountInString(lower[:idx])
		markerLen := utf8.RuneCountInString(marker)

		start := markerStart - 20
		if start < 0 {
			start = 0
		}
		end := markerStart + markerLen + 30
		if end > len(runes) {
			end = len(runes)
		}
		return strings.TrimSpace(string(runes[start:end]))
	}
	return "неизвестное решение"
}
