package detect

import "strings"

// QuestionType classifies the question a message ends on.
type QuestionType int

const (
	QuestionOpen QuestionType = iota
	QuestionClosed
	QuestionRhetorical
)

func (t QuestionType) String() string {
	switch t {
	case QuestionClosed:
		return "closed"
	case QuestionRhetorical:
		return "rhetorical"
	default:
		return "open"
	}
}

// QuestionClassification carries the strategy hint injected into the persona
// prompt for this turn.
type QuestionClassification struct {
	Type        QuestionType
	Question    string
	Strategy    string
	Instruction string
}

var closedQuestionMarkers = []string{
	"правда?", "да?", "нет?", "ведь?", "верно?",
	"так ли", "не так ли", "разве", "неужели",
	"может быть", "может",
	"правда ведь", "не правда ли",
	"согласна?", "понимаешь?",
}

var openQuestionMarkers = []string{
	"что делать", "как быть", "как поступить",
	"что мне", "как мне", "почему",
	"зачем", "откуда", "куда",
	"как", "когда", "где",
	"что думаешь", "как думаешь",
	"что посоветуешь", "что скажешь",
}

var rhetoricalMarkers = []string{
	"ну почему", "за что",
	"когда же", "сколько можно",
	"до каких пор", "что же мне",
	"что со мной", "что с ним",
	"ну как так", "как же так",
}

var emotionalQuestionWords = []string{
	"устала", "измучилась", "задолбало",
	"достало", "надоело", "замучилась",
}

// QuestionTypeDetector classifies the last question in a message as
// rhetorical, closed or open. The cascade order is load-bearing: rhetorical
// wins over closed, closed over open, and any unmatched question defaults to
// open.
type QuestionTypeDetector struct{}

func NewQuestionTypeDetector() *QuestionTypeDetector {
	return &QuestionTypeDetector{}
}

// Detect returns nil when the message carries no question mark.
func (d *QuestionTypeDetector) Detect(message string) *QuestionClassification {
	if !strings.Contains(message, "?") {
		return nil
	}

	lower := strings.ToLower(strings.TrimSpace(message))

	// Last sentence containing the question, split naively on periods.
	sentences := strings.Split(lower, ".")
	question := ""
	for i := len(sentences) - 1; i >= 0; i-- {
		if strings.Contains(sentences[i], "?") {
			question = strings.TrimSpace(sentences[i])
			break
		}
	}
	if question == "" {
		return nil
	}

	if isRhetorical(question) {
		return &QuestionClassification{
			Type:     QuestionRhetorical,
			Question: question,
			Strategy: "validate_no_answer",
			Instruction: "Это риторический вопрос — НЕ отвечай на него прямо! " +
				"Вместо ответа — валидируй чувства: 'Да, это тяжело...', " +
				"'Понимаю твоё раздражение...'. Дай пространство выговориться.",
		}
	}

	if isClosed(question) {
		return &QuestionClassification{
			Type:     QuestionClosed,
			Question: question,
			Strategy: "brief_then_reflect",
			Instruction: "Закрытый вопрос (да/нет). Ответь КРАТКО (1-2 предложения), " +
				"затем задай рефлексивный вопрос чтобы углубить разговор. " +
				"Пример: 'Да, понимаю. А что тебя больше всего беспокоит?'",
		}
	}

	if isOpen(question) {
		return &QuestionClassification{
			Type:     QuestionOpen,
			Question: question,
			Strategy: "detailed_with_examples",
			Instruction: "Открытый вопрос — дай развёрнутый ответ. " +
				"Можешь использовать примеры, варианты, историю. " +
				"Но не перегружай — 3-4 абзаца max.",
		}
	}

	return &QuestionClassification{
		Type:     QuestionOpen,
		Question: question,
		Strategy: "detailed_with_examples",
		Instruction: "Вопрос (тип неясен, считаем открытым). " +
			"Дай развёрнутый ответ с примерами.",
	}
}

func isRhetorical(question string) bool {
	for _, marker := range rhetoricalMarkers {
		if strings.Contains(question, marker) {
			return true
		}
	}

	// Emotional distress word plus a why/how/what-for word reads rhetorical,
	// e.g. "Почему я такая дура?".
	if containsAny(question, emotionalQuestionWords) {
		if containsAny(question, []string{"почему", "как", "зачем"}) {
			return true
		}
	}
	return false
}

func isClosed(question string) bool {
	for _, marker := range closedQuestionMarkers {
		if strings.Contains(question, marker) {
			return true
		}
	}

	// Two-clause confirmations like "Устала, правда?".
	if strings.Contains(question, ",") {
		parts := strings.Split(question, ",")
		if len(parts) == 2 {
			if containsAny(parts[1], []string{"правда", "да", "нет", "ведь"}) {
				return true
			}
		}
	}
	return false
}

func isOpen(question string) bool {
	for _, marker := range openQuestionMarkers {
		if strings.HasPrefix(question, marker) || strings.Contains(question, " "+marker) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
