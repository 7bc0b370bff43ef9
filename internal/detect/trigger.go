package detect

import "strings"

// TriggerInfo reports that the user pushed back on a topic. Topic is empty
// when the discomfort was clear but the subject could not be identified.
type TriggerInfo struct {
	Topic    string
	Severity int
	Reason   string
}

var negativeReactionMarkers = []string{
	"не хочу об этом", "не буду говорить", "не готова обсуждать",
	"давай не будем", "лучше не будем", "можно не об этом",

	"больно об этом", "тяжело говорить", "не могу об этом",
	"меня это ранит", "это задевает", "это триггерит",

	"лучше сменим тему", "поговорим о другом", "не об этом сейчас",
}

type sensitiveTopic struct {
	name     string
	keywords []string
}

var sensitiveTopics = []sensitiveTopic{
	{"свекровь", []string{"свекровь", "свекрови", "его мама", "его мать"}},
	{"развод", []string{"развод", "разводиться", "расстались", "разошлись"}},
	{"измена", []string{"изменил", "изменила", "измена", "предательство"}},
	{"родители", []string{"мои родители", "моя мама", "мой отец", "родители давят"}},
	{"здоровье", []string{"болезнь", "больна", "диагноз", "лечение"}},
	{"деньги", []string{"денег нет", "финансы", "долги", "кредит"}},
	{"работа", []string{"уволили", "начальник орет", "на работе кошмар"}},
	{"дети", []string{"с ребенком проблемы", "ребенок болеет"}},
}

var highSeverityMarkers = []string{
	"больно", "не могу", "ранит", "очень тяжело", "триггерит",
}

var mediumSeverityMarkers = []string{
	"не хочу", "не готова", "лучше не будем",
}

// TriggerDetector spots explicit refusals to discuss a topic so the topic
// can be recorded as sensitive and avoided later.
type TriggerDetector struct{}

func NewTriggerDetector() *TriggerDetector {
	return &TriggerDetector{}
}

// DetectNegativeReaction returns nil unless the user message carries a
// refusal/discomfort marker. The previous assistant message, when given, is
// used as a second place to look for the topic being refused.
func (d *TriggerDetector) DetectNegativeReaction(userMessage, previousBotMessage string) *TriggerInfo {
	lower := strings.ToLower(userMessage)

	if !containsAny(lower, negativeReactionMarkers) {
		return nil
	}

	topic := extractTriggerTopic(userMessage, lower, previousBotMessage)
	if topic == "" {
		return &TriggerInfo{
			Topic:    "",
			Severity: 5,
			Reason:   "negative_reaction_without_topic",
		}
	}

	return &TriggerInfo{
		Topic:    topic,
		Severity: estimateTriggerSeverity(lower),
		Reason:   "user_expressed_discomfort",
	}
}

// DetectTopics lists every known sensitive topic mentioned in the message,
// regardless of reaction. Used to warn the persona prompt.
func (d *TriggerDetector) DetectTopics(message string) []string {
	lower := strings.ToLower(message)

	var topics []string
	for _, topic := range sensitiveTopics {
		if containsAny(lower, topic.keywords) {
			topics = append(topics, topic.name)
		}
	}
	return topics
}

func extractTriggerTopic(userMessage, lower, previousBotMessage string) string {
	for _, topic := range sensitiveTopics {
		if containsAny(lower, topic.keywords) {
			return topic.name
		}
	}

	if previousBotMessage != "" {
		botLower := strings.ToLower(previousBotMessage)
		for _, topic := range sensitiveTopics {
			if containsAny(botLower, topic.keywords) {
				return topic.name
			}
		}
	}

	// Fallback: grab up to three words after "об этом" / "о том".
	for _, phrase := range []string{"об этом", "о том"} {
		idx := strings.Index(lower, phrase)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(userMessage[idx+len(phrase):])
		words := strings.Fields(rest)
		if len(words) > 3 {
			words = words[:3]
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}

	return ""
}

func estimateTriggerSeverity(lower string) int {
	switch {
	case containsAny(lower, highSeverityMarkers):
		return 8
	case containsAny(lower, mediumSeverityMarkers):
		return 6
	default:
		return 5
	}
}
