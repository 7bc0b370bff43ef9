package detect

import "strings"

// Topical tags are deliberately hard to earn: a multi-word, context-specific
// phrase must appear, so an incidental mention ("на работе всё хорошо") does
// not tag the turn. Single keywords are never enough.
var topicTagPhrases = []struct {
	tag     string
	phrases []string
}{
	{"topic:husband", []string{
		"с мужем", "муж не", "муж сказал", "муж сделал",
		"супруг", "мужа", "мужем отношения", "муж меня",
	}},
	{"topic:children", []string{
		"дети", "ребёнок", "ребенок", "сын", "дочь",
		"детьми", "детей", "ребёнка", "школ", "детский сад",
	}},
	{"topic:work", []string{
		"работе трудно", "работе тяжело",
		"начальник", "коллеги меня", "устала на работе",
		"выгораю", "карьера", "увольняться",
		"рабочий день", "работе не ценят", "работе стресс",
	}},
	{"topic:relatives", []string{
		"свекровь", "тёща", "теща", "родители",
		"свекрови", "родственник", "родня",
	}},
	{"topic:intimacy", []string{
		"близост", "секс", "интим", "нежност",
		"охлаждени", "страст", "желани",
	}},
}

// topic:self scans the user's text only, so the assistant's own phrasing
// ("я хочу помочь") never triggers it.
var selfTagPhrases = []string{
	"я хочу", "моя жизнь", "мне нужно", "я мечтаю",
	"для себя", "о себе", "саморазвитие", "мои желания",
}

var insightMarkers = []string{
	"поняла", "осознала", "теперь вижу", "никогда не думала",
	"до меня дошло", "я осознаю", "стало понятно",
}

var positiveMarkers = []string{
	"спасибо", "благодарю", "стало легче", "помогло",
}

// TagExtractor derives per-turn tags from the combined user+assistant text.
// Checks are independent; a turn can carry any subset.
type TagExtractor struct{}

func NewTagExtractor() *TagExtractor {
	return &TagExtractor{}
}

func (e *TagExtractor) Extract(userMessage, assistantResponse string, crisis CrisisAssessment) []string {
	var tags []string

	if crisis.IsCrisis {
		tags = append(tags, "crisis")
	}

	combined := strings.ToLower(userMessage + " " + assistantResponse)
	userLower := strings.ToLower(userMessage)

	for _, topic := range topicTagPhrases {
		if containsAny(combined, topic.phrases) {
			tags = append(tags, topic.tag)
		}
	}

	if containsAny(userLower, selfTagPhrases) {
		tags = append(tags, "topic:self")
	}

	if containsAny(combined, insightMarkers) {
		tags = append(tags, "insight")
	}

	if containsAny(combined, positiveMarkers) {
		tags = append(tags, "positive")
	}

	return tags
}
