package detect

import (
	"regexp"
	"strings"
)

// CrisisLevel orders crisis severity. Higher values always win when several
// signals co-occur in one message.
type CrisisLevel int

const (
	LevelNone CrisisLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
	LevelCritical
)

func (l CrisisLevel) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "none"
	}
}

// CrisisAssessment is derived fresh per message and never persisted itself.
type CrisisAssessment struct {
	IsCrisis       bool
	Level          CrisisLevel
	MatchedSignals []string
	Recommendation string
}

// CrisisResponseGuide steers the persona prompt when a crisis is active.
type CrisisResponseGuide struct {
	Approach string
	Tone     string
	Actions  []string
	Avoid    []string
	Hotline  string
}

var crisisKeywords = map[CrisisLevel][]string{
	LevelCritical: {
		"хочу умереть",
		"покончить с собой",
		"суицид",
		"убить себя",
		"не хочу жить",
		"конец всему",
		"лучше бы меня не было",
		"всем будет лучше без меня",
	},
	LevelHigh: {
		"бьёт",
		"бьет",
		"ударил",
		"насилие",
		"боюсь за свою жизнь",
		"он угрожает",
		"порезать себя",
		"самоповреждение",
		"режу себя",
	},
	LevelMedium: {
		"не вижу смысла",
		"всё бессмысленно",
		"не могу больше",
		"больше не могу",
		"хочу исчезнуть",
		"устала жить",
		"зачем я живу",
		"никому не нужна",
	},
	LevelLow: {
		"очень плохо",
		"в отчаянии",
		"не выдержу",
		"на грани",
		"срываюсь",
		"панические атаки",
		"не могу дышать",
		"задыхаюсь от тревоги",
	},
}

var crisisPatterns = []*regexp.Regexp{
	regexp.MustCompile(`хочу\s+(умереть|покончить|убить\s+себя)`),
	regexp.MustCompile(`(не\s+хочу|устала)\s+жить`),
	regexp.MustCompile(`лучше\s+бы\s+(меня|я)\s+не\s+было`),
	regexp.MustCompile(`(бьёт|бьет|ударил|избивает)\s+меня`),
	regexp.MustCompile(`(угрожает|грозится)\s+(убить|покалечить)`),
}

// CrisisDetector scans a message for self-harm, abuse and acute distress
// signals. Pure: no I/O, no state beyond the configured hotline.
type CrisisDetector struct {
	hotline string
}

func NewCrisisDetector(hotline string) *CrisisDetector {
	return &CrisisDetector{hotline: hotline}
}

// Check never fails; a message with no signals yields a zero assessment.
func (d *CrisisDetector) Check(message string) CrisisAssessment {
	lower := strings.ToLower(message)

	var matched []string
	highest := LevelNone

	// Regex patterns count as high-severity hits.
	for _, pattern := range crisisPatterns {
		if pattern.MatchString(lower) {
			if LevelHigh > highest {
				highest = LevelHigh
			}
			matched = append(matched, "pattern:"+pattern.String())
		}
	}

	for _, level := range []CrisisLevel{LevelCritical, LevelHigh, LevelMedium, LevelLow} {
		for _, keyword := range crisisKeywords[level] {
			if strings.Contains(lower, keyword) {
				matched = append(matched, keyword)
				if level > highest {
					highest = level
				}
			}
		}
	}

	if len(matched) == 0 {
		return CrisisAssessment{}
	}

	return CrisisAssessment{
		IsCrisis:       true,
		Level:          highest,
		MatchedSignals: matched,
		Recommendation: d.recommendation(highest),
	}
}

func (d *CrisisDetector) recommendation(level CrisisLevel) string {
	switch level {
	case LevelCritical:
		return "Немедленно предоставить номер кризисной линии: " + d.hotline + ". " +
			"Признать боль, выразить заботу, не оставлять одну."
	case LevelHigh:
		return "Мягко предложить помощь специалиста. Дать номер: " + d.hotline + ". " +
			"Оставаться рядом, проявить эмпатию."
	case LevelMedium:
		return "Проявить особую заботу и эмпатию. " +
			"При необходимости упомянуть возможность профессиональной помощи."
	case LevelLow:
		return "Быть особенно внимательным и поддерживающим. " +
			"Отслеживать развитие ситуации."
	default:
		return ""
	}
}

// ResponseGuide returns the static per-level instruction set for the persona
// prompt. Unknown levels fall back to the low-level guide.
func (d *CrisisDetector) ResponseGuide(level CrisisLevel) CrisisResponseGuide {
	switch level {
	case LevelCritical:
		return CrisisResponseGuide{
			Approach: "direct",
			Tone:     "calm, warm, serious",
			Actions: []string{
				"Признать боль и серьёзность",
				"Не пытаться отвлечь или успокоить банальностями",
				"Дать номер кризисной линии",
				"Предложить остаться на связи",
				"Спросить есть ли кто-то рядом",
			},
			Avoid: []string{
				"Истории и метафоры",
				"Советы",
				"Минимизация чувств",
				"Паника",
			},
			Hotline: d.hotline,
		}
	case LevelHigh:
		return CrisisResponseGuide{
			Approach: "supportive_direct",
			Tone:     "warm, concerned, non-judgmental",
			Actions: []string{
				"Признать серьёзность ситуации",
				"Выразить заботу",
				"Мягко предложить профессиональную помощь",
				"Предоставить ресурсы",
			},
			Avoid: []string{
				"Давление обращаться за помощью",
				"Осуждение",
				"Паника",
			},
			Hotline: d.hotline,
		}
	case LevelMedium:
		return CrisisResponseGuide{
			Approach: "supportive",
			Tone:     "warm, understanding",
			Actions: []string{
				"Выслушать без осуждения",
				"Нормализовать чувства",
				"Помочь разобраться в ситуации",
				"При необходимости упомянуть профессиональную помощь",
			},
			Avoid: []string{
				"Банальные советы",
				"Обесценивание",
			},
		}
	default:
		return CrisisResponseGuide{
			Approach: "attentive",
			Tone:     "warm, supportive",
			Actions: []string{
				"Быть внимательным",
				"Проявлять эмпатию",
				"Отслеживать изменения",
			},
			Avoid: []string{
				"Игнорирование сигналов",
			},
		}
	}
}
