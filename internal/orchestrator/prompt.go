package orchestrator

import (
	"fmt"
	"strings"

	"github.com/talkmira/mira/internal/detect"
	"github.com/talkmira/mira/internal/memory"
)

var personaPrompts = map[string]string{
	"mira": `Ты — Мира, тёплая и внимательная подруга-собеседница.
Ты поддерживаешь женщин, которые устают от быта, отношений и невидимой нагрузки.
Говоришь просто и по-человечески, без канцелярита и лекций.
Не даёшь непрошеных советов — сначала слушаешь и уточняешь.
Помнишь, что тебе рассказывали раньше, и бережно к этому возвращаешься.`,
	"mark": `Ты — Марк, спокойный и надёжный собеседник.
Ты поддерживаешь без пафоса и без навязчивых советов.
Говоришь коротко и по делу, но тепло.
Помнишь прошлые разговоры и возвращаешься к важному.`,
}

// BuildSystemPrompt assembles the per-turn system prompt: persona base, user
// context, active triggers to steer around, then crisis and question-type
// instructions when present.
func BuildSystemPrompt(persona string, userCtx *memory.UserContext, guide *detect.CrisisResponseGuide, question *detect.QuestionClassification) string {
	base, ok := personaPrompts[persona]
	if !ok {
		base = personaPrompts["mira"]
	}

	var b strings.Builder
	b.WriteString(base)

	if userCtx != nil {
		writeUserContext(&b, userCtx)
	}

	if guide != nil {
		b.WriteString("\n\n## ВАЖНО: кризисная ситуация\n")
		fmt.Fprintf(&b, "Подход: %s. Тон: %s.\n", guide.Approach, guide.Tone)
		b.WriteString("Обязательно:\n")
		for _, action := range guide.Actions {
			b.WriteString("- " + action + "\n")
		}
		b.WriteString("Избегай:\n")
		for _, avoid := range guide.Avoid {
			b.WriteString("- " + avoid + "\n")
		}
		if guide.Hotline != "" {
			fmt.Fprintf(&b, "Телефон доверия: %s\n", guide.Hotline)
		}
	}

	if question != nil {
		b.WriteString("\n\n## Как отвечать на вопрос\n")
		b.WriteString(question.Instruction)
	}

	return b.String()
}

func writeUserContext(b *strings.Builder, userCtx *memory.UserContext) {
	p := userCtx.Profile

	var facts []string
	if p.DisplayName != "" {
		facts = append(facts, "Имя: "+p.DisplayName)
	}
	if p.PartnerName != "" {
		facts = append(facts, "Партнёр: "+p.PartnerName)
	}
	if p.MarriageYears > 0 {
		facts = append(facts, fmt.Sprintf("В браке: %d лет", p.MarriageYears))
	}
	if p.ChildrenInfo != "" {
		facts = append(facts, "Дети: "+p.ChildrenInfo)
	}
	if len(facts) > 0 {
		b.WriteString("\n\n## О собеседнице\n")
		for _, fact := range facts {
			b.WriteString("- " + fact + "\n")
		}
	}

	if len(userCtx.RecentTopics) > 0 {
		b.WriteString("\n## Недавние темы\n")
		b.WriteString(strings.Join(userCtx.RecentTopics, ", "))
		b.WriteString("\n")
	}

	if len(userCtx.LongTermMemory) > 0 {
		b.WriteString("\n## Что ты помнишь\n")
		for _, entry := range userCtx.LongTermMemory {
			b.WriteString("- " + entry.Content + "\n")
		}
	}

	if len(userCtx.Triggers) > 0 {
		b.WriteString("\n## Болезненные темы — не поднимай их первой\n")
		for _, trigger := range userCtx.Triggers {
			b.WriteString("- " + trigger.Topic + "\n")
		}
	}
}
