package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/talkmira/mira/internal/llm"
)

const extractionPrompt = `Ты — ассистент для анализа разговоров.
Твоя задача — извлечь важную информацию для долговременной памяти.

Проанализируй разговор и извлеки:

1. **Семья (family):** факты о семье пользователя
   - Имена членов семьи
   - Возраст детей
   - Важные события

2. **Проблемы (problems):** текущие проблемы и темы
   - О чём беспокоится
   - Что вызывает стресс
   - Конфликты

3. **Инсайты (insights):** осознания пользователя
   - Что поняла нового
   - Важные выводы

4. **Паттерны (patterns):** повторяющиеся темы
   - Что упоминает часто
   - Триггеры эмоций

Формат ответа — JSON:
{
    "family": ["факт 1", "факт 2"],
    "problems": ["проблема 1"],
    "insights": ["инсайт 1"],
    "patterns": ["паттерн 1"]
}

Если категория пустая — верни пустой массив.
Каждый факт — краткий (1-2 предложения).`

const briefSummaryPrompt = "Ты создаёшь очень краткие резюме разговоров (1-2 предложения)."

// Importance per extraction category; insights weigh the most.
var extractionImportance = map[Category]int{
	CategoryInsights: 9,
	CategoryFamily:   8,
	CategoryProblems: 7,
	CategoryPatterns: 6,
}

const (
	minConversationRunes = 100
	minFactRunes         = 10
	dedupNeedleRunes     = 50
)

// Summarizer condenses finished conversations into durable memory entries.
type Summarizer struct {
	llm        llm.Client
	engine     *Engine
	expiryDays int
}

func NewSummarizer(client llm.Client, engine *Engine, expiryDays int) *Summarizer {
	return &Summarizer{llm: client, engine: engine, expiryDays: expiryDays}
}

// Extracted holds the facts the model pulled out, keyed by category.
type Extracted struct {
	Family   []string `json:"family"`
	Problems []string `json:"problems"`
	Insights []string `json:"insights"`
	Patterns []string `json:"patterns"`
}

// ExtractAndSave sends the transcript to the model, parses the category
// arrays out of its reply and persists each fact through the dedup upsert.
// Short conversations are skipped entirely.
func (s *Summarizer) ExtractAndSave(ctx context.Context, userID string, turns []Turn) (*Extracted, error) {
	transcript := formatTranscript(turns)
	if utf8.RuneCountInString(transcript) < minConversationRunes {
		return nil, nil
	}

	response, err := s.llm.Complete(ctx, extractionPrompt, []llm.Message{{
		Role:    "user",
		Content: "Проанализируй этот разговор:\n\n" + transcript,
	}})
	if err != nil {
		return nil, fmt.Errorf("extract conversation: %w", err)
	}

	extracted := parseExtraction(response)
	if extracted == nil {
		return nil, nil
	}

	s.save(userID, CategoryFamily, extracted.Family)
	s.save(userID, CategoryProblems, extracted.Problems)
	s.save(userID, CategoryInsights, extracted.Insights)
	s.save(userID, CategoryPatterns, extracted.Patterns)

	return extracted, nil
}

// SummarizeBrief produces a 1-2 sentence recap of the last turns, used when
// re-opening a conversation. Falls back to a fixed phrase on any failure.
func (s *Summarizer) SummarizeBrief(ctx context.Context, turns []Turn) string {
	if len(turns) > 10 {
		turns = turns[len(turns)-10:]
	}
	transcript := formatTranscript(turns)

	response, err := s.llm.Complete(ctx, briefSummaryPrompt, []llm.Message{{
		Role:    "user",
		Content: "Кратко (1-2 предложения) о чём был разговор:\n\n" + transcript,
	}})
	if err != nil {
		log.Printf("[memory] summarize conversation: %v", err)
		return "был важный разговор"
	}
	return strings.TrimSpace(response)
}

func (s *Summarizer) save(userID string, category Category, facts []string) {
	importance := extractionImportance[category]
	var expiresAt string
	if s.expiryDays > 0 {
		expiresAt = formatTime(time.Now().AddDate(0, 0, s.expiryDays))
	}

	for _, fact := range facts {
		fact = strings.TrimSpace(fact)
		if utf8.RuneCountInString(fact) < minFactRunes {
			continue
		}

		entry := Entry{
			UserID:     userID,
			Category:   category,
			Content:    fact,
			Importance: importance,
			ExpiresAt:  expiresAt,
		}
		if _, err := s.engine.UpsertEntry(entry, truncateRunes(fact, dedupNeedleRunes)); err != nil {
			log.Printf("[memory] save %s fact: %v", category, err)
		}
	}
}

// parseExtraction pulls the first {...} block out of the response; anything
// the model wrapped around it is ignored. Returns nil when no parseable
// object is present.
func parseExtraction(response string) *Extracted {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil
	}

	var extracted Extracted
	if err := json.Unmarshal([]byte(response[start:end+1]), &extracted); err != nil {
		log.Printf("[memory] parse extraction: %v", err)
		return nil
	}
	return &extracted
}

func formatTranscript(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		speaker := "Бот"
		if turn.Role == "user" {
			speaker = "Пользователь"
		}
		lines = append(lines, speaker+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
