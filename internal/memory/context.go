package memory

import (
	"fmt"
	"strings"
)

// UserContext is what the persona prompt gets to know about the user.
type UserContext struct {
	Profile        Profile
	RecentTopics   []string
	LongTermMemory []Entry
	Triggers       []Trigger
}

var topicDisplayNames = map[string]string{
	"husband":   "отношения с мужем",
	"children":  "дети",
	"self":      "самореализация",
	"relatives": "родственники",
	"intimacy":  "близость",
	"work":      "работа",
}

// Categories pulled into the prompt context. Progress and attempts are
// surfaced through follow-ups and goals instead.
var contextCategories = []Category{
	CategoryFamily,
	CategoryProblems,
	CategoryInsights,
	CategoryPatterns,
}

var workFactKeywords = []string{
	"работаю", "работа:", "профессия:", "я медсестра", "я врач",
	"я учитель", "я менеджер", "я программист", "в больнице",
	"в школе", "в офисе", "должность:", "специальность:",
}

const (
	minContextImportance = 5
	perCategoryLimit     = 5
	contextMemoryLimit   = 15
	recentTopicsLimit    = 5
)

// ContextBuilder assembles the per-turn user context from the store.
type ContextBuilder struct {
	engine *Engine
}

func NewContextBuilder(engine *Engine) *ContextBuilder {
	return &ContextBuilder{engine: engine}
}

// Build collects profile facts, recent topics and, when includeLongTerm is
// set (premium), the highest-importance memory entries.
func (b *ContextBuilder) Build(userID string, includeLongTerm bool) (*UserContext, error) {
	profile, err := b.engine.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("build context: %w", err)
	}

	ctx := &UserContext{Profile: profile}

	topics, err := b.recentTopics(userID)
	if err != nil {
		return nil, fmt.Errorf("build context topics: %w", err)
	}
	ctx.RecentTopics = topics

	triggers, err := b.engine.ActiveTriggers(userID)
	if err != nil {
		return nil, fmt.Errorf("build context triggers: %w", err)
	}
	ctx.Triggers = triggers

	if includeLongTerm {
		entries, err := b.longTermMemory(userID)
		if err != nil {
			return nil, fmt.Errorf("build context memory: %w", err)
		}
		ctx.LongTermMemory = entries
	}

	return ctx, nil
}

// BuildMinimal skips everything but the profile. Used for free-tier turns.
func (b *ContextBuilder) BuildMinimal(userID string) (*UserContext, error) {
	profile, err := b.engine.GetProfile(userID)
	if err != nil {
		return nil, fmt.Errorf("build minimal context: %w", err)
	}
	return &UserContext{Profile: profile}, nil
}

func (b *ContextBuilder) recentTopics(userID string) ([]string, error) {
	tags, err := b.engine.TopTags(userID, recentTopicsLimit)
	if err != nil {
		return nil, err
	}

	var topics []string
	for _, tc := range tags {
		if !strings.HasPrefix(tc.Tag, "topic:") {
			continue
		}
		name := strings.TrimPrefix(tc.Tag, "topic:")
		if display, ok := topicDisplayNames[name]; ok {
			name = display
		}
		topics = append(topics, name)
	}
	return topics, nil
}

// longTermMemory pulls at most 5 important entries per context category,
// boosts profession/work facts to maximum importance so they always survive
// the cut, then keeps the top 15 by importance.
func (b *ContextBuilder) longTermMemory(userID string) ([]Entry, error) {
	var all []Entry
	for _, category := range contextCategories {
		entries, err := b.engine.EntriesByCategory(userID, category, minContextImportance, perCategoryLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}

	for i := range all {
		if containsAnyFold(all[i].Content, workFactKeywords) {
			if all[i].Importance < 10 {
				all[i].Importance = 10
			}
		}
	}

	// Stable selection sort by importance, highest first.
	for i := 0; i < len(all); i++ {
		best := i
		for j := i + 1; j < len(all); j++ {
			if all[j].Importance > all[best].Importance {
				best = j
			}
		}
		all[i], all[best] = all[best], all[i]
	}

	if len(all) > contextMemoryLimit {
		all = all[:contextMemoryLimit]
	}
	return all, nil
}

func containsAnyFold(s string, needles []string) bool {
	lower := strings.ToLower(s)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
