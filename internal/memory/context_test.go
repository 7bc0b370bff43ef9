package memory

import (
	"fmt"
	"testing"
)

func TestContextBuildMinimalProfileOnly(t *testing.T) {
	e := testEngine(t)
	b := NewContextBuilder(e)

	if err := e.UpsertProfile(Profile{UserID: "u1", DisplayName: "Анна"}); err != nil {
		t.Fatalf("UpsertProfile error: %v", err)
	}
	if _, err := e.SaveEntry(Entry{UserID: "u1", Category: CategoryFamily, Content: "сыну пять лет", Importance: 8}); err != nil {
		t.Fatalf("SaveEntry error: %v", err)
	}

	ctx, err := b.BuildMinimal("u1")
	if err != nil {
		t.Fatalf("BuildMinimal error: %v", err)
	}
	if ctx.Profile.DisplayName != "Анна" {
		t.Errorf("display name = %q", ctx.Profile.DisplayName)
	}
	if ctx.LongTermMemory != nil {
		t.Errorf("minimal context must not load memory, got %+v", ctx.LongTermMemory)
	}
}

func TestContextBuildGatesLongTermMemory(t *testing.T) {
	e := testEngine(t)
	b := NewContextBuilder(e)

	if _, err := e.SaveEntry(Entry{UserID: "u1", Category: CategoryProblems, Content: "конфликт с мужем из-за денег", Importance: 7}); err != nil {
		t.Fatalf("SaveEntry error: %v", err)
	}

	free, err := b.Build("u1", false)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(free.LongTermMemory) != 0 {
		t.Errorf("free tier must not see long-term memory, got %+v", free.LongTermMemory)
	}

	premium, err := b.Build("u1", true)
	if err != nil {
		t.Fatalf("Build premium error: %v", err)
	}
	if len(premium.LongTermMemory) != 1 {
		t.Errorf("premium memory = %+v, want 1 entry", premium.LongTermMemory)
	}
}

func TestContextRecentTopicsTranslated(t *testing.T) {
	e := testEngine(t)
	b := NewContextBuilder(e)

	for i := 0; i < 3; i++ {
		if err := e.LogTurn("u1", "user", "про мужа", []string{"topic:husband"}); err != nil {
			t.Fatalf("LogTurn error: %v", err)
		}
	}
	if err := e.LogTurn("u1", "user", "спасибо", []string{"positive", "topic:children"}); err != nil {
		t.Fatalf("LogTurn error: %v", err)
	}

	ctx, err := b.Build("u1", false)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(ctx.RecentTopics) != 2 {
		t.Fatalf("topics = %v, want 2 (non-topic tags filtered)", ctx.RecentTopics)
	}
	if ctx.RecentTopics[0] != "отношения с мужем" {
		t.Errorf("topics[0] = %q, want display name", ctx.RecentTopics[0])
	}
	if ctx.RecentTopics[1] != "дети" {
		t.Errorf("topics[1] = %q, want дети", ctx.RecentTopics[1])
	}
}

func TestContextMemoryPerCategoryAndTotalCaps(t *testing.T) {
	e := testEngine(t)
	b := NewContextBuilder(e)

	// 8 entries per category; only 5 each may enter, 15 total survive.
	for _, category := range contextCategories {
		for i := 0; i < 8; i++ {
			if _, err := e.SaveEntry(Entry{
				UserID:     "u1",
				Category:   category,
				Content:    fmt.Sprintf("запись %s %d достаточно длинная", category, i),
				Importance: 5 + i%5,
			}); err != nil {
				t.Fatalf("SaveEntry error: %v", err)
			}
		}
	}
	// Below the importance floor: never included.
	if _, err := e.SaveEntry(Entry{UserID: "u1", Category: CategoryFamily, Content: "мелочь", Importance: 3}); err != nil {
		t.Fatalf("SaveEntry error: %v", err)
	}

	ctx, err := b.Build("u1", true)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(ctx.LongTermMemory) != contextMemoryLimit {
		t.Fatalf("memory entries = %d, want %d", len(ctx.LongTermMemory), contextMemoryLimit)
	}

	perCategory := make(map[Category]int)
	for _, entry := range ctx.LongTermMemory {
		perCategory[entry.Category]++
		if entry.Importance < minContextImportance {
			t.Errorf("entry below importance floor: %+v", entry)
		}
	}
	for category, n := range perCategory {
		if n > perCategoryLimit {
			t.Errorf("category %s has %d entries, cap is %d", category, n, perCategoryLimit)
		}
	}

	// Sorted by importance, highest first.
	for i := 1; i < len(ctx.LongTermMemory); i++ {
		if ctx.LongTermMemory[i].Importance > ctx.LongTermMemory[i-1].Importance {
			t.Fatal("memory entries not sorted by importance")
		}
	}
}

func TestContextWorkFactBoost(t *testing.T) {
	e := testEngine(t)
	b := NewContextBuilder(e)

	if _, err := e.SaveEntry(Entry{
		UserID: "u1", Category: CategoryFamily,
		Content: "Я работаю в больнице медсестрой", Importance: 5,
	}); err != nil {
		t.Fatalf("SaveEntry error: %v", err)
	}
	if _, err := e.SaveEntry(Entry{
		UserID: "u1", Category: CategoryFamily,
		Content: "любит выращивать цветы на балконе", Importance: 9,
	}); err != nil {
		t.Fatalf("SaveEntry error: %v", err)
	}

	ctx, err := b.Build("u1", true)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(ctx.LongTermMemory) != 2 {
		t.Fatalf("memory = %+v", ctx.LongTermMemory)
	}
	// The profession fact is boosted to 10 and outranks the hobby fact.
	if ctx.LongTermMemory[0].Content != "Я работаю в больнице медсестрой" {
		t.Errorf("boosted work fact must rank first, got %q", ctx.LongTermMemory[0].Content)
	}
	if ctx.LongTermMemory[0].Importance != 10 {
		t.Errorf("boosted importance = %d, want 10", ctx.LongTermMemory[0].Importance)
	}
}

func TestContextIncludesActiveTriggers(t *testing.T) {
	e := testEngine(t)
	b := NewContextBuilder(e)

	if err := e.UpsertTrigger("u1", "свекровь", "больно обсуждать", 8); err != nil {
		t.Fatalf("UpsertTrigger error: %v", err)
	}
	if err := e.UpsertTrigger("u1", "развод", "", 6); err != nil {
		t.Fatalf("UpsertTrigger error: %v", err)
	}
	if err := e.DeactivateTrigger("u1", "развод"); err != nil {
		t.Fatalf("DeactivateTrigger error: %v", err)
	}

	ctx, err := b.Build("u1", false)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	if len(ctx.Triggers) != 1 || ctx.Triggers[0].Topic != "свекровь" {
		t.Fatalf("triggers = %+v, want only the active one", ctx.Triggers)
	}
}
