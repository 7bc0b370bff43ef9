package detect

import (
	"reflect"
	"testing"
)

func TestAttemptMeditationNegative(t *testing.T) {
	d := NewAttemptDetector()

	got := d.Detect("Пробовала медитацию, не помогло", "")
	if got == nil {
		t.Fatal("expected attempt")
	}
	if got.SolutionType != "meditation" {
		t.Errorf("solution type = %q, want meditation", got.SolutionType)
	}
	if got.SolutionName != "медитация" {
		t.Errorf("solution name = %q, want медитация", got.SolutionName)
	}
	if got.Result != ResultNegative {
		t.Errorf("result = %s, want negative", got.Result)
	}
	if got.Importance != 8 {
		t.Errorf("importance = %d, want 8", got.Importance)
	}
}

func TestAttemptNoMarkerReturnsNil(t *testing.T) {
	d := NewAttemptDetector()

	if got := d.Detect("медитация это интересно", ""); got != nil {
		t.Fatalf("solution keyword without an attempt marker must not fire, got %+v", got)
	}
}

func TestAttemptFirstCategoryWins(t *testing.T) {
	d := NewAttemptDetector()

	// Both meditation and breathing keywords are present; meditation is
	// checked first and wins.
	got := d.Detect("пробовала медитацию и дыхание, не сработало", "")
	if got == nil {
		t.Fatal("expected attempt")
	}
	if got.SolutionType != "meditation" {
		t.Errorf("solution type = %q, want meditation (first match)", got.SolutionType)
	}
}

func TestAttemptResultPrecedence(t *testing.T) {
	d := NewAttemptDetector()

	// "не помогло" is negative even though "помогло" is its substring;
	// negative markers are scanned first.
	got := d.Detect("делала дыхательные упражнения, не помогло", "")
	if got == nil || got.Result != ResultNegative {
		t.Fatalf("expected negative, got %+v", got)
	}

	got = d.Detect("попробовала гулять перед сном, помогло", "")
	if got == nil || got.Result != ResultPositive {
		t.Fatalf("expected positive, got %+v", got)
	}

	got = d.Detect("пробовала вести дневник", "")
	if got == nil || got.Result != ResultUnknown {
		t.Fatalf("expected unknown, got %+v", got)
	}
}

func TestAttemptUnknownSolutionSnippet(t *testing.T) {
	d := NewAttemptDetector()

	got := d.Detect("пыталась считать до десяти когда злюсь, зря", "")
	if got == nil {
		t.Fatal("expected attempt")
	}
	if got.SolutionType != "unknown" {
		t.Errorf("solution type = %q, want unknown", got.SolutionType)
	}
	if got.SolutionName == "" || got.SolutionName == "неизвестное решение" {
		t.Errorf("expected snippet around the marker, got %q", got.SolutionName)
	}
}

func TestAttemptDeterministic(t *testing.T) {
	d := NewAttemptDetector()

	msg := "уже пробовала ходить к психологу, стало легче"
	first := d.Detect(msg, "")
	second := d.Detect(msg, "")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("detector must be pure: %+v vs %+v", first, second)
	}
}
