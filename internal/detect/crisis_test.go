package detect

import (
	"strings"
	"testing"
)

func TestCrisisCheckNoSignals(t *testing.T) {
	d := NewCrisisDetector("8-800-2000-122")

	got := d.Check("сегодня был хороший день, гуляли в парке")
	if got.IsCrisis {
		t.Fatalf("expected no crisis, got level %s with signals %v", got.Level, got.MatchedSignals)
	}
	if got.Level != LevelNone {
		t.Errorf("level = %s, want none", got.Level)
	}
	if got.Recommendation != "" {
		t.Errorf("recommendation should be empty, got %q", got.Recommendation)
	}
}

func TestCrisisCriticalBeatsMedium(t *testing.T) {
	d := NewCrisisDetector("8-800-2000-122")

	// "хочу умереть" is critical, "не вижу смысла" only medium. The higher
	// level must win regardless of match order.
	got := d.Check("хочу умереть, не вижу смысла")
	if !got.IsCrisis {
		t.Fatal("expected crisis")
	}
	if got.Level != LevelCritical {
		t.Errorf("level = %s, want critical", got.Level)
	}
	if len(got.MatchedSignals) < 2 {
		t.Errorf("expected both signals collected, got %v", got.MatchedSignals)
	}
	if !strings.Contains(got.Recommendation, "8-800-2000-122") {
		t.Errorf("critical recommendation must carry the hotline, got %q", got.Recommendation)
	}
}

func TestCrisisLevels(t *testing.T) {
	d := NewCrisisDetector("8-800-2000-122")

	cases := []struct {
		message string
		want    CrisisLevel
	}{
		{"он бьёт меня когда выпьет", LevelHigh},
		{"я больше не могу так жить с ним", LevelMedium},
		{"у меня снова панические атаки", LevelLow},
		{"всем будет лучше без меня", LevelCritical},
	}
	for _, tc := range cases {
		got := d.Check(tc.message)
		if !got.IsCrisis {
			t.Errorf("Check(%q): expected crisis", tc.message)
			continue
		}
		if got.Level != tc.want {
			t.Errorf("Check(%q) level = %s, want %s", tc.message, got.Level, tc.want)
		}
	}
}

func TestCrisisPatternCountsAsHigh(t *testing.T) {
	d := NewCrisisDetector("8-800-2000-122")

	got := d.Check("он угрожает убить меня если уйду")
	if !got.IsCrisis {
		t.Fatal("expected crisis")
	}
	if got.Level < LevelHigh {
		t.Errorf("regex hit must be at least high, got %s", got.Level)
	}
	var hasPattern bool
	for _, s := range got.MatchedSignals {
		if strings.HasPrefix(s, "pattern:") {
			hasPattern = true
		}
	}
	if !hasPattern {
		t.Errorf("expected a pattern signal in %v", got.MatchedSignals)
	}
}

func TestCrisisCaseInsensitive(t *testing.T) {
	d := NewCrisisDetector("8-800-2000-122")

	if got := d.Check("НЕ ХОЧУ ЖИТЬ"); got.Level != LevelCritical {
		t.Errorf("level = %s, want critical", got.Level)
	}
}

func TestCrisisResponseGuideHotline(t *testing.T) {
	d := NewCrisisDetector("112")

	for _, level := range []CrisisLevel{LevelCritical, LevelHigh} {
		guide := d.ResponseGuide(level)
		if guide.Hotline != "112" {
			t.Errorf("guide for %s: hotline = %q, want 112", level, guide.Hotline)
		}
		if len(guide.Actions) == 0 || len(guide.Avoid) == 0 {
			t.Errorf("guide for %s must carry actions and avoid lists", level)
		}
	}

	// Lower levels keep the hotline out of the guide.
	if guide := d.ResponseGuide(LevelMedium); guide.Hotline != "" {
		t.Errorf("medium guide should not carry a hotline, got %q", guide.Hotline)
	}
}
