package detect

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFollowUpPlanMention(t *testing.T) {
	d := NewFollowUpDetector()

	cases := []struct {
		message string
		want    bool
	}{
		{"Завтра поговорю с мужем об этом", true},
		{"попробую лечь спать пораньше", true},
		{"сегодня был дождь", false},
		// Hypotheticals are not plans.
		{"а если я поговорю с ним?", false},
		{"стоит ли мне пойти к врачу?", false},
		// Past failure without a renewed intent is not a plan.
		{"не получилось поговорить", false},
		// ...but with one it is.
		{"не получилось поговорить, но завтра попробую снова", true},
	}
	for _, tc := range cases {
		if got := d.DetectPlanMention(tc.message); got != tc.want {
			t.Errorf("DetectPlanMention(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestFollowUpCategory(t *testing.T) {
	d := NewFollowUpDetector()

	cases := []struct {
		action string
		want   FollowUpCategory
	}{
		{"поговорю с мужем", CategoryConversation},
		{"закончу отчет", CategoryTask},
		{"запись к психологу", CategoryAppointment},
		{"приму решение насчет работы", CategoryDecision},
		{"буду гулять каждый день", CategoryHabit},
		{"что-то совсем другое", CategoryOther},
	}
	for _, tc := range cases {
		if got := d.DetectCategory(tc.action); got != tc.want {
			t.Errorf("DetectCategory(%q) = %s, want %s", tc.action, got, tc.want)
		}
	}
}

func TestFollowUpPriority(t *testing.T) {
	d := NewFollowUpDetector()

	cases := []struct {
		message string
		want    FollowUpPriority
	}{
		{"срочно надо решить", PriorityUrgent},
		{"обязательно поговорю", PriorityHigh},
		{"если получится, схожу", PriorityLow},
		{"завтра поговорю с мужем", PriorityMedium},
	}
	for _, tc := range cases {
		if got := d.DetectPriority(tc.message, ""); got != tc.want {
			t.Errorf("DetectPriority(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestFollowUpTimeframe(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC) // Wednesday
	d := NewFollowUpDetectorAt(fixedClock(now))

	cases := []struct {
		message string
		want    time.Time
	}{
		{"сделаю сегодня", now},
		{"завтра поговорю", now.AddDate(0, 0, 1)},
		{"через 5 дней позвоню", now.AddDate(0, 0, 5)},
		{"на этой неделе решу", now.AddDate(0, 0, 3)},
		{"в выходные съезжу", now.AddDate(0, 0, 3)}, // Wed -> Sat
		{"на следующей неделе начну", now.AddDate(0, 0, 7)},
		{"поговорю с ним", now.AddDate(0, 0, 1)}, // default tomorrow
	}
	for _, tc := range cases {
		if got := d.ExtractTimeframe(tc.message); !got.Equal(tc.want) {
			t.Errorf("ExtractTimeframe(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestFollowUpWeekendFromSaturday(t *testing.T) {
	sat := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	d := NewFollowUpDetectorAt(fixedClock(sat))

	// Already Saturday: the plan rolls to the next weekend, not today.
	got := d.ExtractTimeframe("в выходные схожу в зал")
	if want := sat.AddDate(0, 0, 7); !got.Equal(want) {
		t.Errorf("ExtractTimeframe = %v, want %v", got, want)
	}
}

func TestFollowUpDateByPriority(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	d := NewFollowUpDetectorAt(fixedClock(now))
	scheduled := now.AddDate(0, 0, 1)

	cases := []struct {
		priority FollowUpPriority
		want     time.Time
	}{
		{PriorityUrgent, scheduled.Add(6 * time.Hour)},
		{PriorityHigh, scheduled.AddDate(0, 0, 1)},
		{PriorityMedium, scheduled.AddDate(0, 0, 2)},
		{PriorityLow, scheduled.AddDate(0, 0, 7)},
	}
	for _, tc := range cases {
		if got := d.CalculateFollowUpDate(scheduled, tc.priority); !got.Equal(tc.want) {
			t.Errorf("CalculateFollowUpDate(%s) = %v, want %v", tc.priority, got, tc.want)
		}
	}

	// Zero scheduled date falls back to tomorrow before the offset applies.
	got := d.CalculateFollowUpDate(time.Time{}, PriorityMedium)
	if want := now.AddDate(0, 0, 3); !got.Equal(want) {
		t.Errorf("zero scheduled: got %v, want %v", got, want)
	}
}

func TestFollowUpEndToEndTomorrowConversation(t *testing.T) {
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	d := NewFollowUpDetectorAt(fixedClock(now))

	msg := "Завтра поговорю с мужем об этом"
	if !d.DetectPlanMention(msg) {
		t.Fatal("expected plan mention")
	}
	if got := d.DetectCategory(msg); got != CategoryConversation {
		t.Errorf("category = %s, want conversation", got)
	}
	priority := d.DetectPriority(msg, "")
	if priority != PriorityMedium {
		t.Errorf("priority = %s, want medium", priority)
	}
	scheduled := d.ExtractTimeframe(msg)
	if want := now.AddDate(0, 0, 1); !scheduled.Equal(want) {
		t.Errorf("scheduled = %v, want tomorrow %v", scheduled, want)
	}
	followup := d.CalculateFollowUpDate(scheduled, priority)
	if want := scheduled.AddDate(0, 0, 2); !followup.Equal(want) {
		t.Errorf("followup = %v, want scheduled+2d %v", followup, want)
	}
	if !followup.After(scheduled) {
		t.Error("followup date must be after the scheduled date")
	}
}
