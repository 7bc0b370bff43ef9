package memory

import (
	"time"

	"github.com/talkmira/mira/internal/detect"
)

// Category is the closed set of long-term memory buckets.
type Category string

const (
	CategoryFamily   Category = "family"
	CategoryProblems Category = "problems"
	CategoryInsights Category = "insights"
	CategoryPatterns Category = "patterns"
	CategoryProgress Category = "progress"
	CategoryAttempts Category = "attempts"
)

// Entry is one durable fact about a user. Importance lives in [1,10];
// writes clamp it.
type Entry struct {
	ID         int64
	UserID     string
	Category   Category
	Content    string
	Importance int
	CreatedAt  string
	UpdatedAt  string
	ExpiresAt  string
}

// Trigger marks a topic the user reacted badly to. One row per
// (user, normalized topic).
type Trigger struct {
	ID              int64
	UserID          string
	Topic           string
	Description     string
	Severity        int
	IsActive        bool
	LastMentionedAt string
}

// FollowUpStatus is the follow-up lifecycle. Postponing pushes the date
// forward and returns the record to pending.
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpAsked     FollowUpStatus = "asked"
	FollowUpCompleted FollowUpStatus = "completed"
	FollowUpPostponed FollowUpStatus = "postponed"
	FollowUpCancelled FollowUpStatus = "cancelled"
)

type FollowUp struct {
	ID               int64
	UserID           string
	Action           string
	Context          string
	Category         detect.FollowUpCategory
	Priority         detect.FollowUpPriority
	ScheduledDate    time.Time
	FollowUpDate     time.Time
	Status           FollowUpStatus
	Outcome          string
	OutcomeSentiment string
}

// GoalStatus is the goal lifecycle; 100% progress auto-completes.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

type Milestone struct {
	Title       string `json:"title"`
	Completed   bool   `json:"completed"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type Goal struct {
	ID           int64
	UserID       string
	OriginalGoal string
	Category     string
	SmartGoal    string
	Specific     string
	Measurable   string
	Achievable   string
	Relevant     string
	TimeBound    string
	Deadline     time.Time
	Milestones   []Milestone
	Progress     int
	Status       GoalStatus
	NextCheckIn  time.Time
}

// Turn is one logged conversation message with its per-turn tags.
type Turn struct {
	ID        int64
	UserID    string
	Role      string
	Content   string
	Tags      []string
	CreatedAt string
}

// TagCount pairs a tag with how often it appeared recently.
type TagCount struct {
	Tag   string
	Count int
}

func clampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
