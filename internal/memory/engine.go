package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/talkmira/mira/internal/detect"
)

// Engine owns the SQLite store: long-term memories, triggers, follow-ups,
// goals, user profiles and the conversation log. All writes serialize on a
// single mutex; SQLite does the rest.
type Engine struct {
	db *sql.DB
	mu sync.Mutex
}

func NewEngine(dbPath string) (*Engine, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	e := &Engine{db: db}
	if err := e.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := e.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := e.db.Exec(p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func (e *Engine) Close() error {
	if e.db == nil {
		return nil
	}
	return e.db.Close()
}

func (e *Engine) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			partner_name TEXT NOT NULL DEFAULT '',
			marriage_years INTEGER NOT NULL DEFAULT 0,
			children_info TEXT NOT NULL DEFAULT '',
			is_premium INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS memories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			content TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 5,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			expires_at TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, category, importance)`,
		`CREATE TABLE IF NOT EXISTS triggers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			severity INTEGER NOT NULL DEFAULT 5,
			is_active INTEGER NOT NULL DEFAULT 1,
			last_mentioned_at TEXT NOT NULL DEFAULT (datetime('now')),
			UNIQUE(user_id, topic)
		)`,
		`CREATE TABLE IF NOT EXISTS followups (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT 'other',
			priority TEXT NOT NULL DEFAULT 'medium',
			scheduled_date TEXT NOT NULL,
			followup_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			outcome TEXT NOT NULL DEFAULT '',
			outcome_sentiment TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_followups_due ON followups(status, followup_date)`,
		`CREATE TABLE IF NOT EXISTS goals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			original_goal TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'other',
			smart_goal TEXT NOT NULL DEFAULT '',
			specific TEXT NOT NULL DEFAULT '',
			measurable TEXT NOT NULL DEFAULT '',
			achievable TEXT NOT NULL DEFAULT '',
			relevant TEXT NOT NULL DEFAULT '',
			time_bound TEXT NOT NULL DEFAULT '',
			deadline TEXT NOT NULL DEFAULT '',
			milestones TEXT NOT NULL DEFAULT '[]',
			progress INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active',
			next_check_in TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id, status)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			tags TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, id)`,
	}

	for _, stmt := range stmts {
		if _, err := e.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// --- profiles ---

type Profile struct {
	UserID        string
	DisplayName   string
	PartnerName   string
	MarriageYears int
	ChildrenInfo  string
	IsPremium     bool
}

func (e *Engine) UpsertProfile(p Profile) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.db.Exec(`
		INSERT INTO users (user_id, display_name, partner_name, marriage_years, children_info, is_premium)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			partner_name = excluded.partner_name,
			marriage_years = excluded.marriage_years,
			children_info = excluded.children_info,
			is_premium = excluded.is_premium
	`, p.UserID, strings.TrimSpace(p.DisplayName), strings.TrimSpace(p.PartnerName),
		p.MarriageYears, strings.TrimSpace(p.ChildrenInfo), boolToInt(p.IsPremium))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (e *Engine) GetProfile(userID string) (Profile, error) {
	row := e.db.QueryRow(`
		SELECT user_id, display_name, partner_name, marriage_years, children_info, is_premium
		FROM users WHERE user_id = ?
	`, userID)

	var p Profile
	var premium int
	err := row.Scan(&p.UserID, &p.DisplayName, &p.PartnerName, &p.MarriageYears, &p.ChildrenInfo, &premium)
	if err == sql.ErrNoRows {
		return Profile{UserID: userID}, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.IsPremium = premium == 1
	return p, nil
}

// --- memories ---

func (e *Engine) SaveEntry(entry Entry) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.db.Exec(`
		INSERT INTO memories (user_id, category, content, importance, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.UserID, string(entry.Category), strings.TrimSpace(entry.Content),
		clampImportance(entry.Importance), entry.ExpiresAt)
	if err != nil {
		return 0, fmt.Errorf("save entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save entry id: %w", err)
	}
	return id, nil
}

// UpsertEntry dedups by substring: when an existing entry for the user
// already contains needle (case-insensitive), its importance is bumped to
// max(old, new) instead of inserting a near-duplicate. Returns true when a
// new entry was created. Not transactionally isolated across concurrent
// turns for the same user.
func (e *Engine) UpsertEntry(entry Entry, needle string) (bool, error) {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		_, err := e.SaveEntry(entry)
		return err == nil, err
	}

	id, importance, found, err := e.findDedupTarget(entry.UserID, needle)
	if err != nil {
		return false, err
	}
	if !found {
		_, err := e.SaveEntry(entry)
		return err == nil, err
	}

	want := clampImportance(entry.Importance)
	if want > importance {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, err := e.db.Exec(`
			UPDATE memories SET importance = ?, updated_at = datetime('now') WHERE id = ?
		`, want, id); err != nil {
			return false, fmt.Errorf("bump entry importance: %w", err)
		}
	}
	return false, nil
}

// findDedupTarget scans the user's entries in Go because SQLite's lower()
// folds ASCII only and the stored content is Russian. When several entries
// contain the needle, the highest-importance one is the bump target.
func (e *Engine) findDedupTarget(userID, needle string) (int64, int, bool, error) {
	rows, err := e.db.Query(`
		SELECT id, content, importance FROM memories
		WHERE user_id = ?
		ORDER BY importance DESC, id ASC
	`, userID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("find entry: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var content string
		var importance int
		if err := rows.Scan(&id, &content, &importance); err != nil {
			return 0, 0, false, fmt.Errorf("scan entry: %w", err)
		}
		if strings.Contains(strings.ToLower(content), needle) {
			return id, importance, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, false, fmt.Errorf("find entry: %w", err)
	}
	return 0, 0, false, nil
}

func (e *Engine) EntriesByCategory(userID string, category Category, minImportance, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := e.db.Query(`
		SELECT id, user_id, category, content, importance, created_at, updated_at, expires_at
		FROM memories
		WHERE user_id = ? AND category = ? AND importance >= ?
		ORDER BY importance DESC, id DESC
		LIMIT ?
	`, userID, string(category), minImportance, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// PurgeExpired removes entries whose expiry passed. Entries with no expiry
// are kept forever.
func (e *Engine) PurgeExpired(now time.Time) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.db.Exec(`
		DELETE FROM memories WHERE expires_at != '' AND expires_at <= ?
	`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired count: %w", err)
	}
	return n, nil
}

// --- triggers ---

// UpsertTrigger keys on (user, normalized topic): severity only ever grows,
// and a previously deactivated trigger is reactivated.
func (e *Engine) UpsertTrigger(userID, topic, description string, severity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return fmt.Errorf("empty trigger topic")
	}

	_, err := e.db.Exec(`
		INSERT INTO triggers (user_id, topic, description, severity, is_active, last_mentioned_at)
		VALUES (?, ?, ?, ?, 1, datetime('now'))
		ON CONFLICT(user_id, topic) DO UPDATE SET
			severity = max(triggers.severity, excluded.severity),
			is_active = 1,
			last_mentioned_at = datetime('now'),
			description = CASE WHEN excluded.description != '' THEN excluded.description ELSE triggers.description END
	`, userID, topic, strings.TrimSpace(description), severity)
	if err != nil {
		return fmt.Errorf("upsert trigger: %w", err)
	}
	return nil
}

func (e *Engine) ActiveTriggers(userID string) ([]Trigger, error) {
	rows, err := e.db.Query(`
		SELECT id, user_id, topic, description, severity, is_active, last_mentioned_at
		FROM triggers
		WHERE user_id = ? AND is_active = 1
		ORDER BY severity DESC, topic ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	result := make([]Trigger, 0)
	for rows.Next() {
		var t Trigger
		var active int
		if err := rows.Scan(&t.ID, &t.UserID, &t.Topic, &t.Description, &t.Severity, &active, &t.LastMentionedAt); err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		t.IsActive = active == 1
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triggers: %w", err)
	}
	return result, nil
}

func (e *Engine) DeactivateTrigger(userID, topic string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.Exec(`
		UPDATE triggers SET is_active = 0 WHERE user_id = ? AND topic = ?
	`, userID, strings.ToLower(strings.TrimSpace(topic)))
	if err != nil {
		return fmt.Errorf("deactivate trigger: %w", err)
	}
	return nil
}

// --- follow-ups ---

func (e *Engine) CreateFollowUp(f FollowUp) (int64, error) {
	if !f.FollowUpDate.After(f.ScheduledDate) {
		return 0, fmt.Errorf("follow-up date %s not after scheduled date %s",
			formatTime(f.FollowUpDate), formatTime(f.ScheduledDate))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	status := f.Status
	if status == "" {
		status = FollowUpPending
	}
	res, err := e.db.Exec(`
		INSERT INTO followups (user_id, action, context, category, priority, scheduled_date, followup_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, f.UserID, strings.TrimSpace(f.Action), strings.TrimSpace(f.Context),
		string(f.Category), string(f.Priority),
		formatTime(f.ScheduledDate), formatTime(f.FollowUpDate), string(status))
	if err != nil {
		return 0, fmt.Errorf("create followup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create followup id: %w", err)
	}
	return id, nil
}

// DueFollowUps lists pending follow-ups whose ask-time has arrived, across
// all users, oldest first.
func (e *Engine) DueFollowUps(now time.Time) ([]FollowUp, error) {
	rows, err := e.db.Query(`
		SELECT id, user_id, action, context, category, priority, scheduled_date, followup_date, status, outcome, outcome_sentiment
		FROM followups
		WHERE status = 'pending' AND followup_date <= ?
		ORDER BY followup_date ASC
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("query due followups: %w", err)
	}
	defer rows.Close()
	return scanFollowUps(rows)
}

func (e *Engine) PendingFollowUps(userID string) ([]FollowUp, error) {
	rows, err := e.db.Query(`
		SELECT id, user_id, action, context, category, priority, scheduled_date, followup_date, status, outcome, outcome_sentiment
		FROM followups
		WHERE user_id = ? AND status IN ('pending', 'asked')
		ORDER BY followup_date ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query pending followups: %w", err)
	}
	defer rows.Close()
	return scanFollowUps(rows)
}

func (e *Engine) MarkFollowUpAsked(id int64) error {
	return e.updateFollowUpStatus(id, FollowUpAsked)
}

func (e *Engine) CancelFollowUp(id int64) error {
	return e.updateFollowUpStatus(id, FollowUpCancelled)
}

func (e *Engine) updateFollowUpStatus(id int64, status FollowUpStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.Exec(`UPDATE followups SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update followup status: %w", err)
	}
	return nil
}

func (e *Engine) CompleteFollowUp(id int64, outcome, sentiment string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.Exec(`
		UPDATE followups SET status = 'completed', outcome = ?, outcome_sentiment = ? WHERE id = ?
	`, strings.TrimSpace(outcome), strings.TrimSpace(sentiment), id)
	if err != nil {
		return fmt.Errorf("complete followup: %w", err)
	}
	return nil
}

// PostponeFollowUp pushes the ask-time forward and returns the record to
// pending so the next sweep picks it up again.
func (e *Engine) PostponeFollowUp(id int64, newDate time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.Exec(`
		UPDATE followups SET status = 'pending', followup_date = ? WHERE id = ?
	`, formatTime(newDate), id)
	if err != nil {
		return fmt.Errorf("postpone followup: %w", err)
	}
	return nil
}

// --- goals ---

func (e *Engine) CreateGoal(g Goal) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	milestones, err := json.Marshal(g.Milestones)
	if err != nil {
		return 0, fmt.Errorf("marshal milestones: %w", err)
	}
	status := g.Status
	if status == "" {
		status = GoalActive
	}
	category := g.Category
	if category == "" {
		category = "other"
	}
	res, err := e.db.Exec(`
		INSERT INTO goals (user_id, original_goal, category, smart_goal, specific, measurable, achievable, relevant, time_bound,
			deadline, milestones, progress, status, next_check_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.UserID, strings.TrimSpace(g.OriginalGoal), category, strings.TrimSpace(g.SmartGoal),
		g.Specific, g.Measurable, g.Achievable, g.Relevant, g.TimeBound,
		formatTime(g.Deadline), string(milestones), g.Progress, string(status), formatTime(g.NextCheckIn))
	if err != nil {
		return 0, fmt.Errorf("create goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create goal id: %w", err)
	}
	return id, nil
}

func (e *Engine) GetGoal(id int64) (*Goal, error) {
	row := e.db.QueryRow(goalSelect+` WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (e *Engine) ActiveGoals(userID string) ([]Goal, error) {
	rows, err := e.db.Query(goalSelect+` WHERE user_id = ? AND status = 'active' ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query active goals: %w", err)
	}
	defer rows.Close()

	result := make([]Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		result = append(result, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return result, nil
}

// GoalsDueCheckIn lists active goals whose check-in time passed.
func (e *Engine) GoalsDueCheckIn(now time.Time) ([]Goal, error) {
	rows, err := e.db.Query(goalSelect+`
		WHERE status = 'active' AND next_check_in != '' AND next_check_in <= ?
		ORDER BY next_check_in ASC
	`, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("query due goals: %w", err)
	}
	defer rows.Close()

	result := make([]Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due goal: %w", err)
		}
		result = append(result, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due goals: %w", err)
	}
	return result, nil
}

func (e *Engine) UpdateGoal(g *Goal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	milestones, err := json.Marshal(g.Milestones)
	if err != nil {
		return fmt.Errorf("marshal milestones: %w", err)
	}
	_, err = e.db.Exec(`
		UPDATE goals SET smart_goal = ?, specific = ?, measurable = ?, achievable = ?, relevant = ?, time_bound = ?,
			deadline = ?, milestones = ?, progress = ?, status = ?, next_check_in = ?
		WHERE id = ?
	`, g.SmartGoal, g.Specific, g.Measurable, g.Achievable, g.Relevant, g.TimeBound,
		formatTime(g.Deadline), string(milestones), g.Progress, string(g.Status), formatTime(g.NextCheckIn), g.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

// --- conversation log ---

func (e *Engine) LogTurn(userID, role, content string, tags []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = e.db.Exec(`
		INSERT INTO conversations (user_id, role, content, tags)
		VALUES (?, ?, ?, ?)
	`, userID, role, content, string(encoded))
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// RecentTurns returns the last N turns in chronological order.
func (e *Engine) RecentTurns(userID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := e.db.Query(`
		SELECT id, user_id, role, content, tags, created_at
		FROM conversations
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := make([]Turn, 0)
	for rows.Next() {
		var t Turn
		var tags string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Role, &t.Content, &tags, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			t.Tags = nil
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ConversationUserIDs lists every user with logged turns, for sweep jobs.
func (e *Engine) ConversationUserIDs() ([]string, error) {
	rows, err := e.db.Query(`SELECT DISTINCT user_id FROM conversations ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("query conversation users: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conversation user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation users: %w", err)
	}
	return ids, nil
}

// TopTags counts tag occurrences over the user's last 50 turns.
func (e *Engine) TopTags(userID string, limit int) ([]TagCount, error) {
	if limit <= 0 {
		limit = 5
	}
	turns, err := e.RecentTurns(userID, 50)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, turn := range turns {
		for _, tag := range turn.Tags {
			counts[tag]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for tag, count := range counts {
		result = append(result, TagCount{Tag: tag, Count: count})
	}
	// Highest count first; ties break alphabetically for stable output.
	for i := 0; i < len(result); i++ {
		for j := i + 1; j < len(result); j++ {
			if result[j].Count > result[i].Count ||
				(result[j].Count == result[i].Count && result[j].Tag < result[i].Tag) {
				result[i], result[j] = result[j], result[i]
			}
		}
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- scan helpers ---

const goalSelect = `
	SELECT id, user_id, original_goal, category, smart_goal, specific, measurable, achievable, relevant, time_bound,
		deadline, milestones, progress, status, next_check_in
	FROM goals`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*Goal, error) {
	var g Goal
	var deadline, milestones, status, checkIn string
	err := row.Scan(&g.ID, &g.UserID, &g.OriginalGoal, &g.Category, &g.SmartGoal,
		&g.Specific, &g.Measurable, &g.Achievable, &g.Relevant, &g.TimeBound,
		&deadline, &milestones, &g.Progress, &status, &checkIn)
	if err != nil {
		return nil, err
	}
	g.Status = GoalStatus(status)
	g.Deadline = parseTime(deadline)
	g.NextCheckIn = parseTime(checkIn)
	if err := json.Unmarshal([]byte(milestones), &g.Milestones); err != nil {
		g.Milestones = nil
	}
	return &g, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	result := make([]Entry, 0)
	for rows.Next() {
		var entry Entry
		var category string
		if err := rows.Scan(&entry.ID, &entry.UserID, &category, &entry.Content,
			&entry.Importance, &entry.CreatedAt, &entry.UpdatedAt, &entry.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Category = Category(category)
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return result, nil
}

func scanFollowUps(rows *sql.Rows) ([]FollowUp, error) {
	result := make([]FollowUp, 0)
	for rows.Next() {
		var f FollowUp
		var category, priority, status, scheduled, due string
		if err := rows.Scan(&f.ID, &f.UserID, &f.Action, &f.Context, &category, &priority,
			&scheduled, &due, &status, &f.Outcome, &f.OutcomeSentiment); err != nil {
			return nil, fmt.Errorf("scan followup: %w", err)
		}
		f.Category = detect.FollowUpCategory(category)
		f.Priority = detect.FollowUpPriority(priority)
		f.Status = FollowUpStatus(status)
		f.ScheduledDate = parseTime(scheduled)
		f.FollowUpDate = parseTime(due)
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followups: %w", err)
	}
	return result, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
