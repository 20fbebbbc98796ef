// Package store is the Postgres repository for users, settings, notes,
// questions, and quiz attempts. All statements are prepared at connection
// time in internal/db; methods reference them by name.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizify/quizify-server/internal/quiz"
)

// ErrNotFound is returned when a requested row does not exist or is not
// visible to the requesting user.
var ErrNotFound = errors.New("not found")

// Postgres implements persistence over a pgxpool connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// New creates a Postgres store.
func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// --------------------------------------------------------------------------
// Scheduler reads and writes
// --------------------------------------------------------------------------

// ListCandidates returns users that pass the coarse prefilter:
// notifications enabled and a non-empty push token. Fine-grained checks
// (snooze, quiet hours, interval) happen per user in the scheduler.
func (p *Postgres) ListCandidates(ctx context.Context) ([]quiz.Candidate, error) {
	rows, err := p.pool.Query(ctx, "list_candidates")
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []quiz.Candidate
	for rows.Next() {
		var (
			c       quiz.Candidate
			userID  int
			token   string
			enabled *bool
		)
		var (
			interval   *int
			quietStart *string
			quietEnd   *string
			answered   *bool
			ignores    *int
		)
		if err := rows.Scan(
			&userID, &token, &enabled, &interval, &quietStart, &quietEnd,
			&c.Settings.LastNotificationAt, &c.Settings.LastNotificationQuestionID,
			&answered, &ignores, &c.Settings.SnoozedUntil,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.UserID = userID
		c.PushToken = token
		c.Settings.UserID = userID
		materializeSettings(&c.Settings, enabled, interval, quietStart, quietEnd, answered, ignores)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// BumpIgnores writes an incremented consecutive-ignore count. The update
// is conditional on the unanswered send still being the one the scheduler
// read (optimistic guard on last_notification_question_id); it reports
// whether the penalty was actually applied.
func (p *Postgres) BumpIgnores(ctx context.Context, userID, ignores int, lastQuestionID *int) (bool, error) {
	tag, err := p.pool.Exec(ctx, "bump_ignores", userID, ignores, lastQuestionID)
	if err != nil {
		return false, fmt.Errorf("bump ignores: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Snooze suppresses all sends for a user until the given time and resets
// the consecutive-ignore counter.
func (p *Postgres) Snooze(ctx context.Context, userID int, until time.Time) error {
	if _, err := p.pool.Exec(ctx, "snooze_user", userID, until); err != nil {
		return fmt.Errorf("snooze user: %w", err)
	}
	return nil
}

// MarkSent records a successful delivery: timestamps the send, remembers
// the question, and flags it unanswered until the answer event arrives.
func (p *Postgres) MarkSent(ctx context.Context, userID, questionID int, at time.Time) error {
	if _, err := p.pool.Exec(ctx, "mark_sent", userID, at, questionID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Questions
// --------------------------------------------------------------------------

// QuestionPool returns every generated question across a user's notes.
func (p *Postgres) QuestionPool(ctx context.Context, userID int) ([]quiz.Question, error) {
	rows, err := p.pool.Query(ctx, "question_pool", userID)
	if err != nil {
		return nil, fmt.Errorf("question pool: %w", err)
	}
	defer rows.Close()

	var pool []quiz.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		pool = append(pool, q)
	}
	return pool, rows.Err()
}

// QuestionOwned returns a question only if it belongs to a note owned by
// the given user. Returns ErrNotFound otherwise.
func (p *Postgres) QuestionOwned(ctx context.Context, questionID, userID int) (quiz.Question, error) {
	q, err := scanQuestion(p.pool.QueryRow(ctx, "question_owned", questionID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return quiz.Question{}, ErrNotFound
	}
	return q, err
}

func scanQuestion(row rowScanner) (quiz.Question, error) {
	var q quiz.Question
	var shown, correct *int
	err := row.Scan(
		&q.ID, &q.NoteID, &q.Question,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectAnswer, &shown, &correct,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quiz.Question{}, err
		}
		return quiz.Question{}, fmt.Errorf("scan question: %w", err)
	}
	if shown != nil {
		q.TimesShown = *shown
	}
	if correct != nil {
		q.TimesCorrect = *correct
	}
	return q, nil
}

// --------------------------------------------------------------------------
// Attempts
// --------------------------------------------------------------------------

// RecordAttempt inserts an attempt row and bumps the question's shown
// (and, if correct, correct) counters in one transaction.
func (p *Postgres) RecordAttempt(ctx context.Context, userID, questionID int, selected string, isCorrect bool) (quiz.Attempt, error) {
	attempt := quiz.Attempt{
		UserID:         userID,
		QuestionID:     questionID,
		SelectedAnswer: selected,
		IsCorrect:      isCorrect,
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return quiz.Attempt{}, fmt.Errorf("begin attempt tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, "insert_attempt", userID, questionID, selected, isCorrect).
		Scan(&attempt.ID, &attempt.AnsweredAt)
	if err != nil {
		return quiz.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	if _, err := tx.Exec(ctx, "bump_question_counters", questionID, isCorrect); err != nil {
		return quiz.Attempt{}, fmt.Errorf("bump question counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return quiz.Attempt{}, fmt.Errorf("commit attempt tx: %w", err)
	}
	return attempt, nil
}

// ResetEngagement marks the last notification answered and clears the
// consecutive-ignore counter. Called from the answer-submission path; the
// scheduler itself never sets last_notification_answered back to true.
func (p *Postgres) ResetEngagement(ctx context.Context, userID int) error {
	if _, err := p.pool.Exec(ctx, "reset_engagement", userID); err != nil {
		return fmt.Errorf("reset engagement: %w", err)
	}
	return nil
}

// Stats aggregates a user's attempt history: totals, whole-percent
// accuracy, current correct streak, and note count.
func (p *Postgres) Stats(ctx context.Context, userID int) (quiz.Stats, error) {
	var s quiz.Stats

	rows, err := p.pool.Query(ctx, "attempt_history", userID)
	if err != nil {
		return s, fmt.Errorf("attempt history: %w", err)
	}
	defer rows.Close()

	streakBroken := false
	for rows.Next() {
		var correct bool
		if err := rows.Scan(&correct); err != nil {
			return s, fmt.Errorf("scan attempt: %w", err)
		}
		s.TotalAttempts++
		if correct {
			s.CorrectCount++
			if !streakBroken {
				s.Streak++
			}
		} else {
			streakBroken = true
		}
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	if s.TotalAttempts > 0 {
		s.Accuracy = int(float64(s.CorrectCount)/float64(s.TotalAttempts)*100 + 0.5)
	}

	if err := p.pool.QueryRow(ctx, "notes_count", userID).Scan(&s.NotesCount); err != nil {
		return s, fmt.Errorf("notes count: %w", err)
	}
	return s, nil
}

// --------------------------------------------------------------------------
// Settings
// --------------------------------------------------------------------------

// SettingsPatch carries partial settings updates; nil fields are left
// untouched.
type SettingsPatch struct {
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	QuizIntervalMinutes  *int    `json:"quiz_interval_minutes"`
	QuietHoursStart      *string `json:"quiet_hours_start"`
	QuietHoursEnd        *string `json:"quiet_hours_end"`
}

// GetOrCreateSettings returns a user's settings, creating the defaulted
// row on first access.
func (p *Postgres) GetOrCreateSettings(ctx context.Context, userID int) (quiz.Settings, error) {
	s, err := p.settingsByUser(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return quiz.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	if _, err := p.pool.Exec(ctx, "insert_default_settings", userID); err != nil {
		return quiz.Settings{}, fmt.Errorf("create settings: %w", err)
	}
	s, err = p.settingsByUser(ctx, userID)
	if err != nil {
		return quiz.Settings{}, fmt.Errorf("reload settings: %w", err)
	}
	return s, nil
}

// UpdateSettings applies a partial update and returns the materialized
// result. The row is created first if the user never had one.
func (p *Postgres) UpdateSettings(ctx context.Context, userID int, patch SettingsPatch) (quiz.Settings, error) {
	if _, err := p.GetOrCreateSettings(ctx, userID); err != nil {
		return quiz.Settings{}, err
	}
	_, err := p.pool.Exec(ctx, "update_settings", userID,
		patch.NotificationsEnabled, patch.QuizIntervalMinutes,
		patch.QuietHoursStart, patch.QuietHoursEnd)
	if err != nil {
		return quiz.Settings{}, fmt.Errorf("update settings: %w", err)
	}
	s, err := p.settingsByUser(ctx, userID)
	if err != nil {
		return quiz.Settings{}, fmt.Errorf("reload settings: %w", err)
	}
	return s, nil
}

// SetPushToken stores the device push token for a user.
func (p *Postgres) SetPushToken(ctx context.Context, userID int, token string) error {
	tag, err := p.pool.Exec(ctx, "set_push_token", userID, token)
	if err != nil {
		return fmt.Errorf("set push token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) settingsByUser(ctx context.Context, userID int) (quiz.Settings, error) {
	var (
		s          quiz.Settings
		enabled    *bool
		interval   *int
		quietStart *string
		quietEnd   *string
		answered   *bool
		ignores    *int
	)
	err := p.pool.QueryRow(ctx, "settings_by_user", userID).Scan(
		&s.UserID, &enabled, &interval, &quietStart, &quietEnd,
		&s.LastNotificationAt, &s.LastNotificationQuestionID,
		&answered, &ignores, &s.SnoozedUntil,
	)
	if err != nil {
		return quiz.Settings{}, err
	}
	materializeSettings(&s, enabled, interval, quietStart, quietEnd, answered, ignores)
	return s, nil
}

// materializeSettings resolves nullable columns into a fully-populated
// Settings exactly once, so policy code never re-defaults fields. Defaults
// match the schema: notifications on, 10 minute interval (floored at 5
// server-side), quiet hours 22:00–08:00, last notification counted as
// answered so a never-notified user is not penalized.
func materializeSettings(s *quiz.Settings, enabled *bool, interval *int, quietStart, quietEnd *string, answered *bool, ignores *int) {
	s.NotificationsEnabled = enabled == nil || *enabled

	intervalMinutes := 0
	if interval != nil {
		intervalMinutes = *interval
	}
	s.QuizIntervalMinutes = quiz.NormalizeInterval(intervalMinutes)

	s.QuietHoursStart = quiz.DefaultQuietStart
	if quietStart != nil {
		s.QuietHoursStart = *quietStart
	}
	s.QuietHoursEnd = quiz.DefaultQuietEnd
	if quietEnd != nil {
		s.QuietHoursEnd = *quietEnd
	}

	s.LastNotificationAnswered = answered == nil || *answered
	if ignores != nil {
		s.ConsecutiveIgnores = *ignores
	}
}
