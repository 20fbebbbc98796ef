// Package quiz holds the domain model and pure scheduling policy for the
// spaced-repetition notifier: settings defaults, quiet-hours evaluation,
// and weighted question selection.
//
// Everything here is side-effect free; persistence lives in internal/store
// and the tick loop in internal/scheduler.
package quiz

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DefaultIntervalMinutes is the resend interval when settings carry none.
	DefaultIntervalMinutes = 10

	// MinIntervalMinutes is the server-side floor for the resend interval.
	// The client UI caps the slider at 5–10 minutes; the server enforces
	// only the floor so hand-edited rows cannot spam a device.
	MinIntervalMinutes = 5

	// IgnoreThreshold is the number of consecutive unanswered sends that
	// triggers an automatic snooze.
	IgnoreThreshold = 3

	// SnoozeDuration is how long a user is muted after hitting the
	// ignore threshold.
	SnoozeDuration = 60 * time.Minute

	// Default quiet-hours window applied when settings rows carry NULL.
	DefaultQuietStart = "22:00"
	DefaultQuietEnd   = "08:00"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Settings is a user's fully-materialized scheduling state. Nullable
// columns are resolved to defaults once, at scan time, so policy code
// never re-defaults fields.
type Settings struct {
	UserID               int    `json:"user_id"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	QuizIntervalMinutes  int    `json:"quiz_interval_minutes"`
	QuietHoursStart      string `json:"quiet_hours_start"` // "HH:MM", empty disables quiet hours
	QuietHoursEnd        string `json:"quiet_hours_end"`

	LastNotificationAt         *time.Time `json:"last_notification_at"`
	LastNotificationQuestionID *int       `json:"last_notification_question_id"`
	LastNotificationAnswered   bool       `json:"last_notification_answered"`
	ConsecutiveIgnores         int        `json:"consecutive_ignores"`
	SnoozedUntil               *time.Time `json:"snoozed_until"`
}

// Snoozed reports whether sends are currently suppressed by a snooze.
// A nil or past snoozed_until means not snoozed.
func (s *Settings) Snoozed(now time.Time) bool {
	return s.SnoozedUntil != nil && s.SnoozedUntil.After(now)
}

// IntervalElapsed reports whether enough time has passed since the last
// send. A user who was never notified is always past the interval.
func (s *Settings) IntervalElapsed(now time.Time) bool {
	if s.LastNotificationAt == nil {
		return true
	}
	interval := time.Duration(s.QuizIntervalMinutes) * time.Minute
	return now.Sub(*s.LastNotificationAt) >= interval
}

// NormalizeInterval applies the default and the server-side floor.
func NormalizeInterval(minutes int) int {
	if minutes <= 0 {
		return DefaultIntervalMinutes
	}
	if minutes < MinIntervalMinutes {
		return MinIntervalMinutes
	}
	return minutes
}

// Candidate is a user that passed the coarse scheduler prefilter
// (notifications enabled, non-empty push token).
type Candidate struct {
	UserID    int
	PushToken string
	Settings  Settings
}

// Question is one generated multiple-choice question attached to a note.
type Question struct {
	ID            int    `json:"id"`
	NoteID        int    `json:"note_id"`
	Question      string `json:"question"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectAnswer string `json:"correct_answer"`
	TimesShown    int    `json:"times_shown"`
	TimesCorrect  int    `json:"times_correct"`
}

// Accuracy is the historical answer accuracy. Never-shown questions score
// zero so they sort ahead of everything with history.
func (q *Question) Accuracy() float64 {
	if q.TimesShown == 0 {
		return 0
	}
	return float64(q.TimesCorrect) / float64(q.TimesShown)
}

// NotificationBody renders the question and its options for a push body.
func (q *Question) NotificationBody() string {
	return fmt.Sprintf("%s\n\nA) %s\nB) %s\nC) %s\nD) %s",
		q.Question, q.OptionA, q.OptionB, q.OptionC, q.OptionD)
}

// Attempt is one immutable answer event.
type Attempt struct {
	ID             int       `json:"id"`
	UserID         int       `json:"user_id"`
	QuestionID     int       `json:"question_id"`
	SelectedAnswer string    `json:"selected_answer"`
	IsCorrect      bool      `json:"is_correct"`
	AnsweredAt     time.Time `json:"answered_at"`
}

// Stats summarizes a user's answer history.
type Stats struct {
	TotalAttempts int `json:"totalAttempts"`
	CorrectCount  int `json:"correctCount"`
	Accuracy      int `json:"accuracy"` // whole percent
	Streak        int `json:"streak"`   // current run of correct answers
	NotesCount    int `json:"notesCount"`
}
