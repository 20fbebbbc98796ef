// Package scheduler drives the periodic quiz-notification pipeline.
//
// Each tick: coarse candidate prefilter → snooze check → quiet hours →
// resend interval → ignore penalty → question selection → push delivery →
// persist send state. Users are processed sequentially; a failure for one
// user is logged and skipped without aborting the tick. There are no
// retries — the next tick is the retry.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizify/quizify-server/internal/quiz"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// DefaultTickPeriod is the timer period between scheduling passes.
	DefaultTickPeriod = 60 * time.Second

	notificationTitle = "Quizify"
)

// --------------------------------------------------------------------------
// Collaborator interfaces
// --------------------------------------------------------------------------

// Store is the persistence surface the scheduler needs. Implemented by
// store.Postgres.
type Store interface {
	ListCandidates(ctx context.Context) ([]quiz.Candidate, error)
	BumpIgnores(ctx context.Context, userID, ignores int, lastQuestionID *int) (bool, error)
	Snooze(ctx context.Context, userID int, until time.Time) error
	QuestionPool(ctx context.Context, userID int) ([]quiz.Question, error)
	MarkSent(ctx context.Context, userID, questionID int, at time.Time) error
}

// Sender delivers one push notification. A returned error means "not
// sent"; the scheduler leaves state untouched so the user stays eligible
// next tick. Implemented by push.ExpoSender.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]any) error
}

// --------------------------------------------------------------------------
// Scheduler
// --------------------------------------------------------------------------

// Scheduler owns the tick loop. Create with New, start with Run (usually
// in a goroutine), stop by cancelling the context. Tick is exported so the
// CLI and tests can drive single passes without the timer.
type Scheduler struct {
	store  Store
	sender Sender
	logger *slog.Logger
	period time.Duration
	now    func() time.Time
}

// New creates a Scheduler. A non-positive period falls back to the
// default 60 seconds.
func New(store Store, sender Sender, period time.Duration, logger *slog.Logger) *Scheduler {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	return &Scheduler{
		store:  store,
		sender: sender,
		logger: logger,
		period: period,
		now:    time.Now,
	}
}

// Run fires one tick immediately, then on the fixed period until ctx is
// cancelled. Ticks run to completion sequentially; the period is assumed
// much larger than one tick's processing time. Intended to be called
// with `go`.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("notification scheduler started", "period", s.period)
	s.Tick(ctx)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			s.logger.Info("notification scheduler stopped")
			return
		}
	}
}

// Tick runs one full scheduling pass over all candidates. Top-level
// failures (the prefilter query) are logged and the pass is abandoned;
// the next timer fire starts fresh.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		s.logger.Error("candidate query failed", "error", err)
		return
	}
	if len(candidates) == 0 {
		return
	}
	s.logger.Info("processing notification candidates", "count", len(candidates))

	sent := 0
	for _, c := range candidates {
		delivered, err := s.processUser(ctx, now, c)
		if err != nil {
			s.logger.Warn("candidate processing failed", "user_id", c.UserID, "error", err)
			continue
		}
		if delivered {
			sent++
		}
	}
	if sent > 0 {
		s.logger.Info("tick complete", "sent", sent)
	}
}

// processUser evaluates one candidate and reports whether a notification
// was delivered. Checks mirror the eligibility contract: the snooze and
// quiet-hours/interval gates short-circuit with no state mutation; the
// ignore penalty is the only write that can happen on a skipped tick.
func (s *Scheduler) processUser(ctx context.Context, now time.Time, c quiz.Candidate) (bool, error) {
	set := &c.Settings

	// Prefilter re-checks; cheap, and candidates can be synthesized by
	// callers other than ListCandidates.
	if !set.NotificationsEnabled || c.PushToken == "" {
		return false, nil
	}

	if set.Snoozed(now) {
		s.logger.Debug("user snoozed", "user_id", c.UserID, "until", set.SnoozedUntil)
		return false, nil
	}

	if quiz.IsQuietNow(quiz.ClockMinutes(now), set.QuietHoursStart, set.QuietHoursEnd) {
		s.logger.Debug("user in quiet hours", "user_id", c.UserID)
		return false, nil
	}

	if !set.IntervalElapsed(now) {
		return false, nil
	}

	// A send is due and the previous one was never answered: accumulate
	// toward the snooze threshold. Reaching the threshold snoozes the user
	// and ends this tick; otherwise the penalty is recorded and the send
	// still goes ahead.
	if set.LastNotificationAt != nil && !set.LastNotificationAnswered {
		ignores := set.ConsecutiveIgnores + 1
		if ignores >= quiz.IgnoreThreshold {
			if err := s.store.Snooze(ctx, c.UserID, now.Add(quiz.SnoozeDuration)); err != nil {
				return false, fmt.Errorf("snooze: %w", err)
			}
			s.logger.Info("user snoozed after consecutive ignores",
				"user_id", c.UserID, "ignores", ignores, "duration", quiz.SnoozeDuration)
			return false, nil
		}

		applied, err := s.store.BumpIgnores(ctx, c.UserID, ignores, set.LastNotificationQuestionID)
		if err != nil {
			return false, fmt.Errorf("bump ignores: %w", err)
		}
		if applied {
			s.logger.Info("last notification ignored", "user_id", c.UserID, "consecutive", ignores)
		}
		// Not applied means an answer landed between our read and write;
		// the penalty is dropped and the send proceeds normally.
	}

	pool, err := s.store.QuestionPool(ctx, c.UserID)
	if err != nil {
		return false, fmt.Errorf("question pool: %w", err)
	}
	question, ok := quiz.SelectQuestion(pool)
	if !ok {
		// Nothing to send this round; not an error.
		return false, nil
	}

	data := map[string]any{
		"questionId":     question.ID,
		"correct_answer": question.CorrectAnswer,
	}
	if err := s.sender.Send(ctx, c.PushToken, notificationTitle, question.NotificationBody(), data); err != nil {
		// Treated as "did not send": no state mutated, eligible next tick.
		s.logger.Warn("push delivery failed",
			"user_id", c.UserID, "question_id", question.ID, "error", err)
		return false, nil
	}

	if err := s.store.MarkSent(ctx, c.UserID, question.ID, now); err != nil {
		return false, fmt.Errorf("mark sent: %w", err)
	}
	s.logger.Info("notification sent", "user_id", c.UserID, "question_id", question.ID)
	return true, nil
}
