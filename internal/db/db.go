// Package db provides a pgxpool-based connection pool with prepared
// statement registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizify/quizify-server/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and
// scheduler use. Prepared statements eliminate parse overhead on every
// tick and request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Scheduler: coarse candidate prefilter (enabled + non-empty token)
		"list_candidates": `
			SELECT u.id, u.push_token,
			       s.notifications_enabled, s.quiz_interval_minutes,
			       s.quiet_hours_start, s.quiet_hours_end,
			       s.last_notification_at, s.last_notification_question_id,
			       s.last_notification_answered, s.consecutive_ignores,
			       s.snoozed_until
			FROM users u
			JOIN user_settings s ON s.user_id = u.id
			WHERE s.notifications_enabled = true
			  AND u.push_token IS NOT NULL
			  AND u.push_token != ''`,

		// Scheduler: engagement writes. bump_ignores is conditional on the
		// last sent question still being the unanswered one, so a racing
		// answer submission drops the penalty instead of losing the reset.
		"bump_ignores": `
			UPDATE user_settings SET consecutive_ignores = $2
			WHERE user_id = $1
			  AND last_notification_answered = false
			  AND last_notification_question_id IS NOT DISTINCT FROM $3`,
		"snooze_user": `
			UPDATE user_settings
			SET consecutive_ignores = 0, snoozed_until = $2
			WHERE user_id = $1`,
		"mark_sent": `
			UPDATE user_settings
			SET last_notification_at = $2,
			    last_notification_question_id = $3,
			    last_notification_answered = false
			WHERE user_id = $1`,

		// Questions
		"question_pool": `
			SELECT q.id, q.note_id, q.question,
			       q.option_a, q.option_b, q.option_c, q.option_d,
			       q.correct_answer, q.times_shown, q.times_correct
			FROM note_questions q
			JOIN notes n ON n.id = q.note_id
			WHERE n.user_id = $1`,
		"question_owned": `
			SELECT q.id, q.note_id, q.question,
			       q.option_a, q.option_b, q.option_c, q.option_d,
			       q.correct_answer, q.times_shown, q.times_correct
			FROM note_questions q
			JOIN notes n ON n.id = q.note_id
			WHERE q.id = $1 AND n.user_id = $2`,
		"bump_question_counters": `
			UPDATE note_questions
			SET times_shown = times_shown + 1,
			    times_correct = times_correct + CASE WHEN $2 THEN 1 ELSE 0 END
			WHERE id = $1`,

		// Attempts
		"insert_attempt": `
			INSERT INTO quiz_attempts (user_id, question_id, selected_answer, is_correct)
			VALUES ($1, $2, $3, $4)
			RETURNING id, answered_at`,
		"attempt_history": `
			SELECT is_correct FROM quiz_attempts
			WHERE user_id = $1
			ORDER BY answered_at DESC, id DESC`,
		"notes_count": "SELECT COUNT(*) FROM notes WHERE user_id = $1",

		// Settings
		"settings_by_user": `
			SELECT user_id, notifications_enabled, quiz_interval_minutes,
			       quiet_hours_start, quiet_hours_end,
			       last_notification_at, last_notification_question_id,
			       last_notification_answered, consecutive_ignores, snoozed_until
			FROM user_settings
			WHERE user_id = $1`,
		"insert_default_settings": `
			INSERT INTO user_settings (user_id)
			VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING`,
		"update_settings": `
			UPDATE user_settings SET
			  notifications_enabled = COALESCE($2, notifications_enabled),
			  quiz_interval_minutes = COALESCE($3, quiz_interval_minutes),
			  quiet_hours_start = COALESCE($4, quiet_hours_start),
			  quiet_hours_end = COALESCE($5, quiet_hours_end)
			WHERE user_id = $1`,
		"reset_engagement": `
			UPDATE user_settings
			SET last_notification_answered = true, consecutive_ignores = 0
			WHERE user_id = $1`,
		"set_push_token": "UPDATE users SET push_token = $2 WHERE id = $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
