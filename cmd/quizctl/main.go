// Command quizctl is the Quizify operations CLI.
//
// Usage:
//
//	quizctl migrate
//	quizctl tick
//	quizctl next --user 42
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quizify/quizify-server/internal/config"
	"github.com/quizify/quizify-server/internal/db"
	"github.com/quizify/quizify-server/internal/push"
	"github.com/quizify/quizify-server/internal/quiz"
	"github.com/quizify/quizify-server/internal/scheduler"
	"github.com/quizify/quizify-server/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "quizctl",
		Short: "Quizify operations CLI",
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(tickCmd())
	root.AddCommand(nextCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				start := time.Now()
				if err := store.Migrate(ctx, pool.Pool); err != nil {
					return fmt.Errorf("apply schema: %w", err)
				}
				logger.Info("Schema applied", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// tick command
// --------------------------------------------------------------------------

func tickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run a single scheduler evaluation pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st := store.New(pool.Pool)
				sender := push.NewExpoSender(cfg.ExpoPushURL, logger)
				sched := scheduler.New(st, sender, cfg.SchedulerTick, logger)

				start := time.Now()
				sched.Tick(ctx)
				logger.Info("Tick finished", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// next command
// --------------------------------------------------------------------------

func nextCmd() *cobra.Command {
	var userID int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the question the selector would pick for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st := store.New(pool.Pool)
				questions, err := st.QuestionPool(ctx, userID)
				if err != nil {
					return fmt.Errorf("load question pool: %w", err)
				}
				question, ok := quiz.SelectQuestion(questions)
				if !ok {
					return fmt.Errorf("user %d has no questions", userID)
				}
				out, err := json.MarshalIndent(question, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&userID, "user", 0, "User ID to select for")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, DB connection, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
