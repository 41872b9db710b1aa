// Command degenerate applies the daily starvation rule to every pet. It is
// meant to be invoked by an external cron job shortly after midnight in the
// economy timezone.
//
// With DATABASE_DSN set it talks to PostgreSQL and locks each row while it
// rewrites it. Without it, it falls back to the hosted REST API using the
// service-role key.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/hideout-backend/internal/adapter/postgres"
	"github.com/heartmarshall/hideout-backend/internal/adapter/postgres/student"
	"github.com/heartmarshall/hideout-backend/internal/adapter/supabase"
	"github.com/heartmarshall/hideout-backend/internal/app"
	"github.com/heartmarshall/hideout-backend/internal/app/degenerate"
	"github.com/heartmarshall/hideout-backend/internal/config"
	"github.com/heartmarshall/hideout-backend/internal/domain"
	"github.com/heartmarshall/hideout-backend/internal/metrics"
)

type flags struct {
	date       string
	dryRun     bool
	timeout    time.Duration
	migrations string
}

func main() {
	var f flags

	cmd := &cobra.Command{
		Use:           "degenerate",
		Short:         "Apply the starvation rule to every pet",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.date, "date", "", "calendar day to evaluate (YYYY-MM-DD); defaults to today in the economy timezone")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 10*time.Minute, "abort the run after this long")
	cmd.Flags().StringVar(&f.migrations, "migrate", "", "apply goose migrations from this directory first (local databases only)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Printf("degenerate: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	today := domain.DateOf(time.Now(), cfg.Economy.Location)
	if f.date != "" {
		if today, err = domain.ParseDate(f.date); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}

	store, tx, closeStore, err := openStore(ctx, cfg, f.migrations, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	job := degenerate.New(logger, store, tx, degenerate.Options{
		Today:     today,
		Threshold: cfg.Economy.DegenerationDays,
		BatchSize: cfg.Economy.DegenerationBatch,
		Workers:   cfg.Economy.DegenerationJobs,
		DryRun:    f.dryRun,
	}, metrics.New())

	res, err := job.Run(ctx)
	if err != nil {
		logger.Error("degeneration failed",
			slog.String("error", err.Error()),
			slog.Int("scanned", res.Scanned),
			slog.Int("failed", res.Failed),
		)
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, migrations string, logger *slog.Logger) (degenerate.Store, degenerate.TxManager, func(), error) {
	if cfg.Database.DSN == "" {
		if cfg.Supabase.ServiceRoleKey == "" {
			return nil, nil, nil, fmt.Errorf("either DATABASE_DSN or SUPABASE_SERVICE_ROLE_KEY is required")
		}
		logger.Warn("no database DSN, using the REST API without row locks")
		api := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey, cfg.Supabase.RequestTimeout, logger).
			WithServiceRole(cfg.Supabase.ServiceRoleKey)
		return degenerate.NewAPIStore(api), degenerate.NoTx{}, func() {}, nil
	}

	if migrations != "" {
		if err := migrate(ctx, cfg.Database.DSN, migrations, logger); err != nil {
			return nil, nil, nil, err
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.Database, "hideout-degenerate")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return student.New(pool), postgres.NewTxManager(pool, cfg.Database.LockTimeout), pool.Close, nil
}

func migrate(ctx context.Context, dsn, dir string, logger *slog.Logger) error {
	applied, err := postgres.Migrate(ctx, dsn, os.DirFS(dir))
	if err != nil {
		return err
	}
	logger.Info("migrations applied", slog.Int("count", len(applied)), slog.Any("sources", applied))
	return nil
}
