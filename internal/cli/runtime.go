package cli

import (
	"context"
	"fmt"
	"io"

	appRepos "github.com/yigit/gradebook/internal/app/repositories"
	"github.com/yigit/gradebook/internal/app/repositories/memstore"
	appServices "github.com/yigit/gradebook/internal/app/services"
	"github.com/yigit/gradebook/internal/bootstrap"
	"github.com/yigit/gradebook/internal/grading"
	"github.com/yigit/gradebook/internal/pkg/lock"
	"github.com/yigit/gradebook/internal/seed"
)

// OpenDatabaseRuntime connects to PostgreSQL (and redis when enabled) as
// described by the config file.
func OpenDatabaseRuntime(_ context.Context, configPath string, logs io.Writer) (*Runtime, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath, "gradectl", logs)
	if err != nil {
		return nil, err
	}

	pool, err := bootstrap.ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	locker, client, err := bootstrap.SetupLocker(cfg, lgr)
	if err != nil {
		pool.Close()
		return nil, err
	}

	repos := appRepos.NewRepositories(pool)
	svc := appServices.NewGradingService(
		repos.OfferingRepository,
		repos.ScoreRecordRepository,
		locker,
		bootstrap.GradingOptions(cfg),
		lgr,
	)

	return &Runtime{
		Service: svc,
		Migrate: func(ctx context.Context) (int, error) {
			return bootstrap.RunMigrations(ctx, cfg, pool, lgr)
		},
		Seed: func(ctx context.Context) (int, error) {
			return bootstrap.SeedDemoData(ctx, repos, lgr)
		},
		Close: func() {
			if client != nil {
				_ = client.Close()
			}
			pool.Close()
		},
	}, nil
}

// OpenMemoryRuntime serves the commands from an in-memory store loaded with
// the demo data set. Nothing outlives the process, so publishes only show
// what would happen.
func OpenMemoryRuntime(ctx context.Context, configPath string, logs io.Writer) (*Runtime, error) {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath, "gradectl", logs)
	if err != nil {
		return nil, err
	}

	store := memstore.New()
	if _, err := seed.CreateDefaultData(ctx, store, store, lgr); err != nil {
		return nil, fmt.Errorf("loading demo data: %w", err)
	}

	opts := bootstrap.GradingOptions(cfg)
	var records grading.Repository = store
	if opts.AtomicPublish {
		records = store.Atomic()
	}
	lgr.Info().Msg("Using in-memory store with demo data")

	return &Runtime{
		Service: appServices.NewGradingService(store, records, lock.NewLocalLocker(), opts, lgr),
		Seed: func(ctx context.Context) (int, error) {
			return seed.CreateDefaultData(ctx, store, store, lgr)
		},
	}, nil
}
