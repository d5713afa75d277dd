package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/gradebook/internal/app/controllers"
	appMigrations "github.com/yigit/gradebook/internal/app/migrations"
	appRepos "github.com/yigit/gradebook/internal/app/repositories"
	appRoutes "github.com/yigit/gradebook/internal/app/routes"
	appServices "github.com/yigit/gradebook/internal/app/services"
	"github.com/yigit/gradebook/internal/config"
	"github.com/yigit/gradebook/internal/db"
	appMiddleware "github.com/yigit/gradebook/internal/middleware"
	"github.com/yigit/gradebook/internal/pkg/lock"
	"github.com/yigit/gradebook/internal/pkg/logger"
	"github.com/yigit/gradebook/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos             *appRepos.Repositories
	Locker            lock.Locker
	Redis             *redis.Client // nil when redis locking is disabled
	GradingService    appServices.GradingService
	GradingController *appControllers.GradingController
	Logger            zerolog.Logger
}

// Close releases the resources owned by the dependencies.
func (d *Dependencies) Close() error {
	if d.Redis != nil {
		return d.Redis.Close()
	}
	return nil
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
// Logs go to output, stdout when nil.
func LoadConfigAndSetupLogger(configPath, component string, output io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath, ".env")
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logCfg := logger.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	logCfg.Component = component
	logCfg.Output = output
	lgr := logger.Configure(logCfg)

	lgr.Debug().Str("logLevel", string(logCfg.Level)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase establishes the database connection.
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database.Pool, nil
}

// RunMigrations applies the SQL files of the configured migrations directory.
func RunMigrations(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (int, error) {
	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return 0, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	applied, err := appMigrations.NewMigrator(dbPool, lgr).MigrateFromDirectory(ctx, migrationsDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return applied, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Int("applied", applied).Msg("Database migrations successfully applied.")
	return applied, nil
}

// SeedDemoData writes the demo data set through the repositories.
func SeedDemoData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) (int, error) {
	return seed.CreateDefaultData(ctx, repos.OfferingRepository, repos.ScoreRecordRepository, lgr)
}

// SetupDatabase connects, migrates and, when configured, seeds the database.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	dbPool, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	if _, err := RunMigrations(ctx, cfg, dbPool, lgr); err != nil {
		dbPool.Close()
		return nil, err
	}

	if cfg.Database.Seed {
		if _, err := SeedDemoData(ctx, appRepos.NewRepositories(dbPool), lgr); err != nil {
			// Demo data is optional
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// SetupLocker picks the publish lock backend. With redis disabled the lock
// only covers this process.
func SetupLocker(cfg *config.Config, lgr zerolog.Logger) (lock.Locker, *redis.Client, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Using in-process publish lock")
		return lock.NewLocalLocker(), nil, nil
	}

	client, err := db.NewRedisClient(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to redis")
		return nil, nil, err
	}
	lgr.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.LockTTL()).Msg("Using redis publish lock")
	return lock.NewRedisLocker(client, cfg.LockTTL()), client, nil
}

// GradingOptions maps the grading section of the configuration.
func GradingOptions(cfg *config.Config) appServices.GradingOptions {
	opts := appServices.DefaultGradingOptions()
	opts.StatusPolicy = cfg.StatusPolicy()
	if cfg.Grading.AnomalyPolicy != "" {
		opts.AnomalyPolicy = cfg.Grading.AnomalyPolicy
	}
	opts.AtomicPublish = cfg.Grading.AtomicPublish
	return opts
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	locker, client, err := SetupLocker(cfg, lgr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up publish lock: %w", err)
	}
	deps.Locker = locker
	deps.Redis = client

	opts := GradingOptions(cfg)
	deps.GradingService = appServices.NewGradingService(
		deps.Repos.OfferingRepository,
		deps.Repos.ScoreRecordRepository,
		deps.Locker,
		opts,
		lgr.With().Str("component", "grading").Logger(),
	)
	deps.GradingController = appControllers.NewGradingController(deps.GradingService, lgr)

	lgr.Info().
		Str("anomalyPolicy", opts.AnomalyPolicy).
		Str("statusPolicy", string(opts.StatusPolicy)).
		Bool("atomicPublish", opts.AtomicPublish).
		Msg("Grading service ready")

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestID(),
		appMiddleware.RequestLogger(lgr),
	)

	appRoutes.SetupRouter(router, deps.GradingController)

	return router
}
