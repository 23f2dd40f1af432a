// Package bootstrap assembles the FAQ engine from configuration. Both the
// API server and the CLI build their components here.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/spherical-ai/spherical/libs/faq-engine/internal/assistant"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/cache"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/intent"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/knowledge"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/ratelimit"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/similarity"
	"github.com/spherical-ai/spherical/libs/faq-engine/internal/storage"
)

// Options adjusts how the application is built.
type Options struct {
	// Logger overrides the logger built from configuration.
	Logger *observability.Logger
	// Generator overrides the configured generation provider.
	Generator generation.Client
	// SkipMigrations leaves the schema untouched.
	SkipMigrations bool
}

// App holds every wired component.
type App struct {
	Config    *config.Config
	Logger    *observability.Logger
	DB        *sql.DB
	Repos     *storage.Repositories
	Cache     cache.Store
	Knowledge *knowledge.Store
	Index     *similarity.Index
	Limiter   *ratelimit.Limiter
	Generator generation.Client
	Engine    *assistant.Engine

	watcher    *knowledge.SeedWatcher
	limitRedis *redis.Client
	closeOnce  sync.Once
}

// New builds the application described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: cfg.Observability.ServiceName,
		})
	}

	app := &App{Config: cfg, Logger: logger}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = db

	if !opts.SkipMigrations {
		applied, err := storage.NewMigrationManager(db, cfg.Database.Driver).Migrate(ctx)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if applied > 0 {
			logger.Info().Int("applied", applied).Msg("Database migrations applied")
		}
	}

	app.Repos = storage.NewRepositories(db)

	app.Cache, err = newCache(cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	// Answers are cached only when redis carries change events between
	// processes sharing the database.
	shared := cfg.Cache.Driver == "redis"
	storeCfg := knowledge.Config{
		Broker:   app.Cache,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	}
	if shared {
		storeCfg.Cache = app.Cache
	}
	app.Knowledge = knowledge.NewStore(app.Repos.Knowledge, storeCfg)

	app.Index = similarity.NewIndex(app.Knowledge, cfg.Matching.FuzzyVerifiedOnly)
	if !shared {
		app.Index.Volatile()
	}
	app.Knowledge.OnChange(func(knowledge.ChangeEvent) { app.Index.Invalidate() })

	limitStore, err := newLimitStore(cfg, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Limiter = ratelimit.NewLimiter(limitStore, ratelimit.Config{
		DailyLimit: cfg.RateLimit.DailyLimit,
		Location:   cfg.Location(),
		Logger:     logger,
	})

	app.Generator = opts.Generator
	if app.Generator == nil {
		app.Generator = newGenerator(cfg, logger)
	}

	app.Engine, err = assistant.NewEngine(assistant.Config{
		Classifier: intent.NewClassifier(nil),
		Store:      app.Knowledge,
		Index:      app.Index,
		Limiter:    app.Limiter,
		Generator:  app.Generator,
		Recorder:   app.Repos.ChatLogs,
		Fuzzy: assistant.FuzzyConfig{
			Enabled:      cfg.Matching.FuzzyEnabled,
			Threshold:    cfg.Matching.FuzzyThreshold,
			VerifiedOnly: cfg.Matching.FuzzyVerifiedOnly,
		},
		Logger: logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("build assistant: %w", err)
	}

	return app, nil
}

// Start runs the background followers: cross-process knowledge invalidation,
// the initial seed import and, when configured, the seed file watcher. They
// stop when ctx ends.
func (a *App) Start(ctx context.Context) error {
	if err := a.Knowledge.Follow(ctx); err != nil {
		return err
	}

	path := a.Config.Knowledge.SeedPath
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := a.Knowledge.ImportFile(ctx, path, nil); err != nil {
			return fmt.Errorf("import seed file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat seed file: %w", err)
	} else {
		a.Logger.Warn().Str("path", path).Msg("Knowledge seed file not found")
	}

	if !a.Config.Knowledge.WatchSeed {
		return nil
	}

	watcher, err := knowledge.NewSeedWatcher(a.Knowledge, path, a.Logger)
	if err != nil {
		return err
	}
	a.watcher = watcher
	go func() {
		if err := watcher.Run(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("Seed watcher stopped")
		}
	}()
	return nil
}

// Ready checks that the database answers.
func (a *App) Ready(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// Close releases every resource. It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.watcher != nil {
			errs = append(errs, a.watcher.Stop())
		}
		if a.limitRedis != nil {
			errs = append(errs, a.limitRedis.Close())
		}
		if a.Cache != nil {
			errs = append(errs, a.Cache.Close())
		}
		if a.DB != nil {
			errs = append(errs, a.DB.Close())
		}
	})
	return errors.Join(errs...)
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	opts := storage.Options{Driver: cfg.Database.Driver, DSN: cfg.DatabaseDSN()}
	if cfg.Database.Driver == "postgres" {
		opts.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
		opts.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
		opts.ConnMaxLifetime = cfg.Database.Postgres.ConnMaxLifetime
	} else {
		opts.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
		opts.JournalMode = cfg.Database.SQLite.JournalMode
	}

	db, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newCache(cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Driver != "redis" {
		return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
	}

	rc, err := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		PoolSize: cfg.Cache.Redis.PoolSize,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return rc, nil
}

func newLimitStore(cfg *config.Config, app *App) (ratelimit.Store, error) {
	switch cfg.RateLimit.Backend {
	case "memory":
		return ratelimit.NewMemoryStore(), nil
	case "redis":
		if rc, ok := app.Cache.(*cache.RedisClient); ok {
			return ratelimit.NewRedisStore(rc.Redis(), rc.Prefix()), nil
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		app.limitRedis = client
		return ratelimit.NewRedisStore(client, cfg.Cache.Redis.Prefix), nil
	default:
		return app.Repos.RateLimits, nil
	}
}

func newGenerator(cfg *config.Config, logger *observability.Logger) generation.Client {
	gc := generation.Config{
		Provider: cfg.Generation.Provider,
		Model:    cfg.Generation.Model,
		APIKey:   cfg.GenerationAPIKey(),
		Timeout:  cfg.Generation.Timeout,
	}
	switch cfg.Generation.Provider {
	case "gemini":
		gc.BaseURL = cfg.Generation.Gemini.BaseURL
	case "openai":
		gc.BaseURL = cfg.Generation.OpenAI.BaseURL
	}

	if cfg.Generation.Provider != "disabled" && gc.APIKey == "" {
		logger.Warn().
			Str("provider", cfg.Generation.Provider).
			Msg("No generation credential configured; new questions will be saved for curation")
	}
	return generation.New(gc)
}
