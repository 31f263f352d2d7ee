// Package app wires configuration into stores, the scoring oracle and the
// award engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/weboryskills/practice/internal/award"
	"github.com/weboryskills/practice/internal/config"
	"github.com/weboryskills/practice/internal/domain"
	"github.com/weboryskills/practice/internal/llm"
	"github.com/weboryskills/practice/internal/oracle"
	"github.com/weboryskills/practice/internal/queue"
	"github.com/weboryskills/practice/internal/storage/local"
	"github.com/weboryskills/practice/internal/storage/postgres"
	"github.com/weboryskills/practice/internal/storage/sqlite"
)

// ActivityStore appends and lists activity records
type ActivityStore interface {
	award.ActivityLog
	ListActivities(ctx context.Context, userID string, limit int) ([]domain.Activity, error)
}

// App holds all application dependencies
type App struct {
	Config     *config.Config
	Engine     *award.Engine
	Progress   award.ProgressStore
	Activities ActivityStore
	Oracle     oracle.Oracle
	LLM        *llm.Registry

	// Consumer drains the activity queue; nil unless Activity.Consume is set
	Consumer *queue.ActivityConsumer

	logger  *slog.Logger
	closers []func() error
}

// Options tweak New, mostly for tests
type Options struct {
	Logger *slog.Logger

	// Oracle replaces the LLM-backed oracle
	Oracle oracle.Oracle
}

// New creates an application instance with all dependencies wired
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, logger: logger}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.Oracle = opts.Oracle
	if a.Oracle == nil {
		o, err := a.newOracle()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Oracle = o
	}

	sink, err := a.activitySink()
	if err != nil {
		a.Close()
		return nil, err
	}

	calendar, err := cfg.Calendar()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("streak calendar: %w", err)
	}
	awardCfg := award.DefaultConfig()
	awardCfg.InterviewXP = cfg.Award.InterviewXP
	awardCfg.AptitudeScoreThreshold = cfg.Award.AptitudeThreshold
	awardCfg.Calendar = calendar

	a.Engine = award.New(award.Deps{
		Progress: a.Progress,
		Activity: sink,
		Oracle:   a.Oracle,
	}, awardCfg, award.WithLogger(logger))

	return a, nil
}

// openStores opens the configured progress and activity stores
func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config.Storage

	switch cfg.Driver {
	case config.DriverSQLite:
		path := cfg.SQLitePath
		if path == "" {
			dir, err := config.EnsureDir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "data", "practice.db")
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		applied, err := db.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
		if applied > 0 {
			a.logger.Info("applied migrations", "count", applied, "path", path)
		}
		a.Progress = sqlite.NewProgressStore(db)
		a.Activities = sqlite.NewActivityStore(db)

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := postgres.EnsureSchema(ctx, pool, cfg.PostgresSchema); err != nil {
			return err
		}
		a.Progress = postgres.NewProgressStore(pool, cfg.PostgresSchema)
		a.Activities = postgres.NewActivityStore(pool, cfg.PostgresSchema)

	case config.DriverLocal:
		dir := cfg.LocalDir
		if dir == "" {
			base, err := config.EnsureDir()
			if err != nil {
				return err
			}
			dir = filepath.Join(base, "data")
		}
		store, err := local.NewStore(dir)
		if err != nil {
			return err
		}
		a.Progress = local.NewProgressStore(store)
		a.Activities = local.NewActivityStore(store)

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return nil
}

// newOracle builds provider -> resilience -> model fallback -> oracle
func (a *App) newOracle() (oracle.Oracle, error) {
	cfg := a.Config.LLM

	a.LLM = llm.NewRegistry()
	if err := registerProvider(a.LLM, cfg); err != nil {
		return nil, fmt.Errorf("init LLM provider: %w", err)
	}
	provider, err := a.LLM.Default()
	if err != nil {
		return nil, err
	}

	resilientCfg := llm.DefaultResilientConfig()
	resilientCfg.Logger = a.logger
	if cfg.RatePerSecond > 0 {
		resilientCfg.RatePerSecond = cfg.RatePerSecond
	}
	if cfg.MaxConcurrent > 0 {
		resilientCfg.MaxConcurrent = cfg.MaxConcurrent
	}
	resilient := llm.NewResilientProvider(provider, resilientCfg)
	a.closers = append(a.closers, resilient.Close)

	return oracle.New(llm.NewFallbackChain(resilient, a.logger), oracle.Config{
		Models:      cfg.Models,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}, a.logger), nil
}

// registerProvider registers the configured provider as the default
func registerProvider(registry *llm.Registry, cfg config.LLMConfig) error {
	var p llm.Provider
	switch cfg.Provider {
	case config.ProviderGroq:
		if cfg.APIKey == "" {
			return errors.New("PRACTICE_LLM_API_KEY required for groq provider")
		}
		p = llm.NewOpenAIProvider(llm.OpenAIConfig{
			Name:    config.ProviderGroq,
			APIKey:  cfg.APIKey,
			BaseURL: firstNonEmpty(cfg.BaseURL, llm.GroqBaseURL),
			Model:   llm.GroqDefaultModel,
		})
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return errors.New("PRACTICE_LLM_API_KEY required for openai provider")
		}
		p = llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case config.ProviderClaude:
		if cfg.APIKey == "" {
			return errors.New("PRACTICE_LLM_API_KEY required for claude provider")
		}
		p = llm.NewClaudeProvider(llm.ClaudeConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case config.ProviderOllama:
		p = llm.NewOllamaProvider(llm.OllamaConfig{BaseURL: cfg.BaseURL})
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	registry.Register(cfg.Provider, p)
	return registry.SetDefault(cfg.Provider)
}

// activitySink picks where the engine sends activities and starts the
// queue consumer when configured
func (a *App) activitySink() (award.ActivityLog, error) {
	cfg := a.Config.Activity

	var conn *queue.Connection
	dial := func() (*queue.Connection, error) {
		if conn != nil {
			return conn, nil
		}
		c, err := queue.NewConnection(cfg.AMQPURL, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, c.Close)
		conn = c
		return c, nil
	}

	if cfg.Consume {
		c, err := dial()
		if err != nil {
			return nil, err
		}
		a.Consumer = queue.NewActivityConsumer(c, a.Activities, queue.ConsumerConfig{Workers: cfg.Workers}, a.logger)
	}

	switch cfg.Sink {
	case config.SinkStore:
		return a.Activities, nil
	case config.SinkQueue:
		c, err := dial()
		if err != nil {
			return nil, err
		}
		return queue.NewActivityPublisher(c), nil
	case config.SinkNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown activity sink %q", cfg.Sink)
	}
}

// Close waits for in-flight activity writes, then releases resources in
// reverse order of acquisition
func (a *App) Close() error {
	if a.Engine != nil {
		a.Engine.Wait()
	}
	if a.Consumer != nil {
		a.Consumer.Stop()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
