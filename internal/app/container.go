package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/config"
	"github.com/kapu/sales-skills-engine/internal/constants"
	"github.com/kapu/sales-skills-engine/internal/prompt"
	"github.com/kapu/sales-skills-engine/internal/server"
	"github.com/kapu/sales-skills-engine/internal/service/ai"
	"github.com/kapu/sales-skills-engine/internal/service/assessment"
	"github.com/kapu/sales-skills-engine/internal/service/cache"
	"github.com/kapu/sales-skills-engine/internal/service/database"
	"github.com/kapu/sales-skills-engine/internal/service/rubric"
	"github.com/kapu/sales-skills-engine/pkg/metrics"
)

// Container bundles the assembled services behind the HTTP server.
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Manager
	Assessment *assessment.Service
	Server     *server.Server

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles cache, rubric, LLM and assessment services. Anything
// acquired before a failure is released before returning.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	c.Metrics = metrics.NewManager()

	// Cache
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	cacheSvc := cache.NewService(store, cache.NewKeys(cfg.Cache.Version), logger, c.Metrics)
	c.closers = append(c.closers, func() {
		_ = cacheSvc.Close()
	})

	// Rubrics
	rubrics, err := c.newRubricSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// LLM
	provider, err := newProvider(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	retry := ai.DefaultRetryPolicy()
	retry.MaxRetries = cfg.LLM.MaxRetries
	llm := ai.NewClient(provider, ai.ClientConfig{
		Timeout: cfg.LLM.Timeout,
		Retry:   retry,
		Breaker: ai.NewBreaker(cfg.LLM.BreakerThreshold, cfg.LLM.BreakerReset, logger),
	}, logger, c.Metrics)

	c.Assessment = assessment.NewService(llm, cacheSvc, rubrics, assessment.Config{
		JudgeModel:    cfg.LLM.JudgeModel,
		CoachModel:    cfg.LLM.CoachModel,
		RubricSet:     cfg.Rubric.DefaultSet,
		QualifyTTL:    cfg.Cache.QualifyTTL,
		AssessmentTTL: cfg.Cache.AssessmentTTL,
		RoleplayTTL:   cfg.Cache.RoleplayTTL,
		Concurrency:   cfg.Pipeline.Concurrency,
		Business: prompt.BusinessContext{
			Company:  cfg.Coach.Company,
			Vertical: cfg.Coach.Vertical,
			Buyers:   cfg.Coach.Buyers,
		},
	}, logger, c.Metrics)

	c.Server = server.New(server.Config{
		Addr:        cfg.Server.Addr,
		AllowOrigin: cfg.Server.AllowOrigin,
	}, c.Assessment, logger, c.Metrics)

	logger.Info("Services assembled",
		zap.String("llm_provider", provider.Name()),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("rubric_set", cfg.Rubric.DefaultSet),
	)
	return c, nil
}

func newStore(cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	if cfg.Cache.Backend == config.CacheBackendMemory {
		logger.Warn("Using in-memory cache; results are lost on restart")
		return cache.NewMemoryStore(), nil
	}
	store, err := cache.NewRedisStore(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache store: %w", err)
	}
	return store, nil
}

// newRubricSource prefers a database, then RUBRIC_FILE, then the embedded
// catalog. A database is seeded from the embedded catalog on first use.
func (c *Container) newRubricSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (rubric.Source, error) {
	embedded, err := rubric.NewEmbeddedSource(cfg.Rubric.DefaultSet)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rubrics: %w", err)
	}

	var src rubric.Source = embedded
	switch {
	case cfg.Rubric.DBDriver != "":
		db, err := database.Open(database.Config{Driver: cfg.Rubric.DBDriver, DSN: cfg.Rubric.DBDSN}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open rubric database: %w", err)
		}
		c.closers = append(c.closers, func() {
			_ = db.Close()
		})

		sqlSrc := rubric.NewSQLSource(db.GetDB(), db.Driver(), logger)
		if err := sqlSrc.Migrate(ctx); err != nil {
			return nil, err
		}
		if _, err := sqlSrc.Seed(ctx, embedded.Sets()); err != nil {
			return nil, err
		}
		src = sqlSrc
	case cfg.Rubric.File != "":
		fileSrc, err := rubric.NewFileSource(cfg.Rubric.File, cfg.Rubric.DefaultSet)
		if err != nil {
			return nil, err
		}
		src = fileSrc
	}

	return rubric.NewCachedSource(src, constants.CacheTTL.Rubric, logger), nil
}

func newProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ai.Provider, error) {
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		p, err := ai.NewGeminiProvider(ctx, ai.GeminiConfig{APIKey: cfg.LLM.GeminiAPIKey}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		return p, nil
	default:
		return ai.NewOpenRouterProvider(ai.OpenRouterConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
		}, logger), nil
	}
}
