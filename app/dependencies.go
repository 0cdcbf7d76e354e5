package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/vector-cv/config"
	"github.com/upb/vector-cv/internal/observability"
	"github.com/upb/vector-cv/repositories"
	"github.com/upb/vector-cv/repositories/memory"
	"github.com/upb/vector-cv/repositories/postgres"
	"github.com/upb/vector-cv/services/application"
	"github.com/upb/vector-cv/services/content"
	"github.com/upb/vector-cv/services/embedding"
	"github.com/upb/vector-cv/services/generation"
	"github.com/upb/vector-cv/services/providers"
	"github.com/upb/vector-cv/services/providers/gemini"
	"github.com/upb/vector-cv/services/providers/openai"
	"github.com/upb/vector-cv/services/ratelimit"
	"github.com/upb/vector-cv/services/selection"
	"github.com/upb/vector-cv/services/skills"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Collector

	// Repository Factory is nil for the in-memory store
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Provider Registry
	ProviderRegistry *providers.Registry

	// Services
	Embeddings   *embedding.Service
	Skills       *skills.Extractor
	Selection    *selection.Engine
	Generation   *generation.Service
	Content      *content.Service
	Applications *application.Service
	Limiter      *ratelimit.Limiter
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewCollector("vector_cv")
	}

	if err := deps.initStore(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := deps.initProviders(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initEmbeddings(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Driver),
		zap.String("embedding", deps.Embeddings.BackendName()),
		zap.Strings("providers", deps.ProviderRegistry.ListProviders()))
	return deps, nil
}

// initStore opens PostgreSQL or builds the in-memory repositories
func (d *Dependencies) initStore(cfg *config.Config) error {
	if cfg.Store.Driver == config.StoreDriverMemory {
		d.Repos = memory.NewRepositories()
		d.TxManager = memory.TransactionManager{}
		d.Logger.Warn("using in-memory store, data is lost on exit")
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()
	d.Repos = factory.NewRepositories()
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initProviders registers every chat provider that has credentials. Each is
// wrapped in its own circuit breaker.
func (d *Dependencies) initProviders(ctx context.Context, cfg *config.Config) error {
	registry := providers.NewRegistry()

	if cfg.Providers.OpenAI.APIKey != "" {
		adapter := openai.NewOpenAIAdapter(openAIConfig(cfg))
		if err := registry.RegisterProvider(providers.WithBreaker(adapter, cfg.Breaker, d.Logger)); err != nil {
			return err
		}
		d.Logger.Info("registered OpenAI provider")
	}

	if cfg.Providers.Gemini.APIKey != "" {
		adapter, err := gemini.NewGeminiAdapter(ctx, geminiConfig(cfg))
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		if err := registry.RegisterProvider(providers.WithBreaker(adapter, cfg.Breaker, d.Logger)); err != nil {
			return err
		}
		d.Logger.Info("registered Gemini provider")
	}

	if registry.GetProviderCount() == 0 {
		d.Logger.Warn("no LLM providers configured, generation is unavailable")
	}

	d.ProviderRegistry = registry
	return nil
}

// initEmbeddings picks the embedding backend. Without credentials for the
// configured provider the deterministic fallback is used.
func (d *Dependencies) initEmbeddings(ctx context.Context, cfg *config.Config) error {
	var backend embedding.Embedder

	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		if cfg.Providers.OpenAI.APIKey != "" {
			backend = openai.NewEmbedder(openAIConfig(cfg), cfg.Embedding.Model, cfg.Embedding.Dimensions)
		}
	case config.ProviderGemini:
		if cfg.Providers.Gemini.APIKey != "" {
			e, err := gemini.NewEmbedder(ctx, geminiConfig(cfg), cfg.Embedding.Model, cfg.Embedding.Dimensions)
			if err != nil {
				return fmt.Errorf("gemini embedder: %w", err)
			}
			backend = e
		}
	}

	if backend == nil {
		if cfg.Embedding.Provider != config.ProviderFallback {
			d.Logger.Warn("embedding provider has no credentials, using fallback vectors",
				zap.String("provider", cfg.Embedding.Provider))
		}
		backend = embedding.NewFallbackEmbedder(cfg.Embedding.Dimensions)
	}

	breaker := providers.NewBreaker("embedding", cfg.Breaker, d.Logger)
	d.Embeddings = embedding.NewService(backend, cfg.Embedding.Dimensions, cfg.Embedding.Timeout, breaker, d.Metrics, d.Logger)
	return nil
}

// initServices builds the domain services on top of the store and providers
func (d *Dependencies) initServices(cfg *config.Config) {
	var llm providers.Provider
	if p, err := d.ProviderRegistry.GetProvider(cfg.Generation.Provider); err == nil {
		llm = p
	} else {
		d.Logger.Warn("generation provider not registered",
			zap.String("provider", cfg.Generation.Provider))
	}

	d.Skills = skills.NewExtractor(llm, cfg.Generation.Model, cfg.Generation.ExtractionTemperature, cfg.Generation.Timeout, d.Metrics, d.Logger)
	d.Selection = selection.NewEngine(d.Repos.ContentBlocks, d.Embeddings, d.Skills, d.Metrics, d.Logger)
	d.Generation = generation.NewService(llm, cfg.Generation, d.Metrics, d.Logger)
	d.Content = content.NewService(d.Repos, d.TxManager, d.Embeddings, d.Logger)

	var quota application.Quota
	if cfg.RateLimit.Enabled {
		d.Limiter = ratelimit.NewLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window, nil, d.Logger)
		quota = d.Limiter
	} else {
		d.Logger.Warn("generation rate limit disabled")
	}
	d.Applications = application.NewService(d.Repos, d.Selection, d.Generation, quota, d.Metrics, d.Logger)
}

// StartBackground runs background workers until ctx is done
func (d *Dependencies) StartBackground(ctx context.Context) {
	if d.Limiter != nil && d.Config.RateLimit.CleanupInterval > 0 {
		go d.Limiter.StartCleanupWorker(ctx, d.Config.RateLimit.CleanupInterval)
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}

func openAIConfig(cfg *config.Config) providers.ProviderConfig {
	pc := providers.DefaultProviderConfig()
	pc.APIKey = cfg.Providers.OpenAI.APIKey
	pc.BaseURL = cfg.Providers.OpenAI.BaseURL
	pc.OrgID = cfg.Providers.OpenAI.OrgID
	pc.Timeout = cfg.Generation.Timeout
	return pc
}

func geminiConfig(cfg *config.Config) providers.ProviderConfig {
	pc := providers.DefaultProviderConfig()
	pc.APIKey = cfg.Providers.Gemini.APIKey
	pc.Timeout = cfg.Generation.Timeout
	return pc
}
