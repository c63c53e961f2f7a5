package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"go-media-identifier/internal/cache"
	"go-media-identifier/internal/config"
	"go-media-identifier/internal/extract"
	"go-media-identifier/internal/factory"
	"go-media-identifier/internal/format"
	"go-media-identifier/internal/logger"
	"go-media-identifier/internal/observer"
	"go-media-identifier/internal/preprocess"
	"go-media-identifier/internal/provider"
	"go-media-identifier/internal/recognize"
	"go-media-identifier/internal/reconcile"
	"go-media-identifier/internal/service"
	"go-media-identifier/internal/storage"
	"go-media-identifier/internal/transport"
	"go-media-identifier/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	imageFetcher    storage.ImageFetcher
	engines         []recognize.Engine
	extractor       *extract.Extractor
	reconciler      *reconcile.Reconciler
	identifyService service.IdentifyService
	stats           *observer.StatsObserver
	pool            *pgxpool.Pool
	handler         http.Handler
}

// NewContainer creates a new dependency injection container. Optional
// engines (vision agent, embedding lookup) are wired only when their
// configuration is present.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	fetcherFactory := factory.NewFetcherFactory(cfg)
	imageFetcher, err := fetcherFactory.CreateFetcher(factory.StorageType(cfg.StorageType))
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetcher: %w", err)
	}

	engines, pool, err := buildEngines(ctx, cfg)
	if err != nil {
		return nil, err
	}

	extractor := extract.New(
		engines,
		validation.NewTitleValidator(),
		cfg.EngineTimeout,
		cfg.TitleMaxWords,
	)

	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	reconciler := reconcile.New(providers, reconcile.DefaultStrategies(), cfg.ProviderTimeout)

	events := observer.NewEventBus()
	events.Subscribe(observer.NewLoggingObserver())
	stats := observer.NewStatsObserver()
	events.Subscribe(stats)

	prepOpts := preprocess.DefaultOptions()
	prepOpts.MaxEdge = cfg.MaxImageEdge

	identifyService := service.NewIdentifyService(
		imageFetcher,
		validation.NewURLValidator(),
		extractor,
		reconciler,
		format.NewFormatter(),
		cache.New(cfg.CachePath, cfg.CacheTTL),
		events,
		prepOpts,
	)

	handler := transport.NewHandler(identifyService, stats, cfg)

	return &Container{
		config:          cfg,
		imageFetcher:    imageFetcher,
		engines:         engines,
		extractor:       extractor,
		reconciler:      reconciler,
		identifyService: identifyService,
		stats:           stats,
		pool:            pool,
		handler:         handler,
	}, nil
}

// buildEngines assembles the recognition ladder. Engine order is candidate
// priority order: the vision agent and the embedding lookup, when
// configured, rank ahead of OCR so a clean semantic match is reconciled
// before literal frame text.
func buildEngines(ctx context.Context, cfg *config.Config) ([]recognize.Engine, *pgxpool.Pool, error) {
	var engines []recognize.Engine

	var vision *recognize.VisionAgentEngine
	if cfg.VisionAgentEnabled() {
		var err error
		vision, err = recognize.NewVisionAgentEngine(ctx, recognize.VisionAgentConfig{
			BaseURL: cfg.OllamaBaseURL,
			Port:    cfg.OllamaPort,
			Model:   cfg.OllamaModel,
			Floor:   cfg.EntityScoreFloor,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create vision agent engine: %w", err)
		}
		engines = append(engines, vision)
	} else {
		logger.Info("Vision agent engine disabled, no model configured")
	}

	var pool *pgxpool.Pool
	if cfg.EmbeddingEnabled() && vision != nil {
		var err error
		pool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to title index: %w", err)
		}
		engines = append(engines, recognize.NewEmbeddingEngine(vision, pool, recognize.EmbeddingConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
			Floor:   cfg.EmbeddingFloor,
		}))
	} else {
		logger.Info("Embedding engine disabled")
	}

	// OCR is always present and always last.
	engines = append(engines, recognize.NewTesseractEngine(recognize.DefaultOCRConfigs(), recognize.ScoreWeights{
		Digit: cfg.OCRDigitWeight,
		Noise: cfg.OCRNoiseWeight,
	}))

	return engines, pool, nil
}

// buildProviders assembles metadata providers in priority order. Config
// validation guarantees at least one key is present.
func buildProviders(cfg *config.Config) ([]provider.Client, error) {
	var providers []provider.Client
	if cfg.OMDBAPIKey != "" {
		omdb, err := provider.NewOMDB(cfg.OMDBAPIKey, cfg.OMDBBaseURL, cfg.ProviderTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create omdb client: %w", err)
		}
		providers = append(providers, omdb)
	}
	if cfg.TMDBAPIKey != "" {
		tmdb, err := provider.NewTMDB(cfg.TMDBAPIKey, cfg.TMDBBaseURL, cfg.TMDBLanguage, cfg.ProviderTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create tmdb client: %w", err)
		}
		providers = append(providers, tmdb)
	}
	return providers, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases pooled resources.
func (c *Container) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
