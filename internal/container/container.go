// Package container provides dependency injection for the spendlog application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"
	"io"
	"time"

	"fjacquet/spendlog/internal/backend"
	"fjacquet/spendlog/internal/backend/gemini"
	"fjacquet/spendlog/internal/backend/gigachat"
	"fjacquet/spendlog/internal/backend/vertex"
	"fjacquet/spendlog/internal/catalog"
	"fjacquet/spendlog/internal/categorizer"
	"fjacquet/spendlog/internal/config"
	"fjacquet/spendlog/internal/coordinator"
	"fjacquet/spendlog/internal/logging"
	"fjacquet/spendlog/internal/models"
	"fjacquet/spendlog/internal/normalizer"
	"fjacquet/spendlog/internal/pipeline"
	"fjacquet/spendlog/internal/store"
	"fjacquet/spendlog/internal/store/postgres"
)

// BackendFactory builds the backend registered under name.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (backend.Backend, error)

// Overrides replace parts of the wiring, mostly for tests. Nil fields use
// the configured implementation.
type Overrides struct {
	Logger    logging.Logger
	Store     store.Store
	Factories map[string]BackendFactory
	Now       func() time.Time
}

// Container holds all application dependencies and provides methods to access them.
// It is immutable after creation.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	store     store.Store
	registry  *backend.Registry
	synonyms  *categorizer.SynonymTable
	catalog   *catalog.Manager
	processor *pipeline.Processor
	closers   []io.Closer
}

// DefaultFactories returns the constructors of the built-in backends.
func DefaultFactories() map[string]BackendFactory {
	return map[string]BackendFactory{
		config.BackendGemini: func(ctx context.Context, cfg *config.Config, logger logging.Logger) (backend.Backend, error) {
			return gemini.New(ctx, gemini.Config{
				APIKey:        cfg.Backends.Gemini.APIKey,
				Model:         cfg.Backends.Gemini.Model,
				FallbackLabel: cfg.Categories.FallbackName,
			}, logger)
		},
		config.BackendVertex: func(ctx context.Context, cfg *config.Config, logger logging.Logger) (backend.Backend, error) {
			return vertex.New(ctx, vertex.Config{
				Project:       cfg.Backends.Vertex.Project,
				Location:      cfg.Backends.Vertex.Location,
				Model:         cfg.Backends.Vertex.Model,
				FallbackLabel: cfg.Categories.FallbackName,
			}, logger)
		},
		config.BackendGigaChat: func(ctx context.Context, cfg *config.Config, logger logging.Logger) (backend.Backend, error) {
			return gigachat.New(ctx, gigachat.Config{
				APIKey:             cfg.Backends.GigaChat.APIKey,
				Scope:              cfg.Backends.GigaChat.Scope,
				Model:              cfg.Backends.GigaChat.Model,
				InsecureSkipVerify: cfg.Backends.GigaChat.InsecureSkipVerify,
				FallbackLabel:      cfg.Categories.FallbackName,
			}, logger)
		},
	}
}

// NewContainer creates and wires all application dependencies from cfg.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return Build(ctx, cfg, Overrides{})
}

// Build is NewContainer with parts of the wiring replaced.
func Build(ctx context.Context, cfg *config.Config, o Overrides) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	logger := o.Logger
	if logger == nil {
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}
	now := o.Now
	if now == nil {
		now = time.Now
	}
	c := &Container{logger: logger, config: cfg}

	synonyms, err := categorizer.LoadSynonymTable(cfg.Categories.SynonymsFile)
	if err != nil {
		return nil, fmt.Errorf("loading synonyms: %w", err)
	}
	c.synonyms = synonyms

	templates, err := store.LoadTemplates(cfg.Categories.TemplatesFile)
	if err != nil {
		return nil, fmt.Errorf("loading category templates: %w", err)
	}

	if o.Store != nil {
		c.store = o.Store
	} else if c.store, err = openStore(ctx, cfg, templates, logger); err != nil {
		return nil, err
	}
	c.closers = append(c.closers, c.store)

	registry, err := c.buildRegistry(ctx, o.Factories)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.registry = registry

	fallbackNames := []string{cfg.Categories.FallbackName}
	for _, name := range categorizer.DefaultFallbackNames {
		if name != cfg.Categories.FallbackName {
			fallbackNames = append(fallbackNames, name)
		}
	}

	c.catalog = catalog.NewManager(c.store, c.store, catalog.Options{
		FallbackNames: fallbackNames,
		Now:           now,
		Logger:        logger,
	})

	coord := coordinator.New(c.catalog, categorizer.NewResolver(synonyms, fallbackNames), c.store, coordinator.Options{
		Limits: coordinator.Limits{
			MaxDescriptionLength: cfg.Validation.MaxDescriptionLength,
			MaxVendorLength:      cfg.Validation.MaxVendorLength,
			MaxAmountScale:       int32(cfg.Validation.MaxAmountScale),
		},
		AutoCreate:    cfg.Categories.AutoCreate,
		FallbackLabel: cfg.Categories.FallbackName,
		Icons:         synonyms,
		Now:           now,
		Logger:        logger,
	})

	norm := normalizer.New(normalizer.Options{
		DefaultCurrency: cfg.Pipeline.DefaultCurrency,
		FallbackLabel:   cfg.Categories.FallbackName,
		Now:             now,
		Logger:          logger,
	})

	c.processor = pipeline.NewProcessor(registry, c.catalog, norm, coord, pipeline.Options{
		Workers: cfg.Pipeline.Workers,
		Icons:   synonyms,
		Logger:  logger,
	})

	logger.Info("Container initialized successfully",
		logging.F("backends", registry.Names()),
		logging.F("active_backend", c.processor.ActiveBackend()),
		logging.F("store", cfg.Store.Driver))
	return c, nil
}

func openStore(ctx context.Context, cfg *config.Config, templates []models.CategoryTemplate, logger logging.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:     cfg.Store.DSN,
			Timeout: time.Duration(cfg.Store.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Store.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		}
		if err := pg.SyncTemplates(ctx, templates); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return pg, nil
	case config.StoreDriverMemory, "":
		logger.Debug("Using in-memory store; data is lost on exit")
		return store.NewMemoryStore(templates), nil
	}
	return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
}

// buildRegistry registers every enabled backend that can be constructed.
// A backend failing to start is skipped; having none at all is fatal.
func (c *Container) buildRegistry(ctx context.Context, factories map[string]BackendFactory) (*backend.Registry, error) {
	if factories == nil {
		factories = DefaultFactories()
	}
	cfg := c.config
	timeout := time.Duration(cfg.Backends.TimeoutSeconds) * time.Second
	registry := backend.NewRegistry(c.logger)

	for _, name := range cfg.EnabledBackends() {
		factory, ok := factories[name]
		if !ok {
			c.logger.Warn("No factory for enabled backend", logging.F(logging.FieldBackend, name))
			continue
		}
		b, err := factory(ctx, cfg, c.logger.WithField(logging.FieldBackend, name))
		if err != nil {
			c.logger.WithError(err).Warn("Backend disabled: failed to initialize", logging.F(logging.FieldBackend, name))
			continue
		}
		if closer, ok := b.(io.Closer); ok {
			c.closers = append(c.closers, closer)
		}
		registry.Register(name, backend.Guard(b, timeout, cfg.Backends.RequestsPerMinute))
	}

	if err := registry.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backends.Active != "" && !registry.SetActive(cfg.Backends.Active) {
		c.logger.Warn("Configured active backend is not available, keeping default",
			logging.F(logging.FieldBackend, cfg.Backends.Active))
	}
	return registry, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetProcessor returns the message processing entry point.
func (c *Container) GetProcessor() *pipeline.Processor {
	return c.processor
}

// GetCatalog returns the category catalog manager.
func (c *Container) GetCatalog() *catalog.Manager {
	return c.catalog
}

// GetStore returns the container's store.
func (c *Container) GetStore() store.Store {
	return c.store
}

// GetSynonyms returns the loaded synonym table.
func (c *Container) GetSynonyms() *categorizer.SynonymTable {
	return c.synonyms
}

// Close releases backend clients and the store.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	c.logger.Debug("Container closed")
	return firstErr
}
