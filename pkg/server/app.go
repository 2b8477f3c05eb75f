package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mercator-hq/parley/pkg/access"
	"mercator-hq/parley/pkg/attachments"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/conversation"
	"mercator-hq/parley/pkg/orchestrator"
	"mercator-hq/parley/pkg/providerfactory"
	"mercator-hq/parley/pkg/proxy/handlers"
	"mercator-hq/parley/pkg/ratelimit"
	"mercator-hq/parley/pkg/routing"
	"mercator-hq/parley/pkg/security/auth"
	"mercator-hq/parley/pkg/security/secrets"
	"mercator-hq/parley/pkg/storage"
	"mercator-hq/parley/pkg/telemetry/health"
	"mercator-hq/parley/pkg/telemetry/logging"
	"mercator-hq/parley/pkg/telemetry/metrics"
	"mercator-hq/parley/pkg/telemetry/tracing"
)

// Options tune NewApp.
type Options struct {
	// Version is reported by /health and tagged on spans.
	Version string

	// Logger, when set, is used instead of one built from the telemetry
	// configuration.
	Logger *slog.Logger

	// LogLevel, when set, lets Reload change verbosity at runtime.
	LogLevel *slog.LevelVar

	// Store and Blobs replace the configured backends.
	Store storage.Store
	Blobs attachments.BlobStore
}

// App is the assembled gateway: every component built from one
// configuration, plus the HTTP handler that exposes them.
type App struct {
	logger   *slog.Logger
	logLevel *slog.LevelVar
	secrets  *secrets.Manager

	store     storage.Store
	blobs     attachments.BlobStore
	uploads   *attachments.Registry
	providers *providerfactory.Manager
	router    *routing.Router
	orch      *orchestrator.Orchestrator
	tracer    *tracing.Tracer
	metrics   *metrics.Collector
	health    *health.Checker
	scheduler *attachments.Scheduler
	auth      auth.Authenticator
	limiter   *ratelimit.Limiter
	handler   http.Handler

	mu  sync.RWMutex
	cfg *config.Config

	closeOnce sync.Once
}

// NewApp builds every component from cfg. On failure, whatever was already
// opened is closed again.
func NewApp(ctx context.Context, cfg *config.Config, opts Options) (app *App, err error) {
	a := &App{cfg: cfg, logLevel: opts.LogLevel}
	defer func() {
		if err != nil {
			a.Close(context.Background())
		}
	}()

	a.logger = opts.Logger
	if a.logger == nil {
		if a.logLevel == nil {
			a.logLevel = new(slog.LevelVar)
		}
		a.logger, err = logging.New(cfg.Telemetry.Logging, logging.Options{Level: a.logLevel})
		if err != nil {
			return nil, err
		}
	}

	a.secrets, err = secrets.NewManagerFromConfig(cfg.Secrets, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets: %w", err)
	}
	if err := a.secrets.ResolveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.store = opts.Store
	if a.store == nil {
		a.store, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open chat store: %w", err)
		}
	}

	a.blobs = opts.Blobs
	if a.blobs == nil {
		a.blobs, err = attachments.OpenBlobStore(ctx, cfg.Attachments)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
	}
	a.uploads = attachments.NewRegistry()

	a.providers, err = providerfactory.NewManagerFromConfig(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to create providers: %w", err)
	}

	// Configured ceilings win; an adapter's own ceiling fills any gap.
	limits := attachments.LimitsFromConfig(cfg.Attachments.Limits)
	for _, name := range a.providers.GetProviderNames() {
		if p, err := a.providers.GetProvider(name); err == nil {
			limits = limits.WithDescriptor(p.Descriptor())
		}
	}
	processor := attachments.NewProcessor(a.blobs, limits)
	a.router = routing.NewRouter(a.providers, cfg.Routing)

	billing, err := access.NewBilling(cfg.Billing)
	if err != nil {
		return nil, fmt.Errorf("failed to create billing: %w", err)
	}
	controller := access.NewController(a.store, billing, a.router, cfg.Access,
		access.WithMetrics(a.metrics),
		access.WithLogger(a.logger),
	)

	authenticator, err := auth.NewJWTAuthenticator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}
	a.auth = authenticator
	a.limiter = ratelimit.New(cfg.Access.RateLimit)

	a.orch, err = orchestrator.New(orchestrator.Deps{
		Auth:           authenticator,
		Access:         controller,
		Router:         a.router,
		Attachments:    processor,
		Sessions:       conversation.NewMemoryStore(),
		Chats:          a.store,
		Uploads:        a.uploads,
		Blobs:          a.blobs,
		StorageBackend: cfg.Storage.Backend,
		Metrics:        a.metrics,
		Tracer:         a.tracer.Tracer(),
		Logger:         a.logger,
	}, cfg.Conversation)
	if err != nil {
		return nil, err
	}

	a.health = health.New(opts.Version, 0)
	a.health.RegisterCheck("storage", a.store.Ping)
	a.health.RegisterCheck("providers", handlers.ProvidersReady(a.providers))

	pruner := attachments.NewPruner(a.blobs, a.uploads, attachments.RetentionConfig{
		MaxAge:        cfg.Attachments.Retention.MaxAge,
		PruneSchedule: cfg.Attachments.Retention.PruneSchedule,
	})
	a.scheduler = attachments.NewScheduler(pruner)
	a.scheduler.OnPruned = a.metrics.RecordBlobsPruned

	a.handler = a.routes()
	return a, nil
}

// Handler returns the gateway's HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Providers returns the provider manager.
func (a *App) Providers() *providerfactory.Manager { return a.providers }

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// StartBackground starts blob pruning and rate limiter cleanup. Both stop
// when ctx is done.
func (a *App) StartBackground(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start blob pruning: %w", err)
	}
	if a.limiter.Enabled() {
		go a.limiter.Run(ctx, time.Minute)
	}
	return nil
}

// Reload applies a new configuration to the components that support it:
// provider credentials and endpoints, the routing table, conversation
// prompts and the log level. Secret references are resolved afresh first;
// if one cannot be resolved nothing is applied. Listener, storage and auth
// settings need a restart.
func (a *App) Reload(cfg *config.Config) {
	ctx := context.Background()
	if err := a.secrets.Refresh(ctx); err != nil {
		a.logger.Warn("secret refresh incomplete", "error", err)
	}
	if err := a.secrets.ResolveConfig(ctx, cfg); err != nil {
		a.logger.Error("reload rejected, keeping previous configuration", "error", err)
		return
	}

	if err := a.providers.Reload(cfg.Providers); err != nil {
		a.logger.Error("provider reload failed, keeping previous providers", "error", err)
	}
	a.router.Update(cfg.Routing)
	a.orch.UpdateConfig(cfg.Conversation)

	if a.logLevel != nil {
		if level, err := logging.ParseLevel(cfg.Telemetry.Logging.Level); err == nil {
			a.logLevel.Set(level)
		}
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.logger.Info("configuration reloaded",
		"configured_providers", a.providers.ConfiguredProviders(),
	)
}

// Close stops background work and releases every backend. It is safe to
// call more than once.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.scheduler != nil {
			a.scheduler.Stop()
		}
		if a.providers != nil {
			if err := a.providers.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close providers: %w", err))
			}
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close chat store: %w", err))
			}
		}
		if a.secrets != nil {
			if err := a.secrets.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close secrets: %w", err))
			}
		}
		if a.tracer != nil {
			if err := a.tracer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}
