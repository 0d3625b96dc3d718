package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/Text2APK/client/internal/backend"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/catalog"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/generation"
	"github.com/GriffinCanCode/Text2APK/client/internal/domain/history"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/config"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/logging"
	"github.com/GriffinCanCode/Text2APK/client/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/Text2APK/client/internal/ws"
)

// App holds every long-lived component.
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Backend  *backend.Client
	Dialer   *ws.Dialer
	History  *history.Cache
	Catalog  *catalog.Loader
	Sessions *generation.Controller
}

// Option customizes New.
type Option func(*options)

type options struct {
	logger   *logging.Logger
	observer func(generation.Session)
}

// WithLogger overrides the logger built from config.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver receives every session snapshot. See generation.WithObserver.
func WithObserver(fn func(generation.Session)) Option {
	return func(o *options) { o.observer = fn }
}

// New builds the application from cfg. Nothing touches the network until
// Start or a session is submitted.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewWithLevel(cfg.Logging.Level, cfg.Logging.Development)
	}
	metrics := monitoring.NewMetrics()

	client, err := backend.New(backend.Options{
		BaseURL:           cfg.Backend.URL,
		WebSocketURL:      cfg.Backend.WebSocketURL,
		Timeout:           cfg.Backend.Timeout.Duration,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		UserID:            cfg.Backend.UserID,
		Logger:            logger,
		Metrics:           metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	dialer, err := ws.NewDialer(ws.DialerOptions{
		BaseURL:          client.WebSocketURL(),
		HandshakeTimeout: cfg.Channel.HandshakeTimeout.Duration,
		IdleTimeout:      cfg.Channel.IdleTimeout.Duration,
		ReadLimit:        cfg.Channel.ReadLimit,
		Logger:           logger,
		Metrics:          metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create progress channel dialer: %w", err)
	}

	cache := history.NewCache(client,
		history.WithLogger(logger),
		history.WithMetrics(metrics),
	)
	loader := catalog.NewLoader(client,
		catalog.WithLogger(logger),
		catalog.WithMetrics(metrics),
	)

	ctrlOpts := []generation.Option{
		generation.WithHistory(cache),
		generation.WithCatalog(loader),
		generation.WithLogger(logger),
		generation.WithMetrics(metrics),
	}
	if o.observer != nil {
		ctrlOpts = append(ctrlOpts, generation.WithObserver(o.observer))
	}
	sessions := generation.NewController(client, generation.DialerOpener(dialer), ctrlOpts...)

	logger.Debug("Application initialized",
		zap.String("backend", client.BaseURL()),
		zap.String("ws", client.WebSocketURL()),
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Backend:  client,
		Dialer:   dialer,
		History:  cache,
		Catalog:  loader,
		Sessions: sessions,
	}, nil
}

// Start loads the catalog and the initial history. Both failures are
// logged by their components and never stop the application.
func (a *App) Start(ctx context.Context) {
	_ = a.Catalog.LoadOnce(ctx)
	_ = a.History.Load(ctx, a.Config.History.Limit)
}

// Close releases the current session and flushes the logger.
func (a *App) Close() error {
	a.Sessions.Close()
	_ = a.Logger.Sync()
	return nil
}
