package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotedeck/internal/adapters/clients"
	"github.com/jsamuelsen/quotedeck/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotedeck/internal/adapters/codec"
	"github.com/jsamuelsen/quotedeck/internal/adapters/filestore"
	"github.com/jsamuelsen/quotedeck/internal/adapters/publish"
	"github.com/jsamuelsen/quotedeck/internal/app"
	"github.com/jsamuelsen/quotedeck/internal/platform/config"
	"github.com/jsamuelsen/quotedeck/internal/platform/logging"
	"github.com/jsamuelsen/quotedeck/internal/platform/telemetry"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

const (
	healthCheckTimeout = 5 * time.Second
	closeTimeout       = 5 * time.Second
)

// service holds the wired components shared by every command.
type service struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	store     *filestore.Store
	source    *acl.CollectionClient
	quotes    *app.QuoteService
	scheduler *app.Scheduler

	closers []func(context.Context) error
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadFrom(opts.configDir, opts.profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// newService wires the application. Terminal logs go to logOut.
// The caller must Close the result.
func newService(ctx context.Context, cfg *config.Config, logOut io.Writer) (*service, error) {
	logger, logCloser := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, logOut)
	logging.SetDefault(logger)

	s := &service{cfg: cfg, logger: logger}
	s.closers = append(s.closers, func(context.Context) error { return logCloser.Close() })

	if err := s.wire(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *service) wire(ctx context.Context) error {
	cfg := s.cfg

	tel, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	s.closers = append(s.closers, tel.Shutdown)
	s.metrics = telemetry.NewMetrics()

	s.store, err = filestore.New(filestore.Config{Dir: cfg.Quotes.DataDir, Logger: s.logger})
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	sourceCfg := clients.FromConfig(acl.CollectionSourceName, cfg.Quotes.RemoteURL, &cfg.Client)
	sourceCfg.UserAgent = userAgent(cfg)
	sourceCfg.Logger = s.logger

	sourceClient, err := clients.New(sourceCfg)
	if err != nil {
		return fmt.Errorf("creating collection client: %w", err)
	}

	s.source = acl.NewCollectionClient(acl.CollectionClientConfig{
		Client: sourceClient,
		Logger: s.logger,
	})

	deck := app.NewDeckManager(app.DeckManagerConfig{
		Store:        s.store,
		RepeatDelay:  cfg.Quotes.RepeatDelay,
		HistoryLimit: cfg.Quotes.HistoryLimit,
		Metrics:      s.metrics,
		Logger:       s.logger,
	})

	engine := app.NewSyncEngine(app.SyncEngineConfig{
		Store:   s.store,
		Source:  s.source,
		Codec:   codec.TOML{},
		Deck:    deck,
		Metrics: s.metrics,
		Logger:  s.logger,
	})

	s.quotes = app.NewQuoteService(app.QuoteServiceConfig{
		Store:  s.store,
		Sync:   engine,
		Deck:   deck,
		Logger: s.logger,
	})

	publisher, err := newPublisher(cfg, s.logger)
	if err != nil {
		return err
	}

	s.scheduler = app.NewScheduler(app.SchedulerConfig{
		Service:       s.quotes,
		Publisher:     publisher,
		PostHour:      cfg.Schedule.PostHour,
		CheckInterval: cfg.Schedule.CheckInterval,
		Metrics:       s.metrics,
		Logger:        s.logger,
	})

	return nil
}

// healthRegistry reports the state store as critical and the remote as
// optional, since draws keep working from the local collection.
func (s *service) healthRegistry() (*ports.DefaultHealthRegistry, error) {
	registry := ports.NewHealthRegistry(healthCheckTimeout)

	if err := registry.Register(s.store); err != nil {
		return nil, fmt.Errorf("registering store health check: %w", err)
	}

	if err := registry.RegisterOptional(s.source); err != nil {
		return nil, fmt.Errorf("registering collection source health check: %w", err)
	}

	return registry, nil
}

// Close releases resources in reverse order of creation.
func (s *service) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Error("shutdown error", slog.Any("error", err))
		}
	}
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (ports.Publisher, error) {
	if cfg.Publisher.Kind != config.PublisherWebhook {
		return publish.NewLogPublisher(logger), nil
	}

	clientCfg := clients.FromConfig(publish.WebhookName, cfg.Publisher.WebhookURL, &cfg.Client)
	clientCfg.UserAgent = userAgent(cfg)
	clientCfg.Logger = logger

	client, err := clients.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating webhook client: %w", err)
	}

	return publish.NewWebhookPublisher(client, logger), nil
}

func userAgent(cfg *config.Config) string {
	return cfg.App.Name + "/" + Version
}
