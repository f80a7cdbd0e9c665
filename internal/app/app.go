package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxzi/phishguard/internal/api"
	"github.com/foxzi/phishguard/internal/campaign"
	"github.com/foxzi/phishguard/internal/catalog"
	"github.com/foxzi/phishguard/internal/config"
	"github.com/foxzi/phishguard/internal/delivery"
	"github.com/foxzi/phishguard/internal/dkim"
	"github.com/foxzi/phishguard/internal/metrics"
	"github.com/foxzi/phishguard/internal/notify"
	"github.com/foxzi/phishguard/internal/stats"
	"github.com/foxzi/phishguard/internal/store"
	"github.com/foxzi/phishguard/internal/tracker"
)

// App is the main application
type App struct {
	config        *config.Config
	store         store.Store
	queue         *delivery.Storage
	dispatcher    *delivery.Dispatcher
	cleaner       *delivery.Cleaner
	apiServer     *api.Server
	metricsServer *metrics.Server
	collector     *metrics.Collector
	logger        *slog.Logger
}

// New creates a new application
func New(cfg *config.Config) (*App, error) {
	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Create storage
	st, err := store.NewBoltStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	// Delivery queue shares the same database file
	queue, err := delivery.NewStorage(st.DB())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create delivery queue: %w", err)
	}

	// Template catalog
	cat := catalog.New()

	// Outbound SMTP relay
	notifier := notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		StartTLS: cfg.SMTP.StartTLS,
		Timeout:  cfg.SMTP.Timeout,
	}, cfg.Server.Hostname, logger.With("component", "smtp_notifier"))

	if cfg.DKIM.Enabled {
		signer, err := dkim.NewSignerFromFile(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to load DKIM key: %w", err)
		}
		notifier.SetSigner(signer)
		logger.Info("DKIM signing enabled", "domain", cfg.DKIM.Domain, "selector", cfg.DKIM.Selector)
	}

	// Delivery dispatcher
	dispatcher := delivery.NewDispatcher(queue, notifier, st, delivery.Config{
		Workers:         cfg.Delivery.Workers,
		RetryInterval:   cfg.Delivery.RetryInterval,
		MaxRetries:      cfg.Delivery.MaxRetries,
		ProcessInterval: cfg.Delivery.ProcessInterval,
	}, logger.With("component", "dispatcher"))

	// Sent-job cleaner
	var cleaner *delivery.Cleaner
	if cfg.Storage.Retention.SentMaxAge > 0 {
		cleaner = delivery.NewCleaner(queue, delivery.CleanerConfig{
			SentMaxAge:      cfg.Storage.Retention.SentMaxAge,
			CleanupInterval: cfg.Storage.Retention.CleanupInterval,
		}, logger.With("component", "cleaner"))
	}

	// Core services
	manager := campaign.NewManager(st, cat, queue, cfg.Server.BaseURL, logger.With("component", "campaign"))
	tr := tracker.New(st, logger.With("component", "tracker"))
	aggregator := stats.New(st)

	// API server
	apiServer := api.NewServer(manager, tr, aggregator, cat, &cfg.API, logger.With("component", "api"))

	// Metrics
	var metricsServer *metrics.Server
	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, cfg.Metrics.AllowedIPs, logger.With("component", "metrics"))
		queueDepth := func(ctx context.Context) (int64, int64, error) {
			qs, err := queue.Stats(ctx)
			if err != nil {
				return 0, 0, err
			}
			return qs.Pending, qs.Deferred, nil
		}
		collector = metrics.NewCollector(m, queueDepth, cfg.Storage.Path, cfg.Metrics.FlushInterval)
	}

	return &App{
		config:        cfg,
		store:         st,
		queue:         queue,
		dispatcher:    dispatcher,
		cleaner:       cleaner,
		apiServer:     apiServer,
		metricsServer: metricsServer,
		collector:     collector,
		logger:        logger,
	}, nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting phishguard",
		"hostname", a.config.Server.Hostname,
		"base_url", a.config.Server.BaseURL,
		"api_addr", a.config.API.ListenAddr,
	)

	// Create context that listens for signals
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start delivery workers
	a.dispatcher.Start(ctx)

	if a.cleaner != nil {
		a.cleaner.Start(ctx)
	}

	if a.collector != nil {
		a.collector.Start(ctx)
	}

	// Channel to collect errors
	errCh := make(chan error, 2)

	// Start API server
	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	// Start metrics server if enabled
	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	// Create timeout context
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop delivery workers first (stop accepting new work)
	a.dispatcher.Stop()

	if a.cleaner != nil {
		a.cleaner.Stop()
	}

	if a.collector != nil {
		a.collector.Stop()
	}

	// Shutdown servers
	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Close storage last; the delivery queue shares the same file
	if err := a.store.Close(); err != nil {
		a.logger.Error("storage close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// setupLogger creates a logger based on configuration
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
