package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CleanerConfig contains retention settings for sent jobs
type CleanerConfig struct {
	SentMaxAge      time.Duration
	CleanupInterval time.Duration
}

// Cleaner prunes old sent jobs so the queue file does not grow forever
type Cleaner struct {
	storage *Storage
	cfg     CleanerConfig
	logger  *slog.Logger
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewCleaner creates a new cleaner service
func NewCleaner(storage *Storage, cfg CleanerConfig, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		storage: storage,
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start starts the cleanup goroutine
func (c *Cleaner) Start(ctx context.Context) {
	if c.cfg.SentMaxAge <= 0 || c.cfg.CleanupInterval <= 0 {
		return
	}

	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.Info("delivery cleaner started",
		"sent_max_age", c.cfg.SentMaxAge,
		"cleanup_interval", c.cfg.CleanupInterval,
	)
}

// Stop stops the cleaner and waits for the goroutine to finish
func (c *Cleaner) Stop() {
	close(c.done)
	c.wg.Wait()
}

func (c *Cleaner) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	// Run cleanup immediately on start
	c.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

func (c *Cleaner) run(ctx context.Context) {
	deleted, err := c.storage.CleanupSent(ctx, c.cfg.SentMaxAge)
	if err != nil {
		c.logger.Error("failed to cleanup sent jobs", "error", err)
		return
	}

	if deleted > 0 {
		c.logger.Info("cleaned up sent jobs", "deleted", deleted)
	}
}
