package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/phishguard/internal/metrics"
	"github.com/foxzi/phishguard/internal/notify"
	"github.com/foxzi/phishguard/internal/store"
)

// Records is the slice of the store the dispatcher writes back to
type Records interface {
	SetDeliveryState(ctx context.Context, token string, state store.DeliveryState, errMsg string) error
}

// Dispatcher drains the delivery queue with a pool of workers
type Dispatcher struct {
	storage         *Storage
	notifier        notify.Notifier
	records         Records
	workers         int
	retryInterval   time.Duration
	maxRetries      int
	processInterval time.Duration
	logger          *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Config contains dispatcher configuration
type Config struct {
	Workers         int
	RetryInterval   time.Duration
	MaxRetries      int
	ProcessInterval time.Duration
}

// NewDispatcher creates a dispatcher over the given queue and notifier
func NewDispatcher(storage *Storage, notifier notify.Notifier, records Records, cfg Config, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.ProcessInterval <= 0 {
		cfg.ProcessInterval = time.Second
	}

	return &Dispatcher{
		storage:         storage,
		notifier:        notifier,
		records:         records,
		workers:         cfg.Workers,
		retryInterval:   cfg.RetryInterval,
		maxRetries:      cfg.MaxRetries,
		processInterval: cfg.ProcessInterval,
		logger:          logger,
		stopCh:          make(chan struct{}),
	}
}

// Start recovers jobs interrupted by a previous shutdown and starts the
// dispatcher workers
func (d *Dispatcher) Start(ctx context.Context) {
	if recovered, err := d.storage.Recover(ctx); err != nil {
		d.logger.Error("failed to recover interrupted jobs", "error", err)
	} else if recovered > 0 {
		d.logger.Info("recovered interrupted delivery jobs", "count", recovered)
	}

	d.logger.Info("starting delivery dispatcher", "workers", d.workers)

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher gracefully
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping delivery dispatcher")
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("delivery dispatcher stopped")
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()

	logger := d.logger.With("worker_id", id)
	logger.Debug("worker started")

	ticker := time.NewTicker(d.processInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-d.stopCh:
			logger.Debug("worker stopped by signal")
			return
		case <-ticker.C:
			d.processOne(ctx, logger)
		}
	}
}

// processOne claims and sends a single job. A failure here affects only this
// recipient; every other job in the campaign proceeds independently.
func (d *Dispatcher) processOne(ctx context.Context, logger *slog.Logger) {
	job, err := d.storage.Dequeue(ctx)
	if err != nil {
		logger.Error("failed to dequeue job", "error", err)
		return
	}

	if job == nil {
		return // Queue is empty
	}

	logger = logger.With("job_id", job.ID, "campaign_id", job.CampaignID)
	logger.Debug("processing delivery")

	sendCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	err = d.notifier.Send(sendCtx, &notify.Message{
		FromName:  job.FromName,
		FromEmail: job.FromEmail,
		ToName:    job.ToName,
		ToEmail:   job.ToEmail,
		Subject:   job.Subject,
		HTML:      job.HTML,
	})
	cancel()

	if err == nil {
		job.Status = StatusSent
		if err := d.storage.Update(ctx, job); err != nil {
			logger.Error("failed to update job status", "error", err)
		}
		if err := d.records.SetDeliveryState(ctx, job.Token, store.DeliverySent, ""); err != nil {
			logger.Error("failed to record delivery", "error", err)
		}
		metrics.IncDeliveries("sent")

		logger.Info("simulation email sent", "to", job.ToEmail)
		return
	}

	logger.Warn("delivery failed", "error", err, "retry_count", job.RetryCount)

	job.RetryCount++
	job.LastError = err.Error()

	if notify.IsTemporaryError(err) && job.RetryCount < d.maxRetries {
		backoff := d.calculateBackoff(job.RetryCount)
		job.Status = StatusDeferred
		job.NextRetryAt = time.Now().Add(backoff)

		logger.Info("delivery deferred",
			"retry_count", job.RetryCount,
			"next_retry_at", job.NextRetryAt,
			"backoff", backoff,
		)
	} else {
		job.Status = StatusFailed
		logger.Error("delivery failed permanently",
			"retry_count", job.RetryCount,
			"max_retries", d.maxRetries,
		)

		if err := d.records.SetDeliveryState(ctx, job.Token, store.DeliveryFailed, job.LastError); err != nil {
			logger.Error("failed to record delivery failure", "error", err)
		}
		metrics.IncDeliveries("failed")
	}

	if err := d.storage.Update(ctx, job); err != nil {
		logger.Error("failed to update job status", "error", err)
	}
}

// calculateBackoff calculates exponential backoff duration
func (d *Dispatcher) calculateBackoff(retryCount int) time.Duration {
	multiplier := 1 << (retryCount - 1) // 2^(n-1)
	if multiplier > 12 {
		multiplier = 12
	}

	backoff := time.Duration(multiplier) * d.retryInterval

	maxBackoff := time.Hour
	if backoff > maxBackoff {
		return maxBackoff
	}

	return backoff
}
