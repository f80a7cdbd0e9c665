package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"
)

// QueueDepth reports the current delivery backlog. The collector takes a
// function rather than the queue itself so this package stays a leaf.
type QueueDepth func(ctx context.Context) (pending, deferred int64, err error)

// Collector periodically refreshes gauge metrics from the queue and store
type Collector struct {
	metrics     *Metrics
	queueDepth  QueueDepth
	storagePath string
	interval    time.Duration
	startTime   time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCollector creates a gauge collector
func NewCollector(m *Metrics, queueDepth QueueDepth, storagePath string, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 10 * time.Second
	}

	return &Collector{
		metrics:     m,
		queueDepth:  queueDepth,
		storagePath: storagePath,
		interval:    interval,
		startTime:   time.Now(),
		stopCh:      make(chan struct{}),
	}
}

// Start starts the collector goroutine
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Collector) refresh(ctx context.Context) {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if info, err := os.Stat(c.storagePath); err == nil {
		c.metrics.StorageUsedBytes.Set(float64(info.Size()))
	}

	if c.queueDepth == nil {
		return
	}
	pending, deferred, err := c.queueDepth(ctx)
	if err != nil {
		return
	}
	c.metrics.DeliveryQueueSize.Set(float64(pending + deferred))
	c.metrics.DeliveryDeferred.Set(float64(deferred))
}
