package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Checkpointer saves a snapshot on a fixed interval so a crash loses at most
// one interval of writes.
type Checkpointer struct {
	manager  *Manager
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	stopped  chan struct{}
}

// NewCheckpointer creates a Checkpointer. interval must be positive.
func NewCheckpointer(manager *Manager, interval time.Duration, logger *zap.Logger) *Checkpointer {
	timeout := interval - time.Second
	if timeout <= 0 {
		timeout = interval
	}
	return &Checkpointer{
		manager:  manager,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		stopped:  make(chan struct{}),
	}
}

// Start runs the checkpoint loop until done is closed. Call it once.
func (c *Checkpointer) Start(done <-chan struct{}) {
	defer close(c.stopped)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
			if err := c.manager.Checkpoint(ctx); err != nil {
				c.logger.Error("periodic checkpoint failed", zap.Error(err))
			}
			cancel()
		case <-done:
			return
		}
	}
}

// Stopped is closed once Start has returned, including any checkpoint that
// was in flight when done closed.
func (c *Checkpointer) Stopped() <-chan struct{} {
	return c.stopped
}
