package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper removes expired visitor sessions
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Cleaner handles periodic cleanup of expired sessions
type Cleaner struct {
	sweeper  Sweeper
	interval time.Duration
	done     chan struct{}
}

// NewCleaner creates a new cleanup worker
func NewCleaner(sweeper Sweeper, interval time.Duration) *Cleaner {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Cleaner{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup worker in a goroutine
func (c *Cleaner) Start(ctx context.Context) {
	go c.run(ctx)
}

// Done is closed once the worker has stopped
func (c *Cleaner) Done() <-chan struct{} {
	return c.done
}

// run is the main loop for the cleanup worker
func (c *Cleaner) run(ctx context.Context) {
	defer close(c.done)
	slog.Info("cleanup worker started", "interval", c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on start
	c.cleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup worker stopped")
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

// cleanup removes expired session entries
func (c *Cleaner) cleanup(ctx context.Context) {
	slog.Debug("running cleanup cycle")

	removed, err := c.sweeper.Sweep(ctx)
	if err != nil {
		slog.Error("failed to sweep expired sessions", "error", err)
		return
	}

	if removed == 0 {
		slog.Debug("no expired session entries found")
		return
	}

	slog.Info("expired session entries removed", "count", removed)
}
