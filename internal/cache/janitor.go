package cache

import (
	"context"
	"time"
)

// Start runs the background sweep loop, evicting expired entries every sweep
// interval. Blocks until ctx is cancelled.
func (c *ResultCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
