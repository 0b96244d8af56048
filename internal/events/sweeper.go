package events

import (
	"context"
	"log/slog"
	"time"

	"sipc/internal/logging"
)

// Sweeper periodically drops finished sessions nobody consumed.
type Sweeper struct {
	registry *Registry
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSweeper builds a sweeper over registry.
func NewSweeper(registry *Registry, interval, ttl time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		registry: registry,
		interval: interval,
		ttl:      ttl,
		logger:   logging.NewComponentLogger(logger, "sessions"),
	}
}

// Run sweeps on every tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := s.registry.Sweep(now, s.ttl)
			if len(removed) > 0 {
				s.logger.Info("dropped abandoned sessions",
					logging.Int("count", len(removed)),
					logging.Int("remaining", s.registry.Len()),
				)
			}
		}
	}
}
