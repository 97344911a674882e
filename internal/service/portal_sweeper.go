package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expiredPortalCloser interface {
	CloseExpiredPortals(ctx context.Context, now time.Time) (int64, error)
}

// PortalSweeper closes attendance portals whose deadline has passed. Calls already
// fail after the deadline, so the sweeper only keeps the stored flag honest for readers.
type PortalSweeper struct {
	store    expiredPortalCloser
	metrics  *MetricsService
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// NewPortalSweeper constructs a sweeper. A non-positive interval disables it.
func NewPortalSweeper(store expiredPortalCloser, metrics *MetricsService, interval time.Duration, logger *zap.Logger) *PortalSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PortalSweeper{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *PortalSweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
	s.logger.Info("portal sweeper started", zap.Duration("interval", s.interval))
}

// Sweep closes expired portals once and returns how many were closed.
func (s *PortalSweeper) Sweep(ctx context.Context) int64 {
	closed, err := s.store.CloseExpiredPortals(ctx, s.now())
	if err != nil {
		s.logger.Warn("portal sweep failed", zap.Error(err))
		return 0
	}
	if closed > 0 {
		s.metrics.RecordPortalsSwept(closed)
		s.logger.Info("expired portals closed", zap.Int64("count", closed))
	}
	return closed
}
