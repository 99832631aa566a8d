// Package retention runs the periodic stuck-work sweep (C8): resetting
// volumes and products that have sat in processing past the configured
// timeout back to pending, so a crashed worker never permanently strands
// its claim.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/fly-io/162719/pkg/stats"
	"github.com/fly-io/162719/pkg/store"
)

// Sweeper periodically calls store.ResetStuck.
type Sweeper struct {
	store        *store.Store
	metrics      *stats.Metrics
	stuckTimeout time.Duration
	interval     time.Duration
}

// NewSweeper builds a Sweeper. metrics may be nil, in which case sweep
// counts are only logged.
func NewSweeper(st *store.Store, metrics *stats.Metrics, stuckTimeout, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{store: st, metrics: metrics, stuckTimeout: stuckTimeout, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	report, err := s.store.ResetStuck(ctx, s.stuckTimeout)
	if err != nil {
		slog.Error("retention_sweep_failed", "error", err)
		return
	}
	if report.Volumes > 0 || report.Products > 0 {
		slog.Info("retention_sweep_reset", "volumes", report.Volumes, "products", report.Products)
	}
	if s.metrics != nil {
		s.metrics.StuckVolumesReset.Add(float64(report.Volumes))
		s.metrics.StuckProductsReset.Add(float64(report.Products))
	}
}
