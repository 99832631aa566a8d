// Package supervisor implements the Supervisor (C7): running the Fetcher,
// Decoder/Converter, and Renderer workers concurrently, coordinating a
// graceful drain, and deciding when the whole
// pipeline has finished its work (spec.md §6).
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fly-io/162719/pkg/store"
)

// Worker is anything the Supervisor can run to completion or cancellation.
type Worker interface {
	Run(ctx context.Context, draining func() bool)
}

// Supervisor owns the pipeline's lifecycle: start every worker, watch for
// the bounded-window exit condition, and drain on cancellation or on
// exhaustion.
type Supervisor struct {
	store       *store.Store
	workers     []Worker
	windowEnd   *time.Time
	checkPeriod time.Duration

	draining atomic.Bool
}

// New builds a Supervisor. windowEnd is the configured end_instant — nil
// means continuous operation, in which case the exit condition never fires
// and the Supervisor only stops on context cancellation.
func New(st *store.Store, workers []Worker, windowEnd *time.Time, checkPeriod time.Duration) *Supervisor {
	if checkPeriod <= 0 {
		checkPeriod = 10 * time.Second
	}
	return &Supervisor{store: st, workers: workers, windowEnd: windowEnd, checkPeriod: checkPeriod}
}

// Draining reports whether the Supervisor has begun draining, satisfying
// every worker's draining func() bool parameter.
func (s *Supervisor) Draining() bool { return s.draining.Load() }

// CheckReadiness implements httpstats.ReadinessChecker: the pipeline is
// ready as long as the state store answers.
func (s *Supervisor) CheckReadiness(ctx context.Context) error {
	_, err := s.store.Stats(ctx)
	return err
}

// Run starts every worker and the exit-condition watcher, blocking until
// every worker has returned.
func (s *Supervisor) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			w.Run(ctx, s.Draining)
		}(w)
	}

	if s.windowEnd != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchExitCondition(ctx, cancel)
		}()
	}

	wg.Wait()
	slog.Info("supervisor_stopped")
}

// watchExitCondition implements spec.md §6: once end_instant is set and the
// walker has exhausted the window, no partial downloads remain, and every
// volume reachable from completed files is in a terminal state, the
// pipeline exits successfully rather than idling forever.
func (s *Supervisor) watchExitCondition(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(s.checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.windowExhausted(ctx) {
				slog.Info("supervisor_window_exhausted_draining")
				s.draining.Store(true)
				cancel()
				return
			}
		}
	}
}

func (s *Supervisor) windowExhausted(ctx context.Context) bool {
	if time.Now().UTC().Before(*s.windowEnd) {
		return false
	}

	partials, err := s.store.PartialDownloadCount(ctx)
	if err != nil {
		slog.Error("supervisor_partial_count_failed", "error", err)
		return false
	}
	if partials > 0 {
		return false
	}

	st, err := s.store.Stats(ctx)
	if err != nil {
		slog.Error("supervisor_stats_failed", "error", err)
		return false
	}

	if st.VolumesPending > 0 || st.VolumesProcessing > 0 {
		return false
	}
	if st.ProductsPending > 0 || st.ProductsRunning > 0 {
		return false
	}

	return true
}
