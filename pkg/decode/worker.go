package decode

import (
	"context"
	"log/slog"
	"time"

	"github.com/superfly/fsm"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/store"
)

// Worker runs the bounded-concurrency pool that claims complete, pending
// volumes and drives them through the decode FSM (spec.md §4.5
// "Concurrency: bounded concurrency, default 2 volumes in flight").
type Worker struct {
	store        *store.Store
	start        fsm.Start[DecodeRequest, DecodeResponse]
	manager      *fsm.Manager
	concurrency  int
	pollInterval time.Duration
}

// NewWorker builds a Worker bound to an already-registered FSM start func.
func NewWorker(st *store.Store, manager *fsm.Manager, start fsm.Start[DecodeRequest, DecodeResponse], concurrency int, pollInterval time.Duration) *Worker {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Worker{store: st, start: start, manager: manager, concurrency: concurrency, pollInterval: pollInterval}
}

// Run loops claiming and decoding volumes until ctx is cancelled (the
// Supervisor's draining signal).
func (w *Worker) Run(ctx context.Context, draining func() bool) {
	sem := make(chan struct{}, w.concurrency)

	for {
		if ctx.Err() != nil {
			return
		}
		if draining != nil && draining() {
			return
		}

		volumes, err := w.store.ListVolumesReadyForDecode(ctx, w.concurrency*4)
		if err != nil {
			slog.Error("decode_worker_list_failed", "error", err)
			if !sleepOrDone(ctx, w.pollInterval) {
				return
			}
			continue
		}

		if len(volumes) == 0 {
			if !sleepOrDone(ctx, w.pollInterval) {
				return
			}
			continue
		}

		done := make(chan struct{}, len(volumes))
		for _, v := range volumes {
			sem <- struct{}{}
			go func(v catalog.Volume) {
				defer func() { <-sem; done <- struct{}{} }()
				w.processVolume(ctx, v)
			}(v)
		}
		for range volumes {
			<-done
		}
	}
}

func (w *Worker) processVolume(ctx context.Context, v catalog.Volume) {
	id := catalog.VolumeID{Radar: v.Radar, VolumeCode: v.VolumeCode, VolumeNum: v.VolumeNum, Observation: v.Observation}

	won, err := w.store.ClaimVolumeForProcessing(ctx, id)
	if err != nil {
		slog.Error("decode_worker_claim_failed", "volume_id", id.Encode(), "error", err)
		return
	}
	if !won {
		return
	}

	files, err := w.store.GetFilesForVolume(ctx, id)
	if err != nil {
		slog.Error("decode_worker_files_lookup_failed", "volume_id", id.Encode(), "error", err)
		w.store.MarkVolumeFailed(ctx, id, errors.ClassIO, err.Error())
		return
	}

	req := &DecodeRequest{VolumeID: id, Files: files}
	resp := &DecodeResponse{}

	version, err := w.start(ctx, id.Encode(), fsm.NewRequest(req, resp))
	if err != nil {
		slog.Error("decode_fsm_start_failed", "volume_id", id.Encode(), "error", err)
		w.store.MarkVolumeFailed(ctx, id, errors.ClassDecoder, err.Error())
		return
	}

	if err := w.manager.Wait(ctx, version); err != nil {
		slog.Error("decode_fsm_wait_failed", "volume_id", id.Encode(), "error", err)
		return
	}

	slog.Info("decode_worker_volume_done", "volume_id", id.Encode())
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
