package retention

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/store"
)

func TestSweeper_ResetsOnlyPastTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	st, err := store.Open(t.TempDir()+"/state.db", store.WithClock(clock))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	id := catalog.VolumeID{Radar: "RMA1", VolumeCode: "0315", VolumeNum: "01", Observation: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	if err := st.UpsertVolume(ctx, id, []string{"DBZH"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.AddFieldToVolume(ctx, id, "DBZH"); err != nil {
		t.Fatalf("add field: %v", err)
	}
	if _, err := st.ClaimVolumeForProcessing(ctx, id); err != nil {
		t.Fatalf("claim: %v", err)
	}

	sweeper := NewSweeper(st, nil, time.Hour, time.Millisecond)
	sweeper.sweepOnce(ctx)

	v, err := st.GetVolume(ctx, id)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if v.Status != catalog.VolumeStatusProcessing {
		t.Fatalf("expected volume still processing before timeout elapses, got %s", v.Status)
	}

	clock.Advance(2 * time.Hour)
	sweeper.sweepOnce(ctx)

	v, err = st.GetVolume(ctx, id)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if v.Status != catalog.VolumeStatusPending {
		t.Fatalf("expected volume reset to pending after timeout, got %s", v.Status)
	}
}
