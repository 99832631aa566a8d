package render

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/decode"
	"github.com/fly-io/162719/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/state.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

type fakeReader struct {
	obj *decode.RadarObject
	err error
}

func (f *fakeReader) Read(ctx context.Context, path string) (*decode.RadarObject, error) {
	return f.obj, f.err
}

type countingPlotter struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPlotter) Plot(plot Plot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

func testObject() *decode.RadarObject {
	return &decode.RadarObject{
		Range:      []float64{0, 250, 500},
		Azimuth:    []float64{0, 1, 2, 3},
		SweepStart: []int{0, 2},
		SweepEnd:   []int{2, 4},
		Sweeps:     []decode.SweepMeta{{}, {}},
		Fields: []decode.FieldLayer{
			{Name: "ZH", Data: [][]float64{{10, 20, 30}, {11, 21, 31}, {12, 22, 32}, {13, 23, 33}}},
			{Name: "RHOHV", Data: [][]float64{{0.9, 0.9, 0.9}, {0.9, 0.9, 0.9}, {0.9, 0.9, 0.9}, {0.9, 0.9, 0.9}}},
		},
	}
}

func TestWorker_RendersAndMarksCompleted(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := catalog.VolumeID{Radar: "RMA1", VolumeCode: "0315", VolumeNum: "01", Observation: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	if err := st.UpsertVolume(ctx, id, []string{"DBZH"}); err != nil {
		t.Fatalf("upsert volume: %v", err)
	}
	if err := st.AddFieldToVolume(ctx, id, "DBZH"); err != nil {
		t.Fatalf("add field: %v", err)
	}
	if _, err := st.ClaimVolumeForProcessing(ctx, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.MarkVolumeProcessed(ctx, id, "/containers/out.nc"); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	reader := &fakeReader{obj: testObject()}
	plotter := &countingPlotter{}

	w := NewWorker(st, reader, plotter, t.TempDir(), "standard", nil, DefaultColmaxThresholds, true, 2, time.Millisecond)

	volumes, err := st.ListVolumesForRendering(ctx, "standard")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(volumes) != 1 {
		t.Fatalf("expected 1 candidate volume, got %d", len(volumes))
	}

	w.processVolume(ctx, volumes[0])

	if plotter.calls == 0 {
		t.Fatal("expected plotter to be invoked")
	}

	products, err := st.ListVolumesForRendering(ctx, "standard")
	if err != nil {
		t.Fatalf("list after render: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("expected no remaining render candidates after success, got %d", len(products))
	}
}

func TestWorker_MarksFailedOnReadError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	id := catalog.VolumeID{Radar: "RMA1", VolumeCode: "0315", VolumeNum: "01", Observation: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	if err := st.UpsertVolume(ctx, id, []string{"DBZH"}); err != nil {
		t.Fatalf("upsert volume: %v", err)
	}
	if err := st.AddFieldToVolume(ctx, id, "DBZH"); err != nil {
		t.Fatalf("add field: %v", err)
	}
	if _, err := st.ClaimVolumeForProcessing(ctx, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := st.MarkVolumeProcessed(ctx, id, "/containers/out.nc"); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	reader := &fakeReader{err: fmt.Errorf("container missing")}
	plotter := &countingPlotter{}

	w := NewWorker(st, reader, plotter, t.TempDir(), "standard", nil, DefaultColmaxThresholds, false, 2, time.Millisecond)

	volumes, err := st.ListVolumesForRendering(ctx, "standard")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	w.processVolume(ctx, volumes[0])

	if plotter.calls != 0 {
		t.Fatalf("expected no plot calls on read failure, got %d", plotter.calls)
	}

	remaining, err := st.ListVolumesForRendering(ctx, "standard")
	if err != nil {
		t.Fatalf("list after failure: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected failed product to remain a retry candidate, got %d", len(remaining))
	}
}
