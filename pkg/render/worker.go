package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/decode"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/store"
)

// Worker runs the bounded-concurrency pool that claims completed volumes
// missing a rendered product and drives them through read, standardize,
// derive, plot (spec.md §4.6).
type Worker struct {
	store       *store.Store
	reader      decode.ContainerReader
	plotter     Plotter
	productDir  string
	productType string
	fieldSpecs  map[string]FieldRenderSpec
	thresholds  ColmaxThresholds
	addColmax   bool

	concurrency  int
	pollInterval time.Duration
}

// NewWorker builds a render Worker.
func NewWorker(st *store.Store, reader decode.ContainerReader, plotter Plotter, productDir, productType string, fieldSpecs map[string]FieldRenderSpec, thresholds ColmaxThresholds, addColmax bool, concurrency int, pollInterval time.Duration) *Worker {
	if concurrency <= 0 {
		concurrency = 2
	}
	if fieldSpecs == nil {
		fieldSpecs = DefaultFieldSpecs
	}
	return &Worker{
		store:        st,
		reader:       reader,
		plotter:      plotter,
		productDir:   productDir,
		productType:  productType,
		fieldSpecs:   fieldSpecs,
		thresholds:   thresholds,
		addColmax:    addColmax,
		concurrency:  concurrency,
		pollInterval: pollInterval,
	}
}

// Run loops claiming and rendering products until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, draining func() bool) {
	sem := make(chan struct{}, w.concurrency)

	for {
		if ctx.Err() != nil {
			return
		}
		if draining != nil && draining() {
			return
		}

		volumes, err := w.store.ListVolumesForRendering(ctx, w.productType)
		if err != nil {
			slog.Error("render_worker_list_failed", "error", err)
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
	won, err := w.store.ClaimProduct(ctx, v.VolumeID, w.productType)
	if err != nil {
		slog.Error("render_worker_claim_failed", "volume_id", v.VolumeID, "error", err)
		return
	}
	if !won {
		return
	}

	fail := func(class errors.Class, err error) {
		slog.Error("render_volume_failed", "volume_id", v.VolumeID, "class", class, "error", err)
		w.store.MarkProductStatus(ctx, v.VolumeID, w.productType, catalog.ProductStatusFailed, class, err.Error())
	}

	obj, err := w.reader.Read(ctx, v.OutputPath)
	if err != nil {
		fail(errors.ClassFileNotFound, err)
		return
	}

	Standardize(obj)

	if w.addColmax {
		colmax, err := Colmax(obj, w.thresholds)
		if err != nil {
			fail(errors.ClassStandardize, err)
			return
		}
		obj.Fields = append(obj.Fields, *colmax)
	}

	id := catalog.VolumeID{Radar: v.Radar, VolumeCode: v.VolumeCode, VolumeNum: v.VolumeNum, Observation: v.Observation}
	if err := w.plotAllFields(obj, id); err != nil {
		fail(errors.ClassPlot, err)
		return
	}

	if err := w.store.MarkProductStatus(ctx, v.VolumeID, w.productType, catalog.ProductStatusCompleted, "", ""); err != nil {
		slog.Error("render_mark_completed_failed", "volume_id", v.VolumeID, "error", err)
		return
	}

	slog.Info("render_worker_volume_done", "volume_id", v.VolumeID)
}

func (w *Worker) plotAllFields(obj *decode.RadarObject, id catalog.VolumeID) error {
	rhohv := findField(obj, "RHOHV")
	wrad := findField(obj, "WRAD")

	for i := range obj.Fields {
		field := &obj.Fields[i]
		spec, ok := w.fieldSpecs[field.Name]
		if !ok {
			continue
		}

		filtered := applyQCMask(field.Data, rhohv, wrad, w.thresholds)

		for elev := range obj.Sweeps {
			start, end := 0, len(field.Data)
			if elev < len(obj.SweepStart) && elev < len(obj.SweepEnd) {
				start, end = obj.SweepStart[elev], obj.SweepEnd[elev]
			}
			if start < 0 || end > len(field.Data) || start > end {
				return fmt.Errorf("plot: sweep %d bounds [%d,%d) out of range for field %s", elev, start, end, field.Name)
			}

			rawPath := id.ProductPath(w.productDir, field.Name+"_raw", elev)
			if err := w.plotter.Plot(Plot{
				Field: field.Name, Elevation: elev, Data: field.Data[start:end],
				VMin: spec.VMinNoFilters, VMax: spec.VMaxNoFilters, Colormap: spec.ColormapNoFilt,
				Filtered: false, OutputPath: rawPath,
			}); err != nil {
				return err
			}

			filteredPath := id.ProductPath(w.productDir, field.Name, elev)
			if err := w.plotter.Plot(Plot{
				Field: field.Name, Elevation: elev, Data: filtered[start:end],
				VMin: spec.VMin, VMax: spec.VMax, Colormap: spec.Colormap,
				Filtered: true, OutputPath: filteredPath,
			}); err != nil {
				return err
			}
		}
	}
	return nil
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
