package decode

import (
	"fmt"
	"time"
)

// FieldLayer is one aligned sub-product: a (rays, gates) array sharing the
// radar object's common grid.
type FieldLayer struct {
	Name string
	Data [][]float64
}

// RadarObject is the canonical in-memory radar volume: one range axis, one
// set of per-ray angle/time axes, and one field layer per aligned
// sub-product, all sharing the same (rays, gates) shape.
type RadarObject struct {
	Radar              string
	VolumeCode         string
	VolumeNum          string
	ObservationInstant time.Time
	Latitude           float64
	Longitude          float64
	AltitudeMeters     float64

	Range     []float64 // length = gates
	Azimuth   []float64 // length = total_rays
	Elevation []float64 // length = total_rays
	RayTime   []time.Time

	SweepStart []int // inclusive ray index per sweep
	SweepEnd   []int // exclusive ray index per sweep

	Instrument InstrumentParams
	Sweeps     []SweepMeta

	Fields []FieldLayer
}

// InstrumentParams carries the per-volume instrument metadata the canonical
// object exposes when the decoder's metadata supplies it.
type InstrumentParams struct {
	NyquistVelocity float64
	PulseWidth      float64
	PRT             float64
}

// Validate checks the invariants every canonical radar object must satisfy
// before it is written to a container: consistent field shapes and
// monotonic sweep/time structure.
func (r *RadarObject) Validate() error {
	rays := len(r.Azimuth)
	gates := len(r.Range)

	for _, f := range r.Fields {
		if len(f.Data) != rays {
			return fmt.Errorf("geometry mismatch: field %s has %d rays, want %d", f.Name, len(f.Data), rays)
		}
		for i, row := range f.Data {
			if len(row) != gates {
				return fmt.Errorf("geometry mismatch: field %s ray %d has %d gates, want %d", f.Name, i, len(row), gates)
			}
		}
	}

	if len(r.SweepStart) != len(r.SweepEnd) {
		return fmt.Errorf("geometry mismatch: sweep_start/sweep_end length mismatch (%d != %d)", len(r.SweepStart), len(r.SweepEnd))
	}
	for i := 1; i < len(r.SweepStart); i++ {
		if r.SweepStart[i] < r.SweepStart[i-1] || r.SweepEnd[i] < r.SweepEnd[i-1] {
			return fmt.Errorf("geometry mismatch: sweep boundary arrays not monotonic at index %d", i)
		}
	}
	for i, start := range r.SweepStart {
		end := r.SweepEnd[i]
		for j := start + 1; j < end && j < len(r.RayTime); j++ {
			if r.RayTime[j].Before(r.RayTime[j-1]) {
				return fmt.Errorf("geometry mismatch: ray time not monotonic within sweep %d at ray %d", i, j)
			}
		}
	}

	return nil
}
