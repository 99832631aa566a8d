package decode

import (
	"fmt"
	"time"
)

// Align reshapes decoded, a set of per-field VolumeDicts for the same
// volume, onto a common range grid and synthesizes the canonical radar
// object (spec.md §4.5 "Alignment across sub-products").
//
// The reference field is the one whose outermost gate covers the greatest
// range. Every other field is right-padded with MissingValue to the
// reference gate count, or must be truncatable without loss — a field with
// strictly more gates than the reference is a geometry inconsistency and
// fails the volume.
func Align(volumeCode, volumeNum string, decoded []*VolumeDict) (*RadarObject, error) {
	if len(decoded) == 0 {
		return nil, fmt.Errorf("geometry mismatch: no decoded fields to align")
	}

	ref := decoded[0]
	for _, d := range decoded[1:] {
		if d.outermostRange() > ref.outermostRange() {
			ref = d
		}
	}

	refRays := len(ref.Data)
	refGates := 0
	if refRays > 0 {
		refGates = len(ref.Data[0])
	}

	if err := checkConsistency(ref, decoded); err != nil {
		return nil, err
	}

	obj := &RadarObject{
		VolumeCode:         volumeCode,
		VolumeNum:          volumeNum,
		Radar:              ref.Meta.Radar,
		ObservationInstant: ref.Meta.ObservationInstant,
		Latitude:           ref.Meta.Latitude,
		Longitude:          ref.Meta.Longitude,
		AltitudeMeters:     ref.Meta.AltitudeMeters,
		Sweeps:             ref.Sweeps,
	}

	obj.Range = buildRangeAxis(ref.Sweeps, refGates)
	obj.Azimuth, obj.Elevation, obj.RayTime, obj.SweepStart, obj.SweepEnd = buildRayAxes(ref.Sweeps)
	obj.Instrument = instrumentParamsFrom(ref.Sweeps)

	for _, d := range decoded {
		reshaped, err := reshapeToReference(d, refRays, refGates)
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, FieldLayer{Name: d.Field, Data: reshaped})
	}

	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return obj, nil
}

// checkConsistency verifies every field shares the reference's sweep count,
// ray count per sweep, and a compatible (not larger) gate count.
func checkConsistency(ref *VolumeDict, fields []*VolumeDict) error {
	for _, d := range fields {
		if len(d.Sweeps) != len(ref.Sweeps) {
			return fmt.Errorf("geometry mismatch: field %s has %d sweeps, reference has %d", d.Field, len(d.Sweeps), len(ref.Sweeps))
		}
		for i, s := range d.Sweeps {
			if s.NRays != ref.Sweeps[i].NRays {
				return fmt.Errorf("geometry mismatch: field %s sweep %d has %d rays, reference has %d", d.Field, i, s.NRays, ref.Sweeps[i].NRays)
			}
			if s.NGates > ref.Sweeps[i].NGates {
				return fmt.Errorf("geometry mismatch: field %s sweep %d has %d gates, exceeds reference %d", d.Field, i, s.NGates, ref.Sweeps[i].NGates)
			}
		}
	}
	return nil
}

// reshapeToReference right-pads d's rows to refGates with MissingValue. A
// row longer than refGates is returned as a geometry mismatch error, never
// truncated (checkConsistency already rejects that case from the sweep
// metadata).
func reshapeToReference(d *VolumeDict, refRays, refGates int) ([][]float64, error) {
	if len(d.Data) != refRays {
		return nil, fmt.Errorf("geometry mismatch: field %s has %d rays, reference has %d", d.Field, len(d.Data), refRays)
	}

	out := make([][]float64, refRays)
	for i, row := range d.Data {
		if len(row) > refGates {
			return nil, fmt.Errorf("geometry mismatch: field %s ray %d has %d gates, exceeds reference %d", d.Field, i, len(row), refGates)
		}
		padded := make([]float64, refGates)
		copy(padded, row)
		for g := len(row); g < refGates; g++ {
			padded[g] = MissingValue
		}
		out[i] = padded
	}
	return out, nil
}

func buildRangeAxis(sweeps []SweepMeta, gates int) []float64 {
	if len(sweeps) == 0 {
		return nil
	}
	s := sweeps[0]
	axis := make([]float64, gates)
	for i := range axis {
		axis[i] = s.GateOffset + float64(i)*s.GateSize
	}
	return axis
}

func buildRayAxes(sweeps []SweepMeta) (azimuth, elevation []float64, rayTime []time.Time, sweepStart, sweepEnd []int) {
	ray := 0
	for _, s := range sweeps {
		start := ray
		for r := 0; r < s.NRays; r++ {
			// Ray index within its sweep, reset per sweep (original_source's
			// pyart_writer builds azimuth the same way: np.arange(n)).
			azimuth = append(azimuth, float64(r))
			elevation = append(elevation, s.FixedAngle)
			frac := 0.0
			if s.NRays > 1 {
				frac = float64(r) / float64(s.NRays-1)
			}
			span := s.EndTime.Sub(s.StartTime)
			rayTime = append(rayTime, s.StartTime.Add(time.Duration(frac*float64(span))))
			ray++
		}
		sweepStart = append(sweepStart, start)
		sweepEnd = append(sweepEnd, ray)
	}
	return
}

func instrumentParamsFrom(sweeps []SweepMeta) InstrumentParams {
	if len(sweeps) == 0 {
		return InstrumentParams{}
	}
	s := sweeps[0]
	return InstrumentParams{NyquistVelocity: s.Nyquist, PulseWidth: s.PulseWidth, PRT: s.PRT}
}
