// Package decode implements the Decoder/Converter (C5): a foreign-interface
// adapter around the legacy binary-format decoder, alignment of
// heterogeneous sub-products onto a common range grid, and persistence of
// the resulting canonical radar object to a container file.
package decode

import (
	"context"
	"fmt"
	"time"
)

// MissingValue is the sentinel carried in VolumeDict.Data for missing gates,
// and padded into any field reshaped onto a larger reference grid.
const MissingValue = -9999.0

// SweepMeta is one row of the decoder's per-sweep metadata table.
type SweepMeta struct {
	NRays      int
	NGates     int
	GateSize   float64
	GateOffset float64
	StartTime  time.Time
	EndTime    time.Time
	FixedAngle float64
	PRT        float64
	PulseWidth float64
	Nyquist    float64
	ScanRate   float64
}

// VolumeMeta carries per-volume metadata the decoder extracts from the
// file header: radar identifier, radar position, and observation instant.
// Instrument parameters are carried per sweep in SweepMeta.
type VolumeMeta struct {
	Radar             string
	Latitude          float64
	Longitude         float64
	AltitudeMeters    float64
	ObservationInstant time.Time
}

// VolumeDict is the decoder's output contract: a 2-D float array of shape
// (total_rays, gates) plus the metadata needed to reconstruct axes.
type VolumeDict struct {
	Field      string
	Data       [][]float64 // total_rays x gates
	Meta       VolumeMeta
	Sweeps     []SweepMeta
}

// outermostRange is the greatest range this field's outermost gate covers:
// start_range + gate_size * gate_count, used to pick the alignment
// reference field (spec step 2).
func (v *VolumeDict) outermostRange() float64 {
	var max float64
	for _, s := range v.Sweeps {
		r := s.GateOffset + s.GateSize*float64(s.NGates)
		if r > max {
			max = r
		}
	}
	return max
}

// Decoder is the foreign-interface boundary to the legacy native binary
// decoder. Implementations call out to the external routine; the core only
// depends on this interface, per the decoder being treated as a black box.
type Decoder interface {
	Decode(ctx context.Context, filePath, resourcesDir string) (*VolumeDict, error)
}

// UnimplementedDecoder satisfies Decoder by always failing, standing in for
// the native library binding a deployment must supply.
type UnimplementedDecoder struct{}

func (UnimplementedDecoder) Decode(ctx context.Context, filePath, resourcesDir string) (*VolumeDict, error) {
	return nil, fmt.Errorf("decode: no native decoder configured, cannot decode %s", filePath)
}
