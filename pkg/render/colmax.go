package render

import (
	"fmt"
	"math"

	"github.com/fly-io/162719/pkg/decode"
)

const azimuthBins = 360

// Colmax computes the vertical-maximum reflectivity derived field: for each
// (azimuth bin, gate), the maximum reflectivity value across every sweep at
// that azimuth, after masking out gates that fail the configured rhohv and
// wrad quality-control thresholds. The tdr threshold (TdrFilter/TdrUmbral)
// is not applied. Grounded on the Python system's colmax module.
func Colmax(obj *decode.RadarObject, thresholds ColmaxThresholds) (*decode.FieldLayer, error) {
	refl := findField(obj, "DBZH")
	if refl == nil {
		return nil, fmt.Errorf("colmax: DBZH field required, not present in container")
	}

	rhohv := findField(obj, "RHOHV")
	wrad := findField(obj, "WRAD")

	gates := len(obj.Range)
	out := make([][]float64, azimuthBins)
	for i := range out {
		out[i] = make([]float64, gates)
		for g := range out[i] {
			out[i][g] = decode.MissingValue
		}
	}

	for ray := range refl.Data {
		az := obj.Azimuth[ray]
		bin := int(math.Mod(az, 360) / (360.0 / azimuthBins))
		if bin < 0 {
			bin += azimuthBins
		}
		for g := 0; g < gates; g++ {
			v := refl.Data[ray][g]
			if v == decode.MissingValue {
				continue
			}
			if thresholds.RhohvFilter && rhohv != nil && rhohv.Data[ray][g] < thresholds.RhohvUmbral {
				continue
			}
			if thresholds.WradFilter && wrad != nil && wrad.Data[ray][g] > thresholds.WradUmbral {
				continue
			}
			if out[bin][g] == decode.MissingValue || v > out[bin][g] {
				out[bin][g] = v
			}
		}
	}

	return &decode.FieldLayer{Name: "COLMAX", Data: out}, nil
}

func findField(obj *decode.RadarObject, name string) *decode.FieldLayer {
	for i := range obj.Fields {
		if obj.Fields[i].Name == name {
			return &obj.Fields[i]
		}
	}
	return nil
}
