package render

import "github.com/fly-io/162719/pkg/decode"

// fieldAliases maps decoder-native field names onto the canonical set this
// package renders under (FieldRenderSpec keys). Grounded on the Python
// system's field-name remapping table in radarlib/config.py, which carries
// the same DBZH/ZH-style aliases from different source formats.
var fieldAliases = map[string]string{
	"ZH":    "DBZH",
	"DBZ":   "DBZH",
	"RHOHV": "RHOHV",
	"RHO":   "RHOHV",
	"PHIDP": "PHIDP",
	"PHI":   "PHIDP",
	"KDP":   "KDP",
	"ZDR":   "ZDR",
	"VEL":   "VRAD",
	"VRAD":  "VRAD",
	"WIDTH": "WRAD",
	"WRAD":  "WRAD",
}

// Standardize renames each field layer in place to its canonical name, per
// spec.md §4.6 step 4 ("standardize field names to the canonical set").
// Unrecognized field names are left untouched rather than dropped, so an
// unexpected sub-product still survives to later inspection.
func Standardize(obj *decode.RadarObject) {
	for i := range obj.Fields {
		if canonical, ok := fieldAliases[obj.Fields[i].Name]; ok {
			obj.Fields[i].Name = canonical
		}
	}
}

// applyQCMask returns a copy of data with every gate failing the configured
// rhohv/wrad thresholds replaced by the missing-value sentinel, used to
// produce each field's filtered plotting variant.
func applyQCMask(data [][]float64, rhohv, wrad *decode.FieldLayer, thresholds ColmaxThresholds) [][]float64 {
	out := make([][]float64, len(data))
	for r, row := range data {
		masked := make([]float64, len(row))
		copy(masked, row)
		for g := range masked {
			if masked[g] == decode.MissingValue {
				continue
			}
			if thresholds.RhohvFilter && rhohv != nil && r < len(rhohv.Data) && g < len(rhohv.Data[r]) && rhohv.Data[r][g] < thresholds.RhohvUmbral {
				masked[g] = decode.MissingValue
				continue
			}
			if thresholds.WradFilter && wrad != nil && r < len(wrad.Data) && g < len(wrad.Data[r]) && wrad.Data[r][g] > thresholds.WradUmbral {
				masked[g] = decode.MissingValue
			}
		}
		out[r] = masked
	}
	return out
}
