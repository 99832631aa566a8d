// Package render implements the Renderer (C6): reading a canonical
// container, standardizing field names, optionally deriving the
// vertical-maximum reflectivity field, and plotting one raster per
// elevation per configured field.
package render

// FieldRenderSpec is one field's plotting parameters: value range and
// colormap, for both the unfiltered and quality-controlled variants. Values
// are grounded on the Python system's per-field VMIN/VMAX/CMAP constants.
type FieldRenderSpec struct {
	Field          string
	VMin, VMax     float64
	Colormap       string
	VMinNoFilters  float64
	VMaxNoFilters  float64
	ColormapNoFilt string
}

// DefaultFieldSpecs is the standard set of rendered fields.
var DefaultFieldSpecs = map[string]FieldRenderSpec{
	"DBZH": {Field: "DBZH", VMin: -20, VMax: 70, Colormap: "grc_th", VMinNoFilters: -20, VMaxNoFilters: 70, ColormapNoFilt: "grc_th"},
	"RHOHV": {Field: "RHOHV", VMin: 0, VMax: 1, Colormap: "grc_rho", VMinNoFilters: 0, VMaxNoFilters: 1, ColormapNoFilt: "grc_rho"},
	"PHIDP": {Field: "PHIDP", VMin: -5, VMax: 360, Colormap: "grc_th", VMinNoFilters: -5, VMaxNoFilters: 360, ColormapNoFilt: "grc_th"},
	"KDP":   {Field: "KDP", VMin: -4, VMax: 8, Colormap: "jet", VMinNoFilters: -4, VMaxNoFilters: 8, ColormapNoFilt: "jet"},
	"ZDR":   {Field: "ZDR", VMin: -2, VMax: 7.5, Colormap: "grc_zdr", VMinNoFilters: -7.5, VMaxNoFilters: 7.5, ColormapNoFilt: "grc_zdr"},
	"VRAD":  {Field: "VRAD", VMin: -15, VMax: 15, Colormap: "grc_vrad", VMinNoFilters: -30, VMaxNoFilters: 30, ColormapNoFilt: "grc_vrad"},
	"WRAD":  {Field: "WRAD", VMin: -2, VMax: 6, Colormap: "grc_th", VMinNoFilters: -2, VMaxNoFilters: 6, ColormapNoFilt: "grc_th"},
}

// ColmaxThresholds are the quality-control gates applied before taking the
// column maximum for the derived vertical-maximum reflectivity field.
type ColmaxThresholds struct {
	RhohvFilter bool
	RhohvUmbral float64
	WradFilter  bool
	WradUmbral  float64
	TdrFilter   bool
	TdrUmbral   float64
	ElevLimit1  float64
}

// DefaultColmaxThresholds mirrors the Python system's COLMAX_* defaults.
var DefaultColmaxThresholds = ColmaxThresholds{
	RhohvFilter: true, RhohvUmbral: 0.8,
	WradFilter: true, WradUmbral: 4.6,
	TdrFilter: true, TdrUmbral: 8.5,
	ElevLimit1: 0.65,
}
