package render

import "fmt"

// Plot describes one raster to be produced: a single field, at a single
// elevation (sweep index), over one of the two variants (quality-control
// filtered or raw).
type Plot struct {
	Field      string
	Elevation  int
	Data       [][]float64
	VMin, VMax float64
	Colormap   string
	Filtered   bool
	OutputPath string
}

// Plotter renders a Plot to a bitmap file. The concrete rasterizer (colormap
// lookup, axis labeling, image encoding) is out of scope here — any plotter
// satisfying this contract can be wired in.
type Plotter interface {
	Plot(p Plot) error
}

// UnimplementedPlotter satisfies Plotter by always failing, standing in for
// the rasterizer a deployment must supply.
type UnimplementedPlotter struct{}

func (UnimplementedPlotter) Plot(p Plot) error {
	return fmt.Errorf("render: no plotter configured, cannot write %s", p.OutputPath)
}
