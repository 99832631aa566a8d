package decode

import (
	"context"
	"fmt"
)

// ContainerWriter serializes a RadarObject to the self-describing
// scientific container format (CF-Radial-like NetCDF). The concrete
// encoder is out of scope for this core — any writer satisfying the
// convention's layout (range axis, per-ray azimuth/elevation/time, sweep
// indices, one named field array per sub-product) is acceptable.
type ContainerWriter interface {
	Write(ctx context.Context, obj *RadarObject, outputPath string) error
}

// ContainerReader reads back a previously written container for rendering
// (C6). Separated from ContainerWriter since the Renderer only ever reads.
type ContainerReader interface {
	Read(ctx context.Context, path string) (*RadarObject, error)
}

// UnimplementedContainerCodec satisfies both ContainerWriter and
// ContainerReader by always failing, standing in for the concrete
// NetCDF/HDF5 codec a deployment must supply.
type UnimplementedContainerCodec struct{}

func (UnimplementedContainerCodec) Write(ctx context.Context, obj *RadarObject, outputPath string) error {
	return fmt.Errorf("decode: no container codec configured, cannot write %s", outputPath)
}

func (UnimplementedContainerCodec) Read(ctx context.Context, path string) (*RadarObject, error) {
	return nil, fmt.Errorf("decode: no container codec configured, cannot read %s", path)
}
