package decode

import (
	"github.com/fly-io/162719/pkg/catalog"
)

// DecodeRequest is the FSM input: one volume's constituent completed files.
type DecodeRequest struct {
	VolumeID catalog.VolumeID
	Files    []catalog.File
}

// DecodeResponse accumulates results across FSM transitions.
type DecodeResponse struct {
	Decoded      []*VolumeDict
	RadarObject  *RadarObject
	OutputPath   string
	Status       string
	ErrorClass   string
	ErrorMessage string
}

// State names for the per-volume decode/convert pipeline.
const (
	StateDecodeFiles = "decode_files"
	StateAlign       = "align"
	StateWrite       = "write_container"
	StateComplete    = "complete"
	StateFailed      = "failed"
)
