package decode

import (
	"testing"
	"time"
)

func sweep(nrays, ngates int, gateSize, gateOffset float64) SweepMeta {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return SweepMeta{
		NRays: nrays, NGates: ngates, GateSize: gateSize, GateOffset: gateOffset,
		StartTime: start, EndTime: start.Add(time.Minute), FixedAngle: 0.5,
	}
}

func rows(n, gates int, val float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, gates)
		for g := range row {
			row[g] = val
		}
		out[i] = row
	}
	return out
}

func TestAlign_PadsNarrowerFieldWithMissingValue(t *testing.T) {
	dbzh := &VolumeDict{
		Field:  "DBZH",
		Data:   rows(4, 100, 10.0),
		Sweeps: []SweepMeta{sweep(4, 100, 250, 0)},
	}
	vrad := &VolumeDict{
		Field:  "VRAD",
		Data:   rows(4, 60, 5.0),
		Sweeps: []SweepMeta{sweep(4, 60, 250, 0)},
	}

	obj, err := Align("0315", "01", []*VolumeDict{dbzh, vrad})
	if err != nil {
		t.Fatal(err)
	}

	var vradLayer *FieldLayer
	for i := range obj.Fields {
		if obj.Fields[i].Name == "VRAD" {
			vradLayer = &obj.Fields[i]
		}
	}
	if vradLayer == nil {
		t.Fatal("expected VRAD field layer present")
	}
	if len(vradLayer.Data[0]) != 100 {
		t.Fatalf("expected VRAD reshaped to 100 gates, got %d", len(vradLayer.Data[0]))
	}
	if vradLayer.Data[0][99] != MissingValue {
		t.Fatalf("expected padded gate to carry the missing-value sentinel, got %v", vradLayer.Data[0][99])
	}
	if vradLayer.Data[0][0] != 5.0 {
		t.Fatalf("expected original data preserved, got %v", vradLayer.Data[0][0])
	}
}

func TestAlign_SelectsGreatestOutermostRangeAsReference(t *testing.T) {
	narrow := &VolumeDict{Field: "DBZH", Data: rows(2, 50, 1), Sweeps: []SweepMeta{sweep(2, 50, 100, 0)}}
	wide := &VolumeDict{Field: "VRAD", Data: rows(2, 200, 1), Sweeps: []SweepMeta{sweep(2, 200, 100, 0)}}

	obj, err := Align("0315", "01", []*VolumeDict{narrow, wide})
	if err != nil {
		t.Fatal(err)
	}
	if len(obj.Range) != 200 {
		t.Fatalf("expected reference grid of 200 gates (widest field), got %d", len(obj.Range))
	}
}

func TestAlign_RejectsMismatchedRayCount(t *testing.T) {
	a := &VolumeDict{Field: "DBZH", Data: rows(4, 50, 1), Sweeps: []SweepMeta{sweep(4, 50, 100, 0)}}
	b := &VolumeDict{Field: "VRAD", Data: rows(3, 50, 1), Sweeps: []SweepMeta{sweep(3, 50, 100, 0)}}

	_, err := Align("0315", "01", []*VolumeDict{a, b})
	if err == nil {
		t.Fatal("expected geometry mismatch error for differing ray counts")
	}
}

func TestAlign_RejectsSweepCountMismatch(t *testing.T) {
	a := &VolumeDict{Field: "DBZH", Data: rows(4, 50, 1), Sweeps: []SweepMeta{sweep(4, 50, 100, 0)}}
	b := &VolumeDict{Field: "VRAD", Data: rows(8, 50, 1), Sweeps: []SweepMeta{sweep(4, 50, 100, 0), sweep(4, 50, 100, 0)}}

	_, err := Align("0315", "01", []*VolumeDict{a, b})
	if err == nil {
		t.Fatal("expected geometry mismatch error for differing sweep counts")
	}
}

func TestRadarObject_ValidateCatchesShapeMismatch(t *testing.T) {
	obj := &RadarObject{
		Azimuth: make([]float64, 4),
		Range:   make([]float64, 10),
		Fields:  []FieldLayer{{Name: "DBZH", Data: rows(4, 5, 0)}},
	}
	if err := obj.Validate(); err == nil {
		t.Fatal("expected validation error for field gate count not matching range axis")
	}
}
