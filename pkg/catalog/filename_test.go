package catalog

import (
	"testing"
	"time"
)

func TestParseFilename_Valid(t *testing.T) {
	p, err := ParseFilename("RMA1_0315_01_DBZH_20250101T120000Z.BUFR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Radar != "RMA1" || p.VolumeCode != "0315" || p.VolumeNum != "01" || p.Field != "DBZH" {
		t.Fatalf("unexpected parse result: %+v", p)
	}
	if p.Ext != "BUFR" {
		t.Fatalf("expected ext BUFR, got %s", p.Ext)
	}
	want := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if !p.Observation.Equal(want) {
		t.Fatalf("expected observation %v, got %v", want, p.Observation)
	}
}

func TestParseFilename_RejectsMalformed(t *testing.T) {
	cases := []string{
		"noext",
		"RMA1_0315_01_DBZH.BUFR",
		"RMA1_0315_01_DBZH_not-a-date.BUFR",
	}
	for _, c := range cases {
		if _, err := ParseFilename(c); err == nil {
			t.Fatalf("expected error parsing %q", c)
		}
	}
}

func TestVolumeID_DropsField(t *testing.T) {
	a, _ := ParseFilename("RMA1_0315_01_DBZH_20250101T120000Z.BUFR")
	b, _ := ParseFilename("RMA1_0315_01_VRAD_20250101T120000Z.BUFR")

	if a.VolumeID() != b.VolumeID() {
		t.Fatalf("expected same volume id for different fields: %v vs %v", a.VolumeID(), b.VolumeID())
	}
}

func TestVolumeID_EncodeRoundTripsDeterministically(t *testing.T) {
	p, _ := ParseFilename("RMA1_0315_01_DBZH_20250101T120000Z.BUFR")
	id := p.VolumeID()

	if id.Encode() != "RMA1_0315_01_20250101T120000Z" {
		t.Fatalf("unexpected encoding: %s", id.Encode())
	}
	if id.Encode() != id.Encode() {
		t.Fatal("expected deterministic encoding")
	}
}

func TestParsedFilename_RemotePath(t *testing.T) {
	p, _ := ParseFilename("RMA1_0315_01_DBZH_20250101T120000Z.BUFR")
	got := p.RemotePath("/L2")
	want := "/L2/RMA1/2025/01/01/12/0000/RMA1_0315_01_DBZH_20250101T120000Z.BUFR"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestVolumeID_OutputContainerPath(t *testing.T) {
	p, _ := ParseFilename("RMA1_0315_01_DBZH_20250101T120000Z.BUFR")
	got := p.VolumeID().OutputContainerPath("/out", "nc")
	want := "/out/RMA1/2025/01/01/RMA1_0315_01_20250101T120000Z.nc"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFieldSetContains(t *testing.T) {
	if !FieldSetContains([]string{"DBZH", "VRAD", "EXTRA"}, []string{"DBZH", "VRAD"}) {
		t.Fatal("expected superset to contain expected set")
	}
	if FieldSetContains([]string{"DBZH"}, []string{"DBZH", "VRAD"}) {
		t.Fatal("expected missing VRAD to fail containment")
	}
}
