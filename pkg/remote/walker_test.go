package remote

import (
	"context"
	"testing"
	"time"

	"github.com/fly-io/162719/pkg/errors"
)

type fakeLister struct {
	dirs map[string][]Entry
}

func (f *fakeLister) ListDir(ctx context.Context, prefix string) ([]Entry, error) {
	entries, ok := f.dirs[prefix]
	if !ok {
		return nil, errors.New(errors.ClassFileNotFound, nil)
	}
	return entries, nil
}

func TestCalendarWalker_YieldsFilesInBucketOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	lister := &fakeLister{dirs: map[string][]Entry{
		"/archive/RMA1/2025/01/01/12/": {
			{Name: "0030", IsDirectory: true},
			{Name: "0000", IsDirectory: true},
		},
		"/archive/RMA1/2025/01/01/12/0000/": {
			{Name: "RMA1_0315_01_DBZH_20250101T120000Z.BUFR"},
			{Name: "RMA1_0315_01_DBZH_20250101T120000Z.txt"},
		},
		"/archive/RMA1/2025/01/01/12/0030/": {
			{Name: "RMA1_0315_01_VRAD_20250101T123000Z.BUFR"},
		},
	}}

	w := NewCalendarWalker(lister, "/archive", "RMA1", ".BUFR", start, &end)

	var got []string
	for {
		c, ok, err := w.Next(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		got = append(got, c.Filename)
	}

	want := []string{
		"RMA1_0315_01_DBZH_20250101T120000Z.BUFR",
		"RMA1_0315_01_VRAD_20250101T123000Z.BUFR",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCalendarWalker_TreatsMissingHourAsExhaustedNotError(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	lister := &fakeLister{dirs: map[string][]Entry{}}
	w := NewCalendarWalker(lister, "/archive", "RMA1", ".BUFR", start, &end)

	_, ok, err := w.Next(context.Background())
	if err != nil {
		t.Fatalf("expected missing hour directories to be tolerated, got %v", err)
	}
	if ok {
		t.Fatal("expected no candidates when every hour directory is absent")
	}
}

func TestCalendarWalker_FiltersByExtension(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	end := start

	lister := &fakeLister{dirs: map[string][]Entry{
		"/archive/RMA1/2025/01/01/12/": {
			{Name: "0000", IsDirectory: true},
		},
		"/archive/RMA1/2025/01/01/12/0000/": {
			{Name: "RMA1_0315_01_DBZH_20250101T120000Z.txt"},
		},
	}}

	w := NewCalendarWalker(lister, "/archive", "RMA1", ".BUFR", start, &end)
	_, ok, err := w.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected non-matching extension to be filtered out")
	}
}
