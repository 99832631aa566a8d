package fetch

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fly-io/162719/pkg/assemble"
	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/remote"
	"github.com/fly-io/162719/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/state.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

type fakeLister struct {
	entries map[string][]remote.Entry
}

func (f *fakeLister) ListDir(ctx context.Context, prefix string) ([]remote.Entry, error) {
	e, ok := f.entries[prefix]
	if !ok {
		return nil, errors.New(errors.ClassFileNotFound, fmt.Errorf("no such prefix %q", prefix))
	}
	return e, nil
}

type fakeDownloader struct {
	fail map[string]error
}

func (f *fakeDownloader) Download(ctx context.Context, remoteKey, localTempPath string) (*remote.DownloadResult, error) {
	if err, ok := f.fail[remoteKey]; ok {
		return nil, err
	}
	if err := os.WriteFile(localTempPath, []byte("data"), 0o644); err != nil {
		return nil, err
	}
	return &remote.DownloadResult{LocalPath: localTempPath, SHA256: "deadbeef", Size: 4}, nil
}

func TestWorker_DownloadsAndAssemblesNewFile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	hour := "/base/RMA1/2026/01/01/12"
	lister := &fakeLister{entries: map[string][]remote.Entry{
		hour + "/": {{Name: "0000", IsDirectory: true}},
		hour + "/0000/": {{Name: "RMA1_0315_01_DBZH_20260101T120000Z.BUFR", Size: 4}},
	}}
	walker := remote.NewCalendarWalker(lister, "/base", "RMA1", ".BUFR", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), timePtr(time.Date(2026, 1, 1, 13, 0, 0, 0, time.UTC)))

	downloader := &fakeDownloader{fail: map[string]error{}}
	expected := catalog.ExpectedSet{"0315": {"01": {"DBZH"}}}
	asm := assemble.NewAssembler(st, expected, false)

	w := NewWorker(st, downloader, walker, asm, t.TempDir(), true, 2, time.Millisecond)

	batch, _, err := w.collectBatch(ctx, 10)
	if err != nil {
		t.Fatalf("collect batch: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(batch))
	}

	w.processCandidate(ctx, batch[0])

	done, err := st.IsFileCompleted(ctx, "RMA1_0315_01_DBZH_20260101T120000Z.BUFR")
	if err != nil {
		t.Fatalf("is completed: %v", err)
	}
	if !done {
		t.Fatal("expected file to be recorded completed")
	}

	id := catalog.VolumeID{Radar: "RMA1", VolumeCode: "0315", VolumeNum: "01", Observation: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	v, err := st.GetVolume(ctx, id)
	if err != nil {
		t.Fatalf("get volume: %v", err)
	}
	if v == nil || !v.IsComplete {
		t.Fatal("expected volume assembled and complete")
	}
}

func TestWorker_SkipsAlreadyCompletedFile(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	f := catalog.File{
		Filename: "RMA1_0315_01_DBZH_20260101T120000Z.BUFR", Radar: "RMA1",
		VolumeCode: "0315", VolumeNum: "01", Field: "DBZH",
		Observation: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := st.RecordCompletedFile(ctx, f); err != nil {
		t.Fatalf("seed completed file: %v", err)
	}

	downloader := &fakeDownloader{fail: map[string]error{"remote/path": fmt.Errorf("should not be called")}}
	expected := catalog.ExpectedSet{"0315": {"01": {"DBZH"}}}
	asm := assemble.NewAssembler(st, expected, false)
	w := NewWorker(st, downloader, nil, asm, t.TempDir(), true, 2, time.Millisecond)

	w.processCandidate(ctx, remote.Candidate{RemotePath: "remote/path", Filename: f.Filename})

	// Had the download been attempted, the fake's unclassified error would
	// have been recorded as a failed File row over the completed one.
	done, err := st.IsFileCompleted(ctx, f.Filename)
	if err != nil {
		t.Fatalf("is completed: %v", err)
	}
	if !done {
		t.Fatal("expected already-completed file to be skipped and stay completed")
	}
}

func TestWorker_RecordsPartialOnTransientFailure(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	downloader := &fakeDownloader{fail: map[string]error{
		"remote/path": errors.New(errors.ClassTransient, fmt.Errorf("connection reset")),
	}}
	expected := catalog.ExpectedSet{"0315": {"01": {"DBZH"}}}
	asm := assemble.NewAssembler(st, expected, false)
	w := NewWorker(st, downloader, nil, asm, t.TempDir(), true, 2, time.Millisecond)

	filename := "RMA1_0315_01_DBZH_20260101T120000Z.BUFR"
	w.processCandidate(ctx, remote.Candidate{RemotePath: "remote/path", Filename: filename})

	n, err := st.PartialDownloadCount(ctx)
	if err != nil {
		t.Fatalf("partial count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 partial download row, got %d", n)
	}

	p, ok, err := st.GetPartial(ctx, filename)
	if err != nil {
		t.Fatalf("get partial: %v", err)
	}
	if !ok {
		t.Fatal("expected partial row to exist")
	}
	if p.AttemptCount != 1 {
		t.Fatalf("expected attempt_count 1 on first failure, got %d", p.AttemptCount)
	}

	// A second sweep's failure for the same file increments attempt_count
	// rather than resetting it (spec.md §8 scenario 4).
	w.processCandidate(ctx, remote.Candidate{RemotePath: "remote/path", Filename: filename})

	p, ok, err = st.GetPartial(ctx, filename)
	if err != nil {
		t.Fatalf("get partial: %v", err)
	}
	if !ok {
		t.Fatal("expected partial row to still exist")
	}
	if p.AttemptCount != 2 {
		t.Fatalf("expected attempt_count 2 after second failure, got %d", p.AttemptCount)
	}
}

func TestWorker_DeletesTempFileOnTransientFailureWhenResumePartialDisabled(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rawDir := t.TempDir()

	downloader := &fakeDownloader{fail: map[string]error{
		"remote/path": errors.New(errors.ClassTransient, fmt.Errorf("connection reset")),
	}}
	expected := catalog.ExpectedSet{"0315": {"01": {"DBZH"}}}
	asm := assemble.NewAssembler(st, expected, false)
	w := NewWorker(st, downloader, nil, asm, rawDir, false, 2, time.Millisecond)

	filename := "RMA1_0315_01_DBZH_20260101T120000Z.BUFR"
	w.processCandidate(ctx, remote.Candidate{RemotePath: "remote/path", Filename: filename})

	p, ok, err := st.GetPartial(ctx, filename)
	if err != nil {
		t.Fatalf("get partial: %v", err)
	}
	if !ok {
		t.Fatal("expected partial row to exist")
	}
	if _, statErr := os.Stat(p.LocalPath); !os.IsNotExist(statErr) {
		t.Fatalf("expected temp file %s to be deleted when resume_partial is false, stat err: %v", p.LocalPath, statErr)
	}
}

func TestWorker_KeepsTempFileOnTransientFailureWhenResumePartialEnabled(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	rawDir := t.TempDir()

	downloader := &partialWriteDownloader{fail: map[string]error{
		"remote/path": errors.New(errors.ClassTransient, fmt.Errorf("connection reset")),
	}}
	expected := catalog.ExpectedSet{"0315": {"01": {"DBZH"}}}
	asm := assemble.NewAssembler(st, expected, false)
	w := NewWorker(st, downloader, nil, asm, rawDir, true, 2, time.Millisecond)

	filename := "RMA1_0315_01_DBZH_20260101T120000Z.BUFR"
	w.processCandidate(ctx, remote.Candidate{RemotePath: "remote/path", Filename: filename})

	p, ok, err := st.GetPartial(ctx, filename)
	if err != nil {
		t.Fatalf("get partial: %v", err)
	}
	if !ok {
		t.Fatal("expected partial row to exist")
	}
	if p.BytesDownloaded != 2 {
		t.Fatalf("expected partial byte count 2, got %d", p.BytesDownloaded)
	}
	if _, statErr := os.Stat(p.LocalPath); statErr != nil {
		t.Fatalf("expected temp file %s to be kept when resume_partial is true, stat err: %v", p.LocalPath, statErr)
	}
}

// partialWriteDownloader writes a few bytes before failing, simulating a
// transport error partway through a streamed download.
type partialWriteDownloader struct {
	fail map[string]error
}

func (f *partialWriteDownloader) Download(ctx context.Context, remoteKey, localTempPath string) (*remote.DownloadResult, error) {
	err, ok := f.fail[remoteKey]
	if !ok {
		return nil, fmt.Errorf("unexpected key %q", remoteKey)
	}
	if werr := os.WriteFile(localTempPath, []byte("da"), 0o644); werr != nil {
		return nil, werr
	}
	return &remote.DownloadResult{LocalPath: localTempPath, Size: 2, TotalBytes: 4}, err
}

func timePtr(t time.Time) *time.Time { return &t }
