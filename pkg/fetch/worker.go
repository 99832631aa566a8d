// Package fetch implements the Fetcher (C3): walking the remote calendar
// hierarchy, downloading files the state store doesn't already have, and
// handing each completed file to the Volume Assembler.
package fetch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fly-io/162719/pkg/assemble"
	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/remote"
	"github.com/fly-io/162719/pkg/store"
)

// Downloader is the subset of remote.Client the Fetcher needs; tests
// substitute a fake.
type Downloader interface {
	Download(ctx context.Context, remoteKey, localTempPath string) (*remote.DownloadResult, error)
}

// Worker runs the bounded-concurrency pool that walks the remote tree and
// downloads new files (spec.md §4.3, default 5 concurrent downloads).
type Worker struct {
	store      *store.Store
	downloader Downloader
	walker     *remote.CalendarWalker
	assembler  *assemble.Assembler
	rawDir     string

	// resumePartial gates what happens to a failed download's temp file
	// (spec.md §4.3 step 5): kept for the next attempt when true, deleted
	// immediately when false.
	resumePartial bool

	concurrency  int
	pollInterval time.Duration
}

// NewWorker builds a Fetcher Worker.
func NewWorker(st *store.Store, downloader Downloader, walker *remote.CalendarWalker, assembler *assemble.Assembler, rawDir string, resumePartial bool, concurrency int, pollInterval time.Duration) *Worker {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Worker{
		store:         st,
		downloader:    downloader,
		walker:        walker,
		assembler:     assembler,
		rawDir:        rawDir,
		resumePartial: resumePartial,
		concurrency:   concurrency,
		pollInterval:  pollInterval,
	}
}

// Run walks the remote tree and downloads new files until ctx is cancelled.
// Candidates are pulled one at a time from the (stateful, non-concurrent)
// walker, then fanned out across a bounded pool of concurrent downloads.
func (w *Worker) Run(ctx context.Context, draining func() bool) {
	sem := make(chan struct{}, w.concurrency)

	for {
		if ctx.Err() != nil {
			return
		}
		if draining != nil && draining() {
			return
		}

		batch, exhausted, err := w.collectBatch(ctx, w.concurrency*4)
		if err != nil {
			slog.Error("fetch_worker_walk_failed", "error", err)
			if !sleepOrDone(ctx, w.pollInterval) {
				return
			}
			continue
		}

		if len(batch) == 0 {
			if exhausted {
				slog.Info("fetch_worker_caught_up")
			}
			if !sleepOrDone(ctx, w.pollInterval) {
				return
			}
			continue
		}

		done := make(chan struct{}, len(batch))
		for _, c := range batch {
			sem <- struct{}{}
			go func(c remote.Candidate) {
				defer func() { <-sem; done <- struct{}{} }()
				w.processCandidate(ctx, c)
			}(c)
		}
		for range batch {
			<-done
		}
	}
}

func (w *Worker) collectBatch(ctx context.Context, n int) ([]remote.Candidate, bool, error) {
	var batch []remote.Candidate
	for len(batch) < n {
		c, ok, err := w.walker.Next(ctx)
		if err != nil {
			return batch, false, err
		}
		if !ok {
			return batch, true, nil
		}
		batch = append(batch, c)
	}
	return batch, false, nil
}

func (w *Worker) processCandidate(ctx context.Context, c remote.Candidate) {
	parsed, err := catalog.ParseFilename(c.Filename)
	if err != nil {
		slog.Warn("fetch_worker_unparseable_filename", "filename", c.Filename, "error", err)
		return
	}

	done, err := w.store.IsFileCompleted(ctx, c.Filename)
	if err != nil {
		slog.Error("fetch_worker_completion_check_failed", "filename", c.Filename, "error", err)
		return
	}
	if done {
		return
	}

	// Deterministic per-filename, not a fresh random name per attempt, so a
	// retry's temp file is the same one a prior failed attempt may have left
	// behind when resume_partial keeps it around.
	tempPath := filepath.Join(w.rawDir, ".tmp-"+tempFileName(c.Filename))
	result, err := w.downloader.Download(ctx, c.RemotePath, tempPath)
	if err != nil {
		w.handleDownloadError(ctx, parsed, c, tempPath, result, err)
		return
	}

	finalPath, err := remote.SafeJoin(w.rawDir, c.Filename)
	if err != nil {
		os.Remove(tempPath)
		slog.Error("fetch_worker_unsafe_path", "filename", c.Filename, "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		os.Remove(tempPath)
		slog.Error("fetch_worker_mkdir_failed", "path", finalPath, "error", err)
		return
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		slog.Error("fetch_worker_rename_failed", "temp", tempPath, "final", finalPath, "error", err)
		return
	}

	f := catalog.File{
		Filename:    c.Filename,
		RemotePath:  c.RemotePath,
		LocalPath:   finalPath,
		Size:        result.Size,
		Digest:      result.SHA256,
		Radar:       parsed.Radar,
		Field:       parsed.Field,
		VolumeCode:  parsed.VolumeCode,
		VolumeNum:   parsed.VolumeNum,
		Observation: parsed.Observation,
		Status:      catalog.FileStatusCompleted,
	}

	if err := w.store.RecordCompletedFile(ctx, f); err != nil {
		slog.Error("fetch_worker_record_failed", "filename", c.Filename, "error", err)
		return
	}

	if err := w.assembler.AssembleFile(ctx, f); err != nil {
		slog.Error("fetch_worker_assemble_failed", "filename", c.Filename, "error", err)
	}
}

func (w *Worker) handleDownloadError(ctx context.Context, parsed catalog.ParsedFilename, c remote.Candidate, tempPath string, result *remote.DownloadResult, err error) {
	class := errors.ClassOf(err)

	base := catalog.File{
		Filename: c.Filename, RemotePath: c.RemotePath,
		Radar: parsed.Radar, Field: parsed.Field,
		VolumeCode: parsed.VolumeCode, VolumeNum: parsed.VolumeNum, Observation: parsed.Observation,
	}

	switch class {
	case errors.ClassFileNotFound:
		slog.Warn("fetch_worker_remote_file_missing", "filename", c.Filename)
		os.Remove(tempPath)
		if ferr := w.store.RecordFailedFile(ctx, base); ferr != nil {
			slog.Error("fetch_worker_record_failed_file_failed", "filename", c.Filename, "error", ferr)
		}
	case errors.ClassTransient:
		slog.Warn("fetch_worker_transient_failure", "filename", c.Filename, "error", err)

		var bytesDownloaded, totalBytes int64
		if result != nil {
			bytesDownloaded, totalBytes = result.Size, result.TotalBytes
		}
		p := catalog.PartialDownload{
			Filename: c.Filename, RemotePath: c.RemotePath, LocalPath: tempPath,
			BytesDownloaded: bytesDownloaded, TotalBytes: totalBytes,
			LastAttempt: time.Now().UTC(),
		}
		if perr := w.store.RecordPartial(ctx, p); perr != nil {
			slog.Error("fetch_worker_record_partial_failed", "filename", c.Filename, "error", perr)
		}

		if !w.resumePartial {
			os.Remove(tempPath)
		}
	default:
		slog.Error("fetch_worker_fatal_failure", "filename", c.Filename, "error", err)
		os.Remove(tempPath)
		if ferr := w.store.RecordFailedFile(ctx, base); ferr != nil {
			slog.Error("fetch_worker_record_failed_file_failed", "filename", c.Filename, "error", ferr)
		}
	}
}

// tempFileName derives a stable temp filename for a remote candidate so
// retries across traversal cycles reuse the same local path instead of
// minting a fresh one, which is what lets resume_partial's "keep the temp
// file" mean anything.
func tempFileName(filename string) string {
	return strings.ReplaceAll(filename, "/", "_")
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
