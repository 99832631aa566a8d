package remote

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/fly-io/162719/pkg/errors"
)

// Lister is the subset of Client the walker needs; tests substitute a fake.
type Lister interface {
	ListDir(ctx context.Context, prefix string) ([]Entry, error)
}

// CalendarWalker produces, in non-decreasing temporal order, candidate
// remote file paths under a radar's calendar-hierarchy tree:
// <base>/<radar>/<YYYY>/<MM>/<DD>/<HH>/<mmss>/<filename>.
type CalendarWalker struct {
	client    Lister
	basePath  string
	radar     string
	extension string

	cursor time.Time
	end    *time.Time

	// bucket listing cursor within the current hour
	hourBuckets    []string
	bucketIdx      int
	fileQueue      []string
	currentDir     string
	currentHourDir string
}

// NewCalendarWalker builds a walker starting at start (already resolved
// against the latest completed observation for radar by the caller) and
// bounded above by end, which may be nil for continuous operation.
func NewCalendarWalker(client Lister, basePath, radar, extension string, start time.Time, end *time.Time) *CalendarWalker {
	return &CalendarWalker{
		client:    client,
		basePath:  strings.TrimSuffix(basePath, "/"),
		radar:     radar,
		extension: extension,
		cursor:    start.Truncate(time.Hour).UTC(),
		end:       end,
	}
}

// Candidate is one yielded remote file.
type Candidate struct {
	RemotePath string
	Filename   string
}

// Next returns the next candidate, or ok=false once the walker has reached
// the upper bound of its window (config.end, or now for continuous
// operation) with no more buckets queued.
func (w *CalendarWalker) Next(ctx context.Context) (Candidate, bool, error) {
	for {
		if len(w.fileQueue) > 0 {
			name := w.fileQueue[0]
			w.fileQueue = w.fileQueue[1:]
			return Candidate{RemotePath: path.Join(w.currentDir, name), Filename: name}, true, nil
		}

		if w.bucketIdx < len(w.hourBuckets) {
			bucket := w.hourBuckets[w.bucketIdx]
			w.bucketIdx++
			w.currentDir = path.Join(w.currentHourDir, bucket) + "/"

			entries, err := w.client.ListDir(ctx, w.currentDir)
			if err != nil {
				if errors.ClassOf(err) == errors.ClassFileNotFound {
					continue
				}
				return Candidate{}, false, err
			}

			for _, e := range entries {
				if e.IsDirectory {
					continue
				}
				if w.extension != "" && !strings.HasSuffix(e.Name, w.extension) {
					continue
				}
				w.fileQueue = append(w.fileQueue, e.Name)
			}
			continue
		}

		upper := time.Now().UTC()
		if w.end != nil && w.end.Before(upper) {
			upper = *w.end
		}
		if w.cursor.After(upper) {
			return Candidate{}, false, nil
		}

		dir := w.hourDir()
		entries, err := w.client.ListDir(ctx, dir+"/")
		listedHour := w.cursor
		w.cursor = w.cursor.Add(time.Hour)
		if err != nil {
			if errors.ClassOf(err) == errors.ClassFileNotFound {
				slog.Info("remote_walker_hour_absent", "radar", w.radar, "hour", listedHour)
				continue
			}
			return Candidate{}, false, err
		}
		w.currentHourDir = dir

		var buckets []string
		for _, e := range entries {
			if e.IsDirectory {
				buckets = append(buckets, e.Name)
			}
		}
		sort.Strings(buckets)
		w.hourBuckets = buckets
		w.bucketIdx = 0
	}
}

func (w *CalendarWalker) hourDir() string {
	t := w.cursor
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02d", w.basePath, w.radar, t.Year(), t.Month(), t.Day(), t.Hour())
}
