// Package catalog defines the entities persisted by the state store: File,
// PartialDownload, Volume, and Product records, plus the single filename
// parser every component depends on.
package catalog

import "time"

// Volume processing status, monotonic except for the stuck-work sweep's
// processing -> pending reset and the operator requeue's failed -> pending
// reset.
const (
	VolumeStatusPending    = "pending"
	VolumeStatusProcessing = "processing"
	VolumeStatusCompleted  = "completed"
	VolumeStatusFailed     = "failed"
)

// File status. A File row is only created once a download attempt has
// ended: completed, or failed when the remote file is missing or the error
// is fatal. There is no separate "downloading" status because in-flight
// downloads live in the PartialDownload table instead.
const (
	FileStatusCompleted = "completed"
	FileStatusFailed    = "failed"
)

// Product status, one row per (volume, product_type).
const (
	ProductStatusPending    = "pending"
	ProductStatusProcessing = "processing"
	ProductStatusCompleted  = "completed"
	ProductStatusFailed     = "failed"
)

// File represents one remote artifact and its local materialization.
type File struct {
	Filename    string
	RemotePath  string
	LocalPath   string
	Size        int64
	Digest      string
	Radar       string
	Field       string
	VolumeCode  string
	VolumeNum   string
	Observation time.Time
	Status      string
	CreatedAt   time.Time
}

// PartialDownload is transient retry state for an in-flight fetch.
// AttemptCount is maintained by the store itself (store.RecordPartial
// increments it on every call for a given filename); callers only need to
// supply it when reading a row back, never when writing one.
type PartialDownload struct {
	Filename        string
	RemotePath      string
	LocalPath       string
	BytesDownloaded int64
	TotalBytes      int64
	AttemptCount    int
	LastAttempt     time.Time
}

// Volume is the logical grouping of files that together constitute one
// radar scan volume.
type Volume struct {
	VolumeID         string
	Radar            string
	VolumeCode       string
	VolumeNum        string
	Observation      time.Time
	ExpectedFields   []string
	DownloadedFields []string
	IsComplete       bool
	Status           string
	OutputPath       string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Product is one generated visualization artifact for one volume.
type Product struct {
	VolumeID     string
	ProductType  string
	Status       string
	GeneratedAt  time.Time
	ErrorType    string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ExpectedSet resolves the configuration-declared field list for a volume's
// (volume_code, volume_number) pair.
type ExpectedSet map[string]map[string][]string

// Lookup returns the expected fields for volcode/volnum, or nil and false if
// that pair is not declared in configuration.
func (e ExpectedSet) Lookup(volcode, volnum string) ([]string, bool) {
	byNum, ok := e[volcode]
	if !ok {
		return nil, false
	}
	fields, ok := byNum[volnum]
	return fields, ok
}

// FieldSetContains reports whether downloaded is a superset of expected.
func FieldSetContains(downloaded, expected []string) bool {
	have := make(map[string]struct{}, len(downloaded))
	for _, f := range downloaded {
		have[f] = struct{}{}
	}
	for _, f := range expected {
		if _, ok := have[f]; !ok {
			return false
		}
	}
	return true
}
