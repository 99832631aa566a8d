// Package assemble implements the Volume Assembler (C4): the synchronous,
// per-file step that runs immediately after the Fetcher records a completed
// download, folding the file into its volume's bookkeeping row.
package assemble

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
	"github.com/fly-io/162719/pkg/store"
)

// Assembler maps completed files onto volume rows.
type Assembler struct {
	store    *store.Store
	expected catalog.ExpectedSet
	allowUndeclared bool
}

// NewAssembler builds an Assembler. allowUndeclared controls behavior when a
// (vol_code, vol_num) pair has no entry in expected: true falls back to
// treating the file's own field as the sole expected field (the volume is
// complete the moment this one file lands); false refuses the file.
func NewAssembler(st *store.Store, expected catalog.ExpectedSet, allowUndeclared bool) *Assembler {
	return &Assembler{store: st, expected: expected, allowUndeclared: allowUndeclared}
}

// AssembleFile implements the Assembler's trigger: given a just-completed
// file, ensure its volume row exists with the right expected-field set, then
// fold the file's field into it. Idempotent — replaying the same file is a
// no-op beyond the first call.
func (a *Assembler) AssembleFile(ctx context.Context, f catalog.File) error {
	id := catalog.VolumeID{Radar: f.Radar, VolumeCode: f.VolumeCode, VolumeNum: f.VolumeNum, Observation: f.Observation}

	expectedFields, ok := a.expected.Lookup(f.VolumeCode, f.VolumeNum)
	if !ok {
		if !a.allowUndeclared {
			slog.Error("assemble_undeclared_volume", "volume_id", id.Encode(), "vol_code", f.VolumeCode, "vol_num", f.VolumeNum)
			return errors.New(errors.ClassFatal, fmt.Errorf("no expected-field declaration for vol_code=%s vol_num=%s", f.VolumeCode, f.VolumeNum))
		}
		expectedFields = []string{f.Field}
	}

	if err := a.store.UpsertVolume(ctx, id, expectedFields); err != nil {
		return errors.Wrap(err, "assemble: failed to upsert volume")
	}

	if err := a.store.AddFieldToVolume(ctx, id, f.Field); err != nil {
		return errors.Wrap(err, "assemble: failed to add field to volume")
	}

	slog.Info("assemble_file_complete", "volume_id", id.Encode(), "field", f.Field)
	return nil
}
