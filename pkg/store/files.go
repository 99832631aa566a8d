package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
)

// RecordCompletedFile implements record_completed_file: the File row becomes
// present with status=completed and any partial row for the same key is
// deleted, both in one committed transaction. Safe to call twice for the
// same filename — the second call's file row simply overwrites the first.
func (s *Store) RecordCompletedFile(ctx context.Context, f catalog.File) error {
	slog.Info("store_record_completed_file", "filename", f.Filename, "radar", f.Radar, "field", f.Field)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (filename, remote_path, local_path, size, digest, radar, field, vol_code, vol_num, observation_instant, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			remote_path = excluded.remote_path,
			local_path = excluded.local_path,
			size = excluded.size,
			digest = excluded.digest,
			status = excluded.status
	`, f.Filename, f.RemotePath, f.LocalPath, f.Size, f.Digest, f.Radar, f.Field, f.VolumeCode, f.VolumeNum, f.Observation.UTC(), catalog.FileStatusCompleted)
	if err != nil {
		slog.Error("store_record_completed_file_failed", "filename", f.Filename, "error", err)
		return errors.Wrap(err, "failed to record completed file")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM partial_downloads WHERE filename = ?`, f.Filename); err != nil {
		slog.Error("store_delete_partial_failed", "filename", f.Filename, "error", err)
		return errors.Wrap(err, "failed to delete partial download row")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit completed file")
	}

	slog.Info("store_file_completed", "filename", f.Filename)
	return nil
}

// RecordPartial implements record_partial: upserts transient retry state,
// incrementing attempt_count server-side so repeated failures for the same
// filename accumulate (1 on first sight, +1 on every subsequent call)
// instead of the caller having to read the prior row back first. It refuses
// to write over an already-completed File row for the same key, preserving
// the invariant that the two never coexist.
func (s *Store) RecordPartial(ctx context.Context, p catalog.PartialDownload) error {
	slog.Info("store_record_partial", "filename", p.Filename)

	done, err := s.IsFileCompleted(ctx, p.Filename)
	if err != nil {
		return err
	}
	if done {
		slog.Warn("store_record_partial_skipped_already_completed", "filename", p.Filename)
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO partial_downloads (filename, remote_path, local_path, bytes_downloaded, total_bytes, attempt_count, last_attempt)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(filename) DO UPDATE SET
			remote_path = excluded.remote_path,
			local_path = excluded.local_path,
			bytes_downloaded = excluded.bytes_downloaded,
			total_bytes = excluded.total_bytes,
			attempt_count = partial_downloads.attempt_count + 1,
			last_attempt = excluded.last_attempt
	`, p.Filename, p.RemotePath, p.LocalPath, p.BytesDownloaded, p.TotalBytes, p.LastAttempt.UTC())
	if err != nil {
		slog.Error("store_record_partial_failed", "filename", p.Filename, "error", err)
		return errors.Wrap(err, "failed to record partial download")
	}

	return nil
}

// GetPartial returns the partial-download row for filename, if one exists.
func (s *Store) GetPartial(ctx context.Context, filename string) (catalog.PartialDownload, bool, error) {
	var p catalog.PartialDownload
	err := s.db.QueryRowContext(ctx, `
		SELECT filename, remote_path, local_path, bytes_downloaded, total_bytes, attempt_count, last_attempt
		FROM partial_downloads WHERE filename = ?
	`, filename).Scan(&p.Filename, &p.RemotePath, &p.LocalPath, &p.BytesDownloaded, &p.TotalBytes, &p.AttemptCount, &p.LastAttempt)
	if err == sql.ErrNoRows {
		return catalog.PartialDownload{}, false, nil
	}
	if err != nil {
		return catalog.PartialDownload{}, false, errors.Wrap(err, "failed to query partial download")
	}
	p.LastAttempt = p.LastAttempt.UTC()
	return p, true, nil
}

// RecordFailedFile implements record_failed_file: a terminal, non-retryable
// download failure becomes a File row with status=failed, and any partial
// download row for the same key is cleared, mirroring RecordCompletedFile's
// transactional shape.
func (s *Store) RecordFailedFile(ctx context.Context, f catalog.File) error {
	slog.Warn("store_record_failed_file", "filename", f.Filename, "radar", f.Radar, "field", f.Field)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (filename, remote_path, local_path, size, digest, radar, field, vol_code, vol_num, observation_instant, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET status = excluded.status
	`, f.Filename, f.RemotePath, f.LocalPath, f.Size, f.Digest, f.Radar, f.Field, f.VolumeCode, f.VolumeNum, f.Observation.UTC(), catalog.FileStatusFailed)
	if err != nil {
		return errors.Wrap(err, "failed to record failed file")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM partial_downloads WHERE filename = ?`, f.Filename); err != nil {
		return errors.Wrap(err, "failed to delete partial download row")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit failed file")
	}
	return nil
}

// IsFileCompleted implements is_file_completed.
func (s *Store) IsFileCompleted(ctx context.Context, filename string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM files WHERE filename = ? AND status = ?`, filename, catalog.FileStatusCompleted).Scan(&count)
	if err != nil {
		return false, errors.Wrap(err, "failed to query file completion")
	}
	return count > 0, nil
}

// LatestObservationInstant implements latest_observation_instant: the max
// observation_instant over completed File rows for radar, or ok=false if
// none exist.
func (s *Store) LatestObservationInstant(ctx context.Context, radar string) (instant time.Time, ok bool, err error) {
	var raw sql.NullTime
	err = s.db.QueryRowContext(ctx, `
		SELECT MAX(observation_instant) FROM files WHERE radar = ? AND status = ?
	`, radar, catalog.FileStatusCompleted).Scan(&raw)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "failed to query latest observation instant")
	}
	if !raw.Valid {
		return time.Time{}, false, nil
	}
	return raw.Time.UTC(), true, nil
}

// GetFilesForVolume returns the completed File rows that constitute id,
// used by the Converter to gather per-field inputs once a volume is claimed.
func (s *Store) GetFilesForVolume(ctx context.Context, id catalog.VolumeID) ([]catalog.File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, remote_path, local_path, size, digest, radar, field, vol_code, vol_num, observation_instant, status
		FROM files
		WHERE radar = ? AND vol_code = ? AND vol_num = ? AND observation_instant = ? AND status = ?
	`, id.Radar, id.VolumeCode, id.VolumeNum, id.Observation.UTC(), catalog.FileStatusCompleted)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query files for volume")
	}
	defer rows.Close()

	var out []catalog.File
	for rows.Next() {
		var f catalog.File
		if err := rows.Scan(&f.Filename, &f.RemotePath, &f.LocalPath, &f.Size, &f.Digest, &f.Radar, &f.Field, &f.VolumeCode, &f.VolumeNum, &f.Observation, &f.Status); err != nil {
			return nil, errors.Wrap(err, "failed to scan file row")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// PartialDownloadCount reports how many partial-download rows remain,
// used by the Supervisor to decide whether the window is
// exhausted (spec.md §6 exit conditions).
func (s *Store) PartialDownloadCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM partial_downloads`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count partial downloads")
	}
	return n, nil
}
