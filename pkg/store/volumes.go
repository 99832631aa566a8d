package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
)

func joinFields(fields []string) string { return strings.Join(fields, ",") }

func splitFields(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// UpsertVolume implements upsert_volume: ensures a row exists for volumeID
// with the given expected field set. Re-running is a no-op: once a row
// exists its expected set is never changed, matching configuration being
// authoritative.
func (s *Store) UpsertVolume(ctx context.Context, id catalog.VolumeID, expected []string) error {
	key := id.Encode()
	slog.Info("store_upsert_volume", "volume_id", key)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO volumes (volume_id, radar, vol_code, vol_num, observation_instant, expected_fields, downloaded_fields, is_complete, status)
		VALUES (?, ?, ?, ?, ?, ?, '', 0, ?)
		ON CONFLICT(volume_id) DO NOTHING
	`, key, id.Radar, id.VolumeCode, id.VolumeNum, id.Observation.UTC(), joinFields(expected), catalog.VolumeStatusPending)
	if err != nil {
		slog.Error("store_upsert_volume_failed", "volume_id", key, "error", err)
		return errors.Wrap(err, "failed to upsert volume")
	}
	return nil
}

// AddFieldToVolume implements add_field_to_volume: downloaded_fields grows
// by field (idempotently) and is_complete is recomputed against
// expected_fields in the same transaction.
func (s *Store) AddFieldToVolume(ctx context.Context, id catalog.VolumeID, field string) error {
	key := id.Encode()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var expectedRaw, downloadedRaw string
	if err := tx.QueryRowContext(ctx, `SELECT expected_fields, downloaded_fields FROM volumes WHERE volume_id = ?`, key).Scan(&expectedRaw, &downloadedRaw); err != nil {
		if err == sql.ErrNoRows {
			return errors.Wrap(err, "add_field_to_volume: volume row must exist (call UpsertVolume first)")
		}
		return errors.Wrap(err, "failed to read volume")
	}

	downloaded := splitFields(downloadedRaw)
	present := false
	for _, f := range downloaded {
		if f == field {
			present = true
			break
		}
	}
	if !present {
		downloaded = append(downloaded, field)
	}

	isComplete := catalog.FieldSetContains(downloaded, splitFields(expectedRaw))

	_, err = tx.ExecContext(ctx, `
		UPDATE volumes SET downloaded_fields = ?, is_complete = ?, updated_at = CURRENT_TIMESTAMP WHERE volume_id = ?
	`, joinFields(downloaded), boolToInt(isComplete), key)
	if err != nil {
		return errors.Wrap(err, "failed to update volume fields")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit volume field update")
	}

	slog.Info("store_volume_field_added", "volume_id", key, "field", field, "is_complete", isComplete)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetVolume returns the volume row for id, or nil if it does not exist.
func (s *Store) GetVolume(ctx context.Context, id catalog.VolumeID) (*catalog.Volume, error) {
	return s.getVolumeByKey(ctx, s.db, id.Encode())
}

func (s *Store) getVolumeByKey(ctx context.Context, q querier, key string) (*catalog.Volume, error) {
	var v catalog.Volume
	var expectedRaw, downloadedRaw string
	var outputPath, errMsg sql.NullString
	var isComplete int

	err := q.QueryRowContext(ctx, `
		SELECT volume_id, radar, vol_code, vol_num, observation_instant, expected_fields, downloaded_fields, is_complete, status, output_path, error_message
		FROM volumes WHERE volume_id = ?
	`, key).Scan(&v.VolumeID, &v.Radar, &v.VolumeCode, &v.VolumeNum, &v.Observation, &expectedRaw, &downloadedRaw, &isComplete, &v.Status, &outputPath, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query volume")
	}

	v.ExpectedFields = splitFields(expectedRaw)
	v.DownloadedFields = splitFields(downloadedRaw)
	v.IsComplete = isComplete != 0
	v.OutputPath = outputPath.String
	v.ErrorMessage = errMsg.String
	return &v, nil
}

// querier abstracts *sql.DB / *sql.Tx for read helpers reused inside and
// outside transactions.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ClaimVolumeForProcessing implements claim_volume_for_processing: the
// status=pending && is_complete check and the status=processing write
// happen in the same transaction, and the store's single connection
// serializes concurrent claimants, so exactly one wins. The claim time is
// taken from the store's clock, the same one ResetStuck measures against.
func (s *Store) ClaimVolumeForProcessing(ctx context.Context, id catalog.VolumeID) (bool, error) {
	key := id.Encode()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE volumes SET status = ?, updated_at = ?
		WHERE volume_id = ? AND status = ? AND is_complete = 1
	`, catalog.VolumeStatusProcessing, s.clock.Now().UTC(), key, catalog.VolumeStatusPending)
	if err != nil {
		return false, errors.Wrap(err, "failed to claim volume")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read claim result")
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit claim")
	}

	won := rows == 1
	slog.Info("store_claim_volume", "volume_id", key, "won", won)
	return won, nil
}

// MarkVolumeProcessed implements mark_volume_processed.
func (s *Store) MarkVolumeProcessed(ctx context.Context, id catalog.VolumeID, outputPath string) error {
	key := id.Encode()
	res, err := s.db.ExecContext(ctx, `
		UPDATE volumes SET status = ?, output_path = ?, error_message = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE volume_id = ? AND status = ?
	`, catalog.VolumeStatusCompleted, outputPath, key, catalog.VolumeStatusProcessing)
	if err != nil {
		slog.Error("store_mark_volume_processed_failed", "volume_id", key, "error", err)
		return errors.Wrap(err, "failed to mark volume processed")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("store_mark_volume_processed_noop", "volume_id", key, "reason", "not in processing state")
	}
	slog.Info("store_volume_processed", "volume_id", key, "output_path", outputPath)
	return nil
}

// MarkVolumeFailed implements mark_volume_failed.
func (s *Store) MarkVolumeFailed(ctx context.Context, id catalog.VolumeID, errClass errors.Class, message string) error {
	key := id.Encode()
	res, err := s.db.ExecContext(ctx, `
		UPDATE volumes SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE volume_id = ? AND status = ?
	`, catalog.VolumeStatusFailed, string(errClass)+": "+message, key, catalog.VolumeStatusProcessing)
	if err != nil {
		slog.Error("store_mark_volume_failed_failed", "volume_id", key, "error", err)
		return errors.Wrap(err, "failed to mark volume failed")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("store_mark_volume_failed_noop", "volume_id", key, "reason", "not in processing state")
	}
	slog.Info("store_volume_failed", "volume_id", key, "error_class", errClass)
	return nil
}

// ListVolumesReadyForDecode returns complete, pending volumes the Converter
// may claim. It underlies C5's work discovery the way
// list_volumes_for_rendering underlies C6's.
func (s *Store) ListVolumesReadyForDecode(ctx context.Context, limit int) ([]catalog.Volume, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT volume_id FROM volumes WHERE status = ? AND is_complete = 1 ORDER BY observation_instant ASC LIMIT ?
	`, catalog.VolumeStatusPending, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list volumes ready for decode")
	}
	defer rows.Close()

	var out []catalog.Volume
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "failed to scan volume row")
		}
		v, err := s.getVolumeByKey(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, rows.Err()
}
