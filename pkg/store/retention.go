package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
)

// StuckReport summarizes how many rows the sweep reset back to pending.
type StuckReport struct {
	Volumes  int64
	Products int64
}

// ResetStuck implements reset_stuck: rows with status=processing whose
// updated_at is older than the stuck timeout transition back to pending,
// unblocking items whose owning worker crashed after claiming but before
// committing the terminal state. Applies to both volumes and products.
func (s *Store) ResetStuck(ctx context.Context, olderThan time.Duration) (StuckReport, error) {
	cutoff := s.clock.Now().UTC().Add(-olderThan)

	var report StuckReport

	volRes, err := s.db.ExecContext(ctx, `
		UPDATE volumes SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND updated_at < ?
	`, catalog.VolumeStatusPending, catalog.VolumeStatusProcessing, cutoff)
	if err != nil {
		return report, errors.Wrap(err, "failed to reset stuck volumes")
	}
	report.Volumes, _ = volRes.RowsAffected()

	prodRes, err := s.db.ExecContext(ctx, `
		UPDATE products SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND updated_at < ?
	`, catalog.ProductStatusPending, catalog.ProductStatusProcessing, cutoff)
	if err != nil {
		return report, errors.Wrap(err, "failed to reset stuck products")
	}
	report.Products, _ = prodRes.RowsAffected()

	if report.Volumes > 0 || report.Products > 0 {
		slog.Info("store_reset_stuck", "volumes", report.Volumes, "products", report.Products, "cutoff", cutoff)
	}
	return report, nil
}

// RequeueVolume is the operator recovery action (spec.md §7): force a
// failed volume back to pending regardless of timeout.
func (s *Store) RequeueVolume(ctx context.Context, volumeID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE volumes SET status = ?, error_message = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE volume_id = ? AND status = ?
	`, catalog.VolumeStatusPending, volumeID, catalog.VolumeStatusFailed)
	if err != nil {
		return errors.Wrap(err, "failed to requeue volume")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("store_requeue_volume_noop", "volume_id", volumeID, "reason", "not in failed state")
	}
	return nil
}

// RequeueProduct is the operator recovery action for a failed product row.
func (s *Store) RequeueProduct(ctx context.Context, volumeID, productType string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET status = ?, error_type = NULL, error_message = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE volume_id = ? AND product_type = ? AND status = ?
	`, catalog.ProductStatusPending, volumeID, productType, catalog.ProductStatusFailed)
	if err != nil {
		return errors.Wrap(err, "failed to requeue product")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("store_requeue_product_noop", "volume_id", volumeID, "product_type", productType)
	}
	return nil
}

// ListVolumes returns every volume row, newest first, for operator listing.
func (s *Store) ListVolumes(ctx context.Context) ([]catalog.Volume, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT volume_id FROM volumes ORDER BY observation_instant DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list volumes")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []catalog.Volume
	for _, key := range keys {
		v, err := s.getVolumeByKey(ctx, s.db, key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

// Stats is the §4.7 polling statistics view: counts of pending/in-flight/
// completed/failed per entity class.
type Stats struct {
	FilesCompleted   int64
	PartialDownloads int64
	VolumesPending    int64
	VolumesComplete   int64
	VolumesProcessing int64
	VolumesProcessed  int64
	VolumesFailed     int64
	ProductsPending  int64
	ProductsRunning  int64
	ProductsDone     int64
	ProductsFailed   int64
}

// Stats gathers the polling statistics view the Supervisor exposes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	queries := []struct {
		dest  *int64
		query string
		args  []any
	}{
		{&st.FilesCompleted, `SELECT COUNT(1) FROM files WHERE status = ?`, []any{catalog.FileStatusCompleted}},
		{&st.PartialDownloads, `SELECT COUNT(1) FROM partial_downloads`, nil},
		{&st.VolumesPending, `SELECT COUNT(1) FROM volumes WHERE status = ?`, []any{catalog.VolumeStatusPending}},
		{&st.VolumesProcessing, `SELECT COUNT(1) FROM volumes WHERE status = ?`, []any{catalog.VolumeStatusProcessing}},
		{&st.VolumesProcessed, `SELECT COUNT(1) FROM volumes WHERE status = ?`, []any{catalog.VolumeStatusCompleted}},
		{&st.VolumesFailed, `SELECT COUNT(1) FROM volumes WHERE status = ?`, []any{catalog.VolumeStatusFailed}},
		{&st.VolumesComplete, `SELECT COUNT(1) FROM volumes WHERE is_complete = 1`, nil},
		{&st.ProductsPending, `SELECT COUNT(1) FROM products WHERE status = ?`, []any{catalog.ProductStatusPending}},
		{&st.ProductsRunning, `SELECT COUNT(1) FROM products WHERE status = ?`, []any{catalog.ProductStatusProcessing}},
		{&st.ProductsDone, `SELECT COUNT(1) FROM products WHERE status = ?`, []any{catalog.ProductStatusCompleted}},
		{&st.ProductsFailed, `SELECT COUNT(1) FROM products WHERE status = ?`, []any{catalog.ProductStatusFailed}},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dest); err != nil {
			return st, errors.Wrap(err, "failed to gather stats")
		}
	}
	return st, nil
}
