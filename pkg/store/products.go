package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/fly-io/162719/pkg/catalog"
	"github.com/fly-io/162719/pkg/errors"
)

// ListVolumesForRendering implements list_volumes_for_rendering: rows where
// volume.status=completed AND (no product row OR product.status in
// {pending,failed}). Product rows are created lazily here, the first time a
// completed volume is seen for productType, matching the Product record's
// documented lifecycle.
func (s *Store) ListVolumesForRendering(ctx context.Context, productType string) ([]catalog.Volume, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (volume_id, product_type, status)
		SELECT v.volume_id, ?, ?
		FROM volumes v
		WHERE v.status = ?
		  AND NOT EXISTS (SELECT 1 FROM products p WHERE p.volume_id = v.volume_id AND p.product_type = ?)
	`, productType, catalog.ProductStatusPending, catalog.VolumeStatusCompleted, productType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to seed pending product rows")
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT v.volume_id FROM volumes v
		JOIN products p ON p.volume_id = v.volume_id AND p.product_type = ?
		WHERE v.status = ? AND p.status IN (?, ?)
		ORDER BY v.observation_instant ASC
	`, productType, catalog.VolumeStatusCompleted, catalog.ProductStatusPending, catalog.ProductStatusFailed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list volumes for rendering")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, errors.Wrap(err, "failed to scan candidate row")
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit render candidate scan")
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

// ClaimProduct implements claim_product: status check and write happen in
// the same transaction; exactly one concurrent caller wins.
func (s *Store) ClaimProduct(ctx context.Context, volumeID, productType string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET status = ?, updated_at = ?
		WHERE volume_id = ? AND product_type = ? AND status IN (?, ?)
	`, catalog.ProductStatusProcessing, s.clock.Now().UTC(), volumeID, productType, catalog.ProductStatusPending, catalog.ProductStatusFailed)
	if err != nil {
		return false, errors.Wrap(err, "failed to claim product")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read claim result")
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(err, "failed to commit product claim")
	}

	won := rows == 1
	slog.Info("store_claim_product", "volume_id", volumeID, "product_type", productType, "won", won)
	return won, nil
}

// MarkProductStatus implements mark_product_status.
func (s *Store) MarkProductStatus(ctx context.Context, volumeID, productType, status string, errType errors.Class, errMessage string) error {
	var generatedAt any
	if status == catalog.ProductStatusCompleted {
		generatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE products SET status = ?, generated_at = COALESCE(?, generated_at), error_type = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE volume_id = ? AND product_type = ?
	`, status, generatedAt, string(errType), errMessage, volumeID, productType)
	if err != nil {
		slog.Error("store_mark_product_status_failed", "volume_id", volumeID, "product_type", productType, "error", err)
		return errors.Wrap(err, "failed to update product status")
	}
	slog.Info("store_product_status_updated", "volume_id", volumeID, "product_type", productType, "status", status)
	return nil
}
