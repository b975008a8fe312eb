package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"campaignstudio/internal/models"
)

const assetColumns = `id, user_id, post_id, bucket, object_key, url, mime, size_bytes, source, status,
	checksum, deleted_at, created_at, updated_at`

type AssetRepository struct {
	pool *pgxpool.Pool
}

func NewAssetRepository(pool *pgxpool.Pool) *AssetRepository {
	return &AssetRepository{pool: pool}
}

func (r *AssetRepository) Create(ctx context.Context, a models.Asset) error {
	const query = `
		INSERT INTO assets (
			id, user_id, post_id, bucket, object_key, url, mime, size_bytes, source, status,
			checksum, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.PostID,
		a.Bucket,
		a.ObjectKey,
		a.URL,
		a.MIME,
		a.SizeBytes,
		a.Source,
		a.Status,
		a.Checksum,
	)
	return err
}

func (r *AssetRepository) FindByURL(ctx context.Context, url string) (models.Asset, error) {
	const query = `SELECT ` + assetColumns + ` FROM assets WHERE url = $1`
	a, err := scanAsset(r.pool.QueryRow(ctx, query, url))
	return a, notFound(err, ErrAssetNotFound)
}

func (r *AssetRepository) List(ctx context.Context, limit, offset int) ([]models.Asset, error) {
	const query = `
		SELECT ` + assetColumns + `
		FROM assets
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *AssetRepository) ListDeleted(ctx context.Context, limit int) ([]models.Asset, error) {
	const query = `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE status = 'deleted'
		ORDER BY deleted_at
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *AssetRepository) MarkDeleted(ctx context.Context, url string) error {
	const query = `
		UPDATE assets
		SET status = 'deleted', deleted_at = NOW(), updated_at = NOW()
		WHERE url = $1 AND status = 'active'
	`
	cmd, err := r.pool.Exec(ctx, query, url)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// Purge removes the row after its object has been deleted from storage.
func (r *AssetRepository) Purge(ctx context.Context, id string) error {
	const query = `DELETE FROM assets WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *AssetRepository) list(ctx context.Context, query string, args ...any) ([]models.Asset, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]models.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func scanAsset(row rowScanner) (models.Asset, error) {
	var a models.Asset
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.PostID,
		&a.Bucket,
		&a.ObjectKey,
		&a.URL,
		&a.MIME,
		&a.SizeBytes,
		&a.Source,
		&a.Status,
		&a.Checksum,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}
