package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignstudio/internal/models"
)

const themeColumns = `id, campaign_id, title, description, status, created_at, updated_at`

type ThemeRepository struct {
	pool *pgxpool.Pool
}

func NewThemeRepository(pool *pgxpool.Pool) *ThemeRepository {
	return &ThemeRepository{pool: pool}
}

// CreateBatch inserts all themes in one round trip; either all land or none.
func (r *ThemeRepository) CreateBatch(ctx context.Context, themes []models.Theme) error {
	const query = `
		INSERT INTO themes (` + themeColumns + `)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, t := range themes {
		batch.Queue(query, t.ID, t.CampaignID, t.Title, t.Description, t.Status)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ThemeRepository) Get(ctx context.Context, id string) (models.Theme, error) {
	const query = `SELECT ` + themeColumns + ` FROM themes WHERE id = $1`
	t, err := scanTheme(r.pool.QueryRow(ctx, query, id))
	return t, notFound(err, ErrThemeNotFound)
}

func (r *ThemeRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Theme, error) {
	const query = `SELECT ` + themeColumns + ` FROM themes WHERE campaign_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	themes := make([]models.Theme, 0)
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

func (r *ThemeRepository) UpdateStatus(ctx context.Context, id string, status models.ThemeStatus) error {
	const query = `UPDATE themes SET status = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrThemeNotFound
	}
	return nil
}

func scanTheme(row rowScanner) (models.Theme, error) {
	var t models.Theme
	err := row.Scan(&t.ID, &t.CampaignID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
