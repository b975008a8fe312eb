package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"campaignstudio/internal/models"
)

const campaignColumns = `id, user_id, name, description, objective, target_audience, tone, platforms,
	status, start_date, end_date, created_at, updated_at`

type CampaignRepository struct {
	pool *pgxpool.Pool
}

func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

func (r *CampaignRepository) Create(ctx context.Context, c models.Campaign) error {
	const query = `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.UserID,
		c.Name,
		c.Description,
		c.Objective,
		c.TargetAudience,
		c.Tone,
		platformsOrEmpty(c.Platforms),
		c.Status,
		c.StartDate,
		c.EndDate,
	)
	return err
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (models.Campaign, error) {
	const query = `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	return c, notFound(err, ErrCampaignNotFound)
}

func (r *CampaignRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Campaign, error) {
	const query = `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := make([]models.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Update(ctx context.Context, c models.Campaign) error {
	const query = `
		UPDATE campaigns
		SET name = $2,
		    description = $3,
		    objective = $4,
		    target_audience = $5,
		    tone = $6,
		    platforms = $7,
		    status = $8,
		    start_date = $9,
		    end_date = $10,
		    updated_at = NOW()
		WHERE id = $1
	`

	cmd, err := r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.Objective,
		c.TargetAudience,
		c.Tone,
		platformsOrEmpty(c.Platforms),
		c.Status,
		c.StartDate,
		c.EndDate,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM campaigns WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func scanCampaign(row rowScanner) (models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Description,
		&c.Objective,
		&c.TargetAudience,
		&c.Tone,
		&c.Platforms,
		&c.Status,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func platformsOrEmpty(p []string) []string {
	if p == nil {
		return []string{}
	}
	return p
}
