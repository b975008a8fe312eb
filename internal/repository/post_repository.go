package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campaignstudio/internal/models"
)

const postColumns = `id, campaign_id, theme_id, user_id, platform, content, hashtags, images, image_url,
	thumbnail_url, status, review_note, scheduled_at, published_at, created_at, updated_at`

type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) CreateBatch(ctx context.Context, posts []models.ContentPost) error {
	const query = `
		INSERT INTO content_posts (
			id, campaign_id, theme_id, user_id, platform, content, hashtags, images, image_url,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(query,
			p.ID,
			p.CampaignID,
			p.ThemeID,
			p.UserID,
			p.Platform,
			p.Content,
			platformsOrEmpty(p.Hashtags),
			p.Images,
			p.ImageURL,
			p.Status,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostRepository) Get(ctx context.Context, id string) (models.ContentPost, error) {
	const query = `SELECT ` + postColumns + ` FROM content_posts WHERE id = $1`
	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	return p, notFound(err, ErrPostNotFound)
}

// ListByCampaign returns posts newest first. An empty status matches all.
func (r *PostRepository) ListByCampaign(ctx context.Context, campaignID string, status models.PostStatus, limit, offset int) ([]models.ContentPost, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM content_posts
		WHERE campaign_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, campaignID, string(status), limit, offset)
}

// ListDue returns scheduled posts whose publish time is not after now.
func (r *PostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ContentPost, error) {
	const query = `
		SELECT ` + postColumns + `
		FROM content_posts
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`
	return r.list(ctx, query, now, limit)
}

func (r *PostRepository) UpdateContent(ctx context.Context, id string, content string, hashtags []string) error {
	const query = `
		UPDATE content_posts
		SET content = $2, hashtags = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.exec(ctx, query, id, content, platformsOrEmpty(hashtags))
}

// UpdateImages swaps the serialized collection only if it still equals prev,
// so two concurrent edits cannot silently drop each other's candidates.
func (r *PostRepository) UpdateImages(ctx context.Context, id string, prev, next string) error {
	const query = `
		UPDATE content_posts
		SET images = $3, updated_at = NOW()
		WHERE id = $1 AND images = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, prev, next)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrStaleWrite
	}
	return nil
}

// UpdateStatus moves a post from one status to another. It fails with
// ErrStaleWrite when the row is no longer in from.
func (r *PostRepository) UpdateStatus(ctx context.Context, id string, from, to models.PostStatus, note string, scheduledAt *time.Time) error {
	const query = `
		UPDATE content_posts
		SET status = $3,
		    review_note = $4,
		    scheduled_at = $5,
		    published_at = CASE WHEN $3 = 'published' THEN NOW() ELSE published_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	cmd, err := r.pool.Exec(ctx, query, id, from, to, note, scheduledAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrStaleWrite
	}
	return nil
}

func (r *PostRepository) UpdateThumbnail(ctx context.Context, id string, thumbnailURL string) error {
	const query = `UPDATE content_posts SET thumbnail_url = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, query, id, thumbnailURL)
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM content_posts WHERE id = $1`
	return r.exec(ctx, query, id)
}

func (r *PostRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) list(ctx context.Context, query string, args ...any) ([]models.ContentPost, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]models.ContentPost, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (models.ContentPost, error) {
	var p models.ContentPost
	err := row.Scan(
		&p.ID,
		&p.CampaignID,
		&p.ThemeID,
		&p.UserID,
		&p.Platform,
		&p.Content,
		&p.Hashtags,
		&p.Images,
		&p.ImageURL,
		&p.ThumbnailURL,
		&p.Status,
		&p.ReviewNote,
		&p.ScheduledAt,
		&p.PublishedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
