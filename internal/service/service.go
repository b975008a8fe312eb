package service

import (
	"context"
	"errors"
	"time"

	"campaignstudio/internal/events"
	"campaignstudio/internal/models"
	"campaignstudio/internal/queue"
	"campaignstudio/internal/storage"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("concurrent modification")
	ErrRateLimited       = errors.New("generation quota exceeded")
	ErrNoRealImage       = errors.New("post has no usable image")
	ErrGenerationFailed  = errors.New("generation failed")
)

type CampaignStore interface {
	Create(ctx context.Context, c models.Campaign) error
	Get(ctx context.Context, id string) (models.Campaign, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Campaign, error)
	Update(ctx context.Context, c models.Campaign) error
	Delete(ctx context.Context, id string) error
}

type ThemeStore interface {
	CreateBatch(ctx context.Context, themes []models.Theme) error
	Get(ctx context.Context, id string) (models.Theme, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Theme, error)
	UpdateStatus(ctx context.Context, id string, status models.ThemeStatus) error
}

type PostStore interface {
	CreateBatch(ctx context.Context, posts []models.ContentPost) error
	Get(ctx context.Context, id string) (models.ContentPost, error)
	ListByCampaign(ctx context.Context, campaignID string, status models.PostStatus, limit, offset int) ([]models.ContentPost, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ContentPost, error)
	UpdateContent(ctx context.Context, id string, content string, hashtags []string) error
	UpdateImages(ctx context.Context, id string, prev, next string) error
	UpdateStatus(ctx context.Context, id string, from, to models.PostStatus, note string, scheduledAt *time.Time) error
	UpdateThumbnail(ctx context.Context, id string, thumbnailURL string) error
}

type AssetStore interface {
	Create(ctx context.Context, a models.Asset) error
	FindByURL(ctx context.Context, url string) (models.Asset, error)
	MarkDeleted(ctx context.Context, url string) error
}

type ObjectStore interface {
	ImagesBucket() string
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) (storage.Object, error)
}

type Quota interface {
	Allow(ctx context.Context, userID string, cost int) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...events.Event) error
}

type TaskQueue interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

type Page struct {
	Limit  int
	Offset int
}

func (p Page) normalize() Page {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
