// Package tasks executes the background work the queue delivers to the
// worker.
package tasks

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"campaignstudio/internal/config"
	"campaignstudio/internal/ids"
	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/media"
	"campaignstudio/internal/models"
	"campaignstudio/internal/queue"
	"campaignstudio/internal/repository"
	"campaignstudio/internal/storage"
)

const (
	publishBatch = 100
	purgeBatch   = 500
	thumbQuality = 85
)

type DuePublisher interface {
	PublishDue(ctx context.Context, limit int) (int, error)
}

type PostStore interface {
	Get(ctx context.Context, id string) (models.ContentPost, error)
	UpdateThumbnail(ctx context.Context, id string, thumbnailURL string) error
}

type AssetStore interface {
	Create(ctx context.Context, a models.Asset) error
	FindByURL(ctx context.Context, url string) (models.Asset, error)
	MarkDeleted(ctx context.Context, url string) error
	ListDeleted(ctx context.Context, limit int) ([]models.Asset, error)
	Purge(ctx context.Context, id string) error
}

type ObjectStore interface {
	VariantsBucket() string
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) (storage.Object, error)
	RemoveObject(ctx context.Context, bucket, key string) error
}

type SessionCleaner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Deps struct {
	Publisher  DuePublisher
	Posts      PostStore
	Assets     AssetStore
	Objects    ObjectStore
	Sessions   SessionCleaner
	Normalizer *imagedata.Normalizer
}

type Processor struct {
	deps   Deps
	thumbs config.ThumbnailConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewProcessor(deps Deps, thumbs config.ThumbnailConfig, logger zerolog.Logger) *Processor {
	return &Processor{
		deps:   deps,
		thumbs: thumbs,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *Processor) Handle(ctx context.Context, task queue.Task) error {
	switch task.Type {
	case queue.TaskPublishDue:
		return p.handlePublishDue(ctx)
	case queue.TaskThumbnail:
		return p.handleThumbnail(ctx, task.PostID)
	case queue.TaskCleanup:
		return p.handleCleanup(ctx)
	default:
		p.logger.Warn().Str("type", string(task.Type)).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handlePublishDue(ctx context.Context) error {
	total := 0
	for {
		n, err := p.deps.Publisher.PublishDue(ctx, publishBatch)
		total += n
		if err != nil {
			return fmt.Errorf("publish due posts: %w", err)
		}
		if n < publishBatch {
			break
		}
	}
	if total > 0 {
		p.logger.Info().Int("published", total).Msg("scheduled posts published")
	}
	return nil
}

// handleThumbnail renders a thumbnail of the post's main image. Images this
// service did not store itself are skipped.
func (p *Processor) handleThumbnail(ctx context.Context, postID string) error {
	post, err := p.deps.Posts.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			p.logger.Warn().Str("post_id", postID).Msg("thumbnail for missing post")
			return nil
		}
		return err
	}

	mainURL := imagedata.ResolveMainImage(p.deps.Normalizer.Parse(post.Images), post.ImageURL)
	if mainURL == imagedata.NoImageURL {
		return nil
	}

	source, err := p.deps.Assets.FindByURL(ctx, mainURL)
	if err != nil {
		if errors.Is(err, repository.ErrAssetNotFound) {
			p.logger.Debug().Str("post_id", postID).Str("url", mainURL).Msg("main image is external, no thumbnail")
			return nil
		}
		return err
	}
	if !media.RasterMIME(source.MIME) {
		return nil
	}

	data, err := p.deps.Objects.GetObject(ctx, source.Bucket, source.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			p.logger.Warn().Str("asset_id", source.ID).Msg("main image object is gone")
			return nil
		}
		return err
	}

	thumb, err := p.render(data)
	if err != nil {
		p.logger.Warn().Err(err).Str("asset_id", source.ID).Msg("thumbnail render failed")
		return nil
	}

	assetID := ids.New()
	key := storage.ObjectKey("thumbnails/"+post.ID, assetID, "jpg", p.now())
	obj, err := p.deps.Objects.PutObject(ctx, p.deps.Objects.VariantsBucket(), key, thumb, "image/jpeg")
	if err != nil {
		return fmt.Errorf("store thumbnail: %w", err)
	}

	sum := sha256.Sum256(thumb)
	if err := p.deps.Assets.Create(ctx, models.Asset{
		ID:        assetID,
		UserID:    post.UserID,
		PostID:    post.ID,
		Bucket:    obj.Bucket,
		ObjectKey: obj.Key,
		URL:       obj.URL,
		MIME:      "image/jpeg",
		SizeBytes: obj.Size,
		Source:    models.AssetSourceThumbnail,
		Status:    models.AssetStatusActive,
		Checksum:  sum[:],
	}); err != nil {
		return fmt.Errorf("record thumbnail: %w", err)
	}

	if err := p.deps.Posts.UpdateThumbnail(ctx, post.ID, obj.URL); err != nil {
		return fmt.Errorf("set thumbnail: %w", err)
	}

	if post.ThumbnailURL != "" && post.ThumbnailURL != obj.URL {
		if err := p.deps.Assets.MarkDeleted(ctx, post.ThumbnailURL); err != nil && !errors.Is(err, repository.ErrAssetNotFound) {
			p.logger.Warn().Err(err).Str("post_id", post.ID).Msg("retire old thumbnail failed")
		}
	}

	p.logger.Info().Str("post_id", post.ID).Str("url", obj.URL).Msg("thumbnail stored")
	return nil
}

func (p *Processor) render(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	width, height := p.thumbs.Width, p.thumbs.Height
	if width <= 0 {
		width = 320
	}
	if height <= 0 {
		height = width
	}
	thumb := imaging.Thumbnail(img, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// handleCleanup drops expired sessions and purges assets marked deleted from
// both the object store and the database.
func (p *Processor) handleCleanup(ctx context.Context) error {
	var errs []error

	removed, err := p.deps.Sessions.DeleteExpired(ctx, p.now())
	if err != nil {
		errs = append(errs, fmt.Errorf("delete expired sessions: %w", err))
	}

	assets, err := p.deps.Assets.ListDeleted(ctx, purgeBatch)
	if err != nil {
		errs = append(errs, fmt.Errorf("list deleted assets: %w", err))
	}
	purged := 0
	for _, a := range assets {
		if err := p.deps.Objects.RemoveObject(ctx, a.Bucket, a.ObjectKey); err != nil {
			p.logger.Warn().Err(err).Str("asset_id", a.ID).Msg("remove object failed")
			continue
		}
		if err := p.deps.Assets.Purge(ctx, a.ID); err != nil {
			errs = append(errs, fmt.Errorf("purge asset %s: %w", a.ID, err))
			continue
		}
		purged++
	}

	p.logger.Info().
		Int64("sessions_removed", removed).
		Int("assets_purged", purged).
		Msg("cleanup finished")
	return errors.Join(errs...)
}
