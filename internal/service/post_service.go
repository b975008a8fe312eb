package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"campaignstudio/internal/events"
	"campaignstudio/internal/generator"
	"campaignstudio/internal/ids"
	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/media"
	"campaignstudio/internal/models"
	"campaignstudio/internal/queue"
	"campaignstudio/internal/repository"
	"campaignstudio/internal/storage"
)

const (
	maxPostsPerRequest  = 10
	maxImagesPerRequest = 4
	maxPromptLength     = 500
	imageWriteRetries   = 3
	persistConcurrency  = 4
)

// PostView is a post together with its parsed gallery.
type PostView struct {
	Post models.ContentPost
	imagedata.Summary
}

type PostService struct {
	campaigns  CampaignStore
	themes     ThemeStore
	posts      PostStore
	assets     AssetStore
	store      ObjectStore
	backend    generator.Backend
	quota      Quota
	tasks      TaskQueue
	events     EventPublisher
	normalizer *imagedata.Normalizer
	log        zerolog.Logger
	now        func() time.Time
}

type PostDeps struct {
	Campaigns  CampaignStore
	Themes     ThemeStore
	Posts      PostStore
	Assets     AssetStore
	Store      ObjectStore
	Backend    generator.Backend
	Quota      Quota
	Tasks      TaskQueue
	Events     EventPublisher
	Normalizer *imagedata.Normalizer
}

func NewPostService(deps PostDeps, log zerolog.Logger) *PostService {
	return &PostService{
		campaigns:  deps.Campaigns,
		themes:     deps.Themes,
		posts:      deps.Posts,
		assets:     deps.Assets,
		store:      deps.Store,
		backend:    deps.Backend,
		quota:      deps.Quota,
		tasks:      deps.Tasks,
		events:     deps.Events,
		normalizer: deps.Normalizer,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *PostService) view(p models.ContentPost) PostView {
	return PostView{Post: p, Summary: s.normalizer.Summarize(p.Images, p.ImageURL)}
}

// Generate drafts count posts for an approved theme. Every new post starts
// with an empty image collection.
func (s *PostService) Generate(ctx context.Context, userID, themeID string, count int) ([]PostView, error) {
	if count <= 0 {
		count = 3
	}
	if count > maxPostsPerRequest {
		return nil, fmt.Errorf("%w: at most %d posts per request", ErrInvalidInput, maxPostsPerRequest)
	}

	theme, err := s.themes.Get(ctx, themeID)
	if err != nil {
		return nil, storeErr(err)
	}
	c, err := ownedCampaign(ctx, s.campaigns, userID, theme.CampaignID)
	if err != nil {
		return nil, err
	}
	if theme.Status != models.ThemeStatusApproved {
		return nil, fmt.Errorf("%w: theme is %s", ErrInvalidTransition, theme.Status)
	}
	if err := consumeQuota(ctx, s.quota, userID, 1); err != nil {
		return nil, err
	}

	drafts, err := s.backend.GeneratePosts(ctx, generator.PostRequest{
		CampaignName:     c.Name,
		Objective:        c.Objective,
		Tone:             c.Tone,
		ThemeTitle:       theme.Title,
		ThemeDescription: theme.Description,
		Platforms:        c.Platforms,
		Count:            count,
	})
	if err != nil {
		return nil, generationErr(err)
	}

	now := s.now()
	posts := make([]models.ContentPost, 0, len(drafts))
	for _, d := range drafts {
		content := strings.TrimSpace(d.Content)
		if content == "" {
			continue
		}
		platform := strings.ToLower(strings.TrimSpace(d.Platform))
		if platform == "" && len(c.Platforms) > 0 {
			platform = c.Platforms[len(posts)%len(c.Platforms)]
		}
		posts = append(posts, models.ContentPost{
			ID:         ids.New(),
			CampaignID: c.ID,
			ThemeID:    theme.ID,
			UserID:     userID,
			Platform:   platform,
			Content:    content,
			Hashtags:   normalizeHashtags(d.Hashtags),
			Images:     imagedata.EmptyCollection(),
			Status:     models.PostStatusDraft,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if len(posts) == count {
			break
		}
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: backend returned no posts", ErrGenerationFailed)
	}

	if err := s.posts.CreateBatch(ctx, posts); err != nil {
		return nil, fmt.Errorf("save posts: %w", err)
	}

	emit(ctx, s.events, s.log, events.Event{Type: events.PostsGenerated, CampaignID: c.ID, UserID: userID})

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, s.view(p))
	}
	return views, nil
}

func (s *PostService) Get(ctx context.Context, userID, postID string) (PostView, error) {
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	return s.view(p), nil
}

func (s *PostService) ListByCampaign(ctx context.Context, userID, campaignID string, status models.PostStatus, page Page) ([]PostView, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown post status %q", ErrInvalidInput, status)
	}
	if _, err := ownedCampaign(ctx, s.campaigns, userID, campaignID); err != nil {
		return nil, err
	}
	page = page.normalize()
	posts, err := s.posts.ListByCampaign(ctx, campaignID, status, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, s.view(p))
	}
	return views, nil
}

func (s *PostService) UpdateContent(ctx context.Context, userID, postID, content string, hashtags []string) (PostView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return PostView{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	if !p.Status.Editable() {
		return PostView{}, fmt.Errorf("%w: post is %s", ErrInvalidTransition, p.Status)
	}

	p.Content = content
	p.Hashtags = normalizeHashtags(hashtags)
	if err := s.posts.UpdateContent(ctx, p.ID, p.Content, p.Hashtags); err != nil {
		return PostView{}, storeErr(err)
	}
	p.UpdatedAt = s.now()
	emit(ctx, s.events, s.log, postEvent(events.PostUpdated, p))
	return s.view(p), nil
}

type ImageGenerationInput struct {
	Prompt string
	Style  string
	Width  int
	Height int
	Count  int
}

// GenerateImages appends new candidates to the post's collection. Inline
// data: URLs are moved into object storage first; blob: and otherwise invalid
// URLs are dropped.
func (s *PostService) GenerateImages(ctx context.Context, userID, postID string, in ImageGenerationInput) (PostView, error) {
	if in.Count <= 0 {
		in.Count = 1
	}
	if in.Count > maxImagesPerRequest {
		return PostView{}, fmt.Errorf("%w: at most %d images per request", ErrInvalidInput, maxImagesPerRequest)
	}
	if in.Width < 0 || in.Height < 0 {
		return PostView{}, fmt.Errorf("%w: negative dimensions", ErrInvalidInput)
	}

	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	if !p.Status.Editable() {
		return PostView{}, fmt.Errorf("%w: post is %s", ErrInvalidTransition, p.Status)
	}

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		prompt = p.Content
	}
	prompt = clipUTF8(prompt, maxPromptLength)

	if err := consumeQuota(ctx, s.quota, userID, in.Count); err != nil {
		return PostView{}, err
	}

	generated, err := s.backend.GenerateImages(ctx, generator.ImageRequest{
		Prompt: prompt,
		Style:  in.Style,
		Width:  in.Width,
		Height: in.Height,
		Count:  in.Count,
	})
	if err != nil {
		return PostView{}, generationErr(err)
	}

	candidates, err := s.persistCandidates(ctx, p, generated, in, prompt)
	if err != nil {
		return PostView{}, err
	}
	if len(candidates) == 0 {
		return PostView{}, fmt.Errorf("%w: no usable images returned", ErrGenerationFailed)
	}

	updated, err := s.mutateImages(ctx, p, func(images []imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error) {
		return imagedata.Append(images, candidates...), nil
	})
	if err != nil {
		return PostView{}, err
	}
	emit(ctx, s.events, s.log, postEvent(events.ImagesChanged, updated))
	return s.view(updated), nil
}

func (s *PostService) persistCandidates(ctx context.Context, p models.ContentPost, generated []generator.GeneratedImage, in ImageGenerationInput, prompt string) ([]imagedata.ImageDescriptor, error) {
	out := make([]imagedata.ImageDescriptor, len(generated))
	keep := make([]bool, len(generated))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(persistConcurrency)
	for i, img := range generated {
		if !s.normalizer.ValidateURL(img.URL) {
			s.log.Debug().Str("post_id", p.ID).Str("url", truncateURL(img.URL)).Msg("dropping unusable generated image")
			continue
		}
		i, img := i, img
		g.Go(func() error {
			url := img.URL
			if strings.HasPrefix(url, "data:") {
				stored, err := s.storeDataURL(gctx, p, url)
				if err != nil {
					return err
				}
				url = stored
			}
			out[i] = candidateDescriptor(url, img, in, prompt)
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := make([]imagedata.ImageDescriptor, 0, len(out))
	for i, d := range out {
		if keep[i] {
			kept = append(kept, d)
		}
	}
	return kept, nil
}

func (s *PostService) storeDataURL(ctx context.Context, p models.ContentPost, dataURL string) (string, error) {
	data, kind, err := media.DecodeDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if kind.Format == media.FormatSVG {
		if data, err = media.SanitizeSVG(data); err != nil {
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
		}
	}

	assetID := ids.New()
	key := storage.ObjectKey("posts/"+p.ID, assetID, kind.Ext(), s.now())
	obj, err := s.store.PutObject(ctx, s.store.ImagesBucket(), key, data, kind.MIME)
	if err != nil {
		return "", fmt.Errorf("store generated image: %w", err)
	}

	sum := sha256.Sum256(data)
	if err := s.assets.Create(ctx, models.Asset{
		ID:        assetID,
		UserID:    p.UserID,
		PostID:    p.ID,
		Bucket:    obj.Bucket,
		ObjectKey: obj.Key,
		URL:       obj.URL,
		MIME:      kind.MIME,
		SizeBytes: obj.Size,
		Source:    models.AssetSourceGenerated,
		Status:    models.AssetStatusActive,
		Checksum:  sum[:],
	}); err != nil {
		return "", fmt.Errorf("record asset: %w", err)
	}
	return obj.URL, nil
}

func candidateDescriptor(url string, img generator.GeneratedImage, in ImageGenerationInput, prompt string) imagedata.ImageDescriptor {
	md := imagedata.DefaultMetadata()
	if in.Style != "" {
		md.Style = in.Style
	}
	if w := firstPositive(img.Width, in.Width); w > 0 {
		md.Width = imagedata.NumericDimension(w)
	}
	if h := firstPositive(img.Height, in.Height); h > 0 {
		md.Height = imagedata.NumericDimension(h)
	}
	md.Service = img.Service

	p := strings.TrimSpace(img.Prompt)
	if p == "" {
		p = prompt
	}
	if p == "" {
		p = imagedata.DefaultPrompt
	}
	return imagedata.ImageDescriptor{URL: url, Prompt: p, Metadata: md}
}

func (s *PostService) SelectImage(ctx context.Context, userID, postID string, index int, selected bool) (PostView, error) {
	return s.editImages(ctx, userID, postID, func(images []imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error) {
		out, ok := imagedata.SetSelected(images, index, selected)
		if !ok {
			return nil, fmt.Errorf("%w: image index %d out of range", ErrInvalidInput, index)
		}
		return out, nil
	})
}

// ReorderImages applies perm where result[i] = current[perm[i]].
func (s *PostService) ReorderImages(ctx context.Context, userID, postID string, perm []int) (PostView, error) {
	return s.editImages(ctx, userID, postID, func(images []imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error) {
		out, ok := imagedata.Reorder(images, perm)
		if !ok {
			return nil, fmt.Errorf("%w: order must be a permutation of 0..%d", ErrInvalidInput, len(images)-1)
		}
		return out, nil
	})
}

func (s *PostService) RemoveImage(ctx context.Context, userID, postID string, index int) (PostView, error) {
	var removed string
	view, err := s.editImages(ctx, userID, postID, func(images []imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error) {
		out, ok := imagedata.Remove(images, index)
		if !ok {
			return nil, fmt.Errorf("%w: image index %d out of range", ErrInvalidInput, index)
		}
		removed = images[index].URL
		return out, nil
	})
	if err != nil {
		return PostView{}, err
	}

	if removed != "" && !stillReferenced(view.Images, removed) {
		if err := s.assets.MarkDeleted(ctx, removed); err != nil && !errors.Is(err, repository.ErrAssetNotFound) {
			s.log.Warn().Err(err).Str("post_id", postID).Msg("mark asset deleted failed")
		}
	}
	return view, nil
}

// AttachUploaded appends an image the user uploaded to the collection.
func (s *PostService) AttachUploaded(ctx context.Context, userID, postID string, d imagedata.ImageDescriptor) (PostView, error) {
	return s.editImages(ctx, userID, postID, func(images []imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error) {
		return imagedata.Append(images, d), nil
	})
}

func (s *PostService) editImages(ctx context.Context, userID, postID string, fn func([]imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error)) (PostView, error) {
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	if !p.Status.Editable() {
		return PostView{}, fmt.Errorf("%w: post is %s", ErrInvalidTransition, p.Status)
	}
	updated, err := s.mutateImages(ctx, p, fn)
	if err != nil {
		return PostView{}, err
	}
	emit(ctx, s.events, s.log, postEvent(events.ImagesChanged, updated))
	return s.view(updated), nil
}

// mutateImages re-reads and retries when another writer changed the
// collection between our read and our compare-and-swap.
func (s *PostService) mutateImages(ctx context.Context, p models.ContentPost, fn func([]imagedata.ImageDescriptor) ([]imagedata.ImageDescriptor, error)) (models.ContentPost, error) {
	for attempt := 0; ; attempt++ {
		next, err := fn(s.normalizer.Parse(p.Images))
		if err != nil {
			return models.ContentPost{}, err
		}
		serialized := imagedata.Serialize(next)

		err = s.posts.UpdateImages(ctx, p.ID, p.Images, serialized)
		if err == nil {
			p.Images = serialized
			p.UpdatedAt = s.now()
			return p, nil
		}
		if !errors.Is(err, repository.ErrStaleWrite) || attempt+1 >= imageWriteRetries {
			return models.ContentPost{}, storeErr(err)
		}

		s.log.Debug().Str("post_id", p.ID).Int("attempt", attempt+1).Msg("image collection changed concurrently, retrying")
		if p, err = s.posts.Get(ctx, p.ID); err != nil {
			return models.ContentPost{}, storeErr(err)
		}
		if !p.Status.Editable() {
			return models.ContentPost{}, fmt.Errorf("%w: post is %s", ErrInvalidTransition, p.Status)
		}
	}
}

func (s *PostService) Submit(ctx context.Context, userID, postID string) (PostView, error) {
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	if strings.TrimSpace(p.Content) == "" {
		return PostView{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return s.transition(ctx, p, models.PostStatusPendingReview, "", nil, events.PostSubmitted)
}

// Review approves or rejects a post awaiting review. Approval needs a real
// main image and schedules thumbnail generation for it.
func (s *PostService) Review(ctx context.Context, userID, postID string, approve bool, note string) (PostView, error) {
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	note = strings.TrimSpace(note)

	if !approve {
		return s.transition(ctx, p, models.PostStatusRejected, note, nil, events.PostReviewed)
	}

	if !imagedata.HasRealImages(s.normalizer.Parse(p.Images)) && !imagedata.IsValidURL(p.ImageURL) {
		return PostView{}, ErrNoRealImage
	}
	view, err := s.transition(ctx, p, models.PostStatusApproved, note, nil, events.PostReviewed)
	if err != nil {
		return PostView{}, err
	}
	if s.tasks != nil {
		if err := s.tasks.Enqueue(ctx, queue.Task{Type: queue.TaskThumbnail, PostID: p.ID}); err != nil {
			s.log.Warn().Err(err).Str("post_id", p.ID).Msg("enqueue thumbnail failed")
		}
	}
	return view, nil
}

// Reopen sends a rejected or approved post back to draft for more edits.
func (s *PostService) Reopen(ctx context.Context, userID, postID string) (PostView, error) {
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	return s.transition(ctx, p, models.PostStatusDraft, p.ReviewNote, nil, events.PostUpdated)
}

func (s *PostService) Schedule(ctx context.Context, userID, postID string, at time.Time) (PostView, error) {
	if !at.After(s.now()) {
		return PostView{}, fmt.Errorf("%w: publish time must be in the future", ErrInvalidInput)
	}
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	at = at.UTC()
	return s.transition(ctx, p, models.PostStatusScheduled, p.ReviewNote, &at, events.PostScheduled)
}

func (s *PostService) Unschedule(ctx context.Context, userID, postID string) (PostView, error) {
	p, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return PostView{}, err
	}
	if p.Status != models.PostStatusScheduled {
		return PostView{}, fmt.Errorf("%w: post is %s", ErrInvalidTransition, p.Status)
	}
	return s.transition(ctx, p, models.PostStatusApproved, p.ReviewNote, nil, events.PostUnscheduled)
}

// PublishDue marks scheduled posts whose time has come as published and
// returns how many it moved. Posts that lost every usable image since
// approval fail instead.
func (s *PostService) PublishDue(ctx context.Context, limit int) (int, error) {
	due, err := s.posts.ListDue(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list due posts: %w", err)
	}

	published := 0
	for _, p := range due {
		if !s.view(p).HasRealImages && !imagedata.IsValidURL(p.ImageURL) {
			if err := s.MarkFailed(ctx, p.ID, "no usable image at publish time"); err != nil && !errors.Is(err, ErrConflict) {
				return published, err
			}
			continue
		}
		if _, err := s.transition(ctx, p, models.PostStatusPublished, p.ReviewNote, p.ScheduledAt, events.PostPublished); err != nil {
			if errors.Is(err, ErrConflict) {
				// Unscheduled or published by another worker in between.
				continue
			}
			return published, err
		}
		published++
	}
	return published, nil
}

// MarkFailed records that a scheduled post could not go out.
func (s *PostService) MarkFailed(ctx context.Context, postID, reason string) error {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return storeErr(err)
	}
	_, err = s.transition(ctx, p, models.PostStatusFailed, reason, p.ScheduledAt, events.PostFailed)
	return err
}

func (s *PostService) transition(ctx context.Context, p models.ContentPost, to models.PostStatus, note string, scheduledAt *time.Time, evType events.Type) (PostView, error) {
	if !p.Status.CanTransition(to) {
		return PostView{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	if err := s.posts.UpdateStatus(ctx, p.ID, p.Status, to, note, scheduledAt); err != nil {
		return PostView{}, storeErr(err)
	}

	from := p.Status
	p.Status = to
	p.ReviewNote = note
	p.ScheduledAt = scheduledAt
	p.UpdatedAt = s.now()
	if to == models.PostStatusPublished {
		published := p.UpdatedAt
		p.PublishedAt = &published
	}

	s.log.Info().
		Str("post_id", p.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("post status changed")
	emit(ctx, s.events, s.log, postEvent(evType, p))
	return s.view(p), nil
}

func (s *PostService) ownedPost(ctx context.Context, userID, postID string) (models.ContentPost, error) {
	p, err := s.posts.Get(ctx, postID)
	if err != nil {
		return models.ContentPost{}, storeErr(err)
	}
	if p.UserID != userID {
		return models.ContentPost{}, ErrForbidden
	}
	return p, nil
}

func postEvent(t events.Type, p models.ContentPost) events.Event {
	return events.Event{
		Type:       t,
		PostID:     p.ID,
		CampaignID: p.CampaignID,
		UserID:     p.UserID,
		Status:     string(p.Status),
	}
}

func normalizeHashtags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func stillReferenced(images []imagedata.ImageDescriptor, url string) bool {
	for _, img := range images {
		if img.URL == url {
			return true
		}
	}
	return false
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func truncateURL(u string) string {
	if len(u) > 64 {
		return clipUTF8(u, 64) + "..."
	}
	return u
}

// clipUTF8 shortens s to at most n bytes without splitting a rune.
func clipUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
