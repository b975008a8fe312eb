package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"campaignstudio/internal/events"
	"campaignstudio/internal/generator"
	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/models"
	"campaignstudio/internal/queue"
	"campaignstudio/internal/repository"
	"campaignstudio/internal/storage"
)

type fakeCampaigns struct {
	mu   sync.Mutex
	rows map[string]models.Campaign
}

func newFakeCampaigns(cs ...models.Campaign) *fakeCampaigns {
	f := &fakeCampaigns{rows: map[string]models.Campaign{}}
	for _, c := range cs {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCampaigns) Create(_ context.Context, c models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[c.ID] = c
	return nil
}

func (f *fakeCampaigns) Get(_ context.Context, id string) (models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return models.Campaign{}, repository.ErrCampaignNotFound
	}
	return c, nil
}

func (f *fakeCampaigns) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Campaign{}
	for _, c := range f.rows {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return []models.Campaign{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCampaigns) Update(_ context.Context, c models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[c.ID]; !ok {
		return repository.ErrCampaignNotFound
	}
	f.rows[c.ID] = c
	return nil
}

func (f *fakeCampaigns) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrCampaignNotFound
	}
	delete(f.rows, id)
	return nil
}

type fakeThemes struct {
	mu   sync.Mutex
	rows map[string]models.Theme
}

func newFakeThemes(ts ...models.Theme) *fakeThemes {
	f := &fakeThemes{rows: map[string]models.Theme{}}
	for _, t := range ts {
		f.rows[t.ID] = t
	}
	return f
}

func (f *fakeThemes) CreateBatch(_ context.Context, themes []models.Theme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range themes {
		f.rows[t.ID] = t
	}
	return nil
}

func (f *fakeThemes) Get(_ context.Context, id string) (models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return models.Theme{}, repository.ErrThemeNotFound
	}
	return t, nil
}

func (f *fakeThemes) ListByCampaign(_ context.Context, campaignID string) ([]models.Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Theme{}
	for _, t := range f.rows {
		if t.CampaignID == campaignID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeThemes) UpdateStatus(_ context.Context, id string, status models.ThemeStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return repository.ErrThemeNotFound
	}
	t.Status = status
	f.rows[id] = t
	return nil
}

type fakePosts struct {
	mu   sync.Mutex
	rows map[string]models.ContentPost
	// beforeImageWrite runs once before the next UpdateImages, to simulate a
	// concurrent writer.
	beforeImageWrite func(p *models.ContentPost)
}

func newFakePosts(ps ...models.ContentPost) *fakePosts {
	f := &fakePosts{rows: map[string]models.ContentPost{}}
	for _, p := range ps {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakePosts) CreateBatch(_ context.Context, posts []models.ContentPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range posts {
		f.rows[p.ID] = p
	}
	return nil
}

func (f *fakePosts) Get(_ context.Context, id string) (models.ContentPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return models.ContentPost{}, repository.ErrPostNotFound
	}
	return p, nil
}

func (f *fakePosts) ListByCampaign(_ context.Context, campaignID string, status models.PostStatus, limit, offset int) ([]models.ContentPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ContentPost{}
	for _, p := range f.rows {
		if p.CampaignID == campaignID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePosts) ListDue(_ context.Context, now time.Time, limit int) ([]models.ContentPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.ContentPost{}
	for _, p := range f.rows {
		if p.Status == models.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePosts) UpdateContent(_ context.Context, id string, content string, hashtags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrPostNotFound
	}
	p.Content = content
	p.Hashtags = hashtags
	f.rows[id] = p
	return nil
}

func (f *fakePosts) UpdateImages(_ context.Context, id string, prev, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrPostNotFound
	}
	if hook := f.beforeImageWrite; hook != nil {
		f.beforeImageWrite = nil
		hook(&p)
		f.rows[id] = p
	}
	if p.Images != prev {
		return repository.ErrStaleWrite
	}
	p.Images = next
	f.rows[id] = p
	return nil
}

func (f *fakePosts) UpdateStatus(_ context.Context, id string, from, to models.PostStatus, note string, scheduledAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrPostNotFound
	}
	if p.Status != from {
		return repository.ErrStaleWrite
	}
	p.Status = to
	p.ReviewNote = note
	p.ScheduledAt = scheduledAt
	f.rows[id] = p
	return nil
}

func (f *fakePosts) UpdateThumbnail(_ context.Context, id string, thumbnailURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrPostNotFound
	}
	p.ThumbnailURL = thumbnailURL
	f.rows[id] = p
	return nil
}

type fakeAssets struct {
	mu      sync.Mutex
	rows    map[string]models.Asset
	deleted []string
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{rows: map[string]models.Asset{}}
}

func (f *fakeAssets) Create(_ context.Context, a models.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[a.URL] = a
	return nil
}

func (f *fakeAssets) FindByURL(_ context.Context, url string) (models.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[url]
	if !ok {
		return models.Asset{}, repository.ErrAssetNotFound
	}
	return a, nil
}

func (f *fakeAssets) MarkDeleted(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[url]
	if !ok {
		return repository.ErrAssetNotFound
	}
	a.Status = models.AssetStatusDeleted
	f.rows[url] = a
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) ImagesBucket() string { return "images" }

func (f *fakeObjects) PutObject(_ context.Context, bucket, key string, data []byte, _ string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = data
	return storage.Object{Bucket: bucket, Key: key, URL: "https://cdn.test/" + bucket + "/" + key, Size: int64(len(data))}, nil
}

type fakeBackend struct {
	themes    []generator.ThemeIdea
	posts     []generator.PostDraft
	images    []generator.GeneratedImage
	err       error
	lastImage generator.ImageRequest
}

func (f *fakeBackend) GenerateThemes(context.Context, generator.ThemeRequest) ([]generator.ThemeIdea, error) {
	return f.themes, f.err
}

func (f *fakeBackend) GeneratePosts(context.Context, generator.PostRequest) ([]generator.PostDraft, error) {
	return f.posts, f.err
}

func (f *fakeBackend) GenerateImages(_ context.Context, req generator.ImageRequest) ([]generator.GeneratedImage, error) {
	f.lastImage = req
	return f.images, f.err
}

type fakeQuota struct {
	remaining int
}

func (f *fakeQuota) Allow(_ context.Context, _ string, cost int) (bool, error) {
	if cost > f.remaining {
		return false, nil
	}
	f.remaining -= cost
	return true, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evs ...events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
	return nil
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingQueue struct {
	tasks []queue.Task
}

func (r *recordingQueue) Enqueue(_ context.Context, t queue.Task) error {
	r.tasks = append(r.tasks, t)
	return nil
}

// fixture wires a PostService over fakes with one user, one active campaign
// and one approved theme.
type fixture struct {
	campaigns *fakeCampaigns
	themes    *fakeThemes
	posts     *fakePosts
	assets    *fakeAssets
	objects   *fakeObjects
	backend   *fakeBackend
	quota     *fakeQuota
	events    *recordingPublisher
	tasks     *recordingQueue
	svc       *PostService
	now       time.Time
}

const (
	owner    = "user-1"
	stranger = "user-2"
)

func newFixture(posts ...models.ContentPost) *fixture {
	f := &fixture{
		campaigns: newFakeCampaigns(models.Campaign{
			ID:        "camp-1",
			UserID:    owner,
			Name:      "Spring launch",
			Platforms: []string{"instagram", "linkedin"},
			Status:    models.CampaignStatusActive,
		}),
		themes: newFakeThemes(
			models.Theme{ID: "theme-ok", CampaignID: "camp-1", Title: "Bloom", Status: models.ThemeStatusApproved},
			models.Theme{ID: "theme-new", CampaignID: "camp-1", Title: "Fresh", Status: models.ThemeStatusProposed},
		),
		posts:   newFakePosts(posts...),
		assets:  newFakeAssets(),
		objects: newFakeObjects(),
		backend: &fakeBackend{},
		quota:   &fakeQuota{remaining: 100},
		events:  &recordingPublisher{},
		tasks:   &recordingQueue{},
		now:     time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewPostService(PostDeps{
		Campaigns:  f.campaigns,
		Themes:     f.themes,
		Posts:      f.posts,
		Assets:     f.assets,
		Store:      f.objects,
		Backend:    f.backend,
		Quota:      f.quota,
		Tasks:      f.tasks,
		Events:     f.events,
		Normalizer: imagedata.New(zerolog.Nop(), "test"),
	}, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func draftPost(id, images string) models.ContentPost {
	return models.ContentPost{
		ID:         id,
		CampaignID: "camp-1",
		ThemeID:    "theme-ok",
		UserID:     owner,
		Platform:   "instagram",
		Content:    "Spring is here",
		Images:     images,
		Status:     models.PostStatusDraft,
	}
}
