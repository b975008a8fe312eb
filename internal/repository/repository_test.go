package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignstudio/internal/database"
	"campaignstudio/internal/ids"
	"campaignstudio/internal/models"
	"campaignstudio/internal/repository"
)

// testPool connects to TEST_DATABASE_URL and applies migrations. Tests that
// need it are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, zerolog.Nop()))
	return pool
}

func seedPost(t *testing.T, pool *pgxpool.Pool) models.ContentPost {
	t.Helper()
	ctx := context.Background()

	user := models.User{
		ID:           ids.New(),
		Email:        ids.New() + "@example.test",
		PasswordHash: []byte("x"),
		DisplayName:  "tester",
		Role:         models.UserRoleEditor,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, repository.NewUserRepository(pool).Create(ctx, user))

	campaign := models.Campaign{ID: ids.New(), UserID: user.ID, Name: "c", Status: models.CampaignStatusActive}
	require.NoError(t, repository.NewCampaignRepository(pool).Create(ctx, campaign))

	theme := models.Theme{ID: ids.New(), CampaignID: campaign.ID, Title: "t", Status: models.ThemeStatusApproved}
	require.NoError(t, repository.NewThemeRepository(pool).CreateBatch(ctx, []models.Theme{theme}))

	post := models.ContentPost{
		ID:         ids.New(),
		CampaignID: campaign.ID,
		ThemeID:    theme.ID,
		UserID:     user.ID,
		Platform:   "instagram",
		Content:    "hello",
		Images:     `{"images":[]}`,
		Status:     models.PostStatusDraft,
	}
	require.NoError(t, repository.NewPostRepository(pool).CreateBatch(ctx, []models.ContentPost{post}))
	return post
}

func TestPostImagesCompareAndSwap(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	posts := repository.NewPostRepository(pool)
	post := seedPost(t, pool)

	next := `{"images":[{"url":"/a.png","prompt":"a","order":0,"isSelected":false}]}`
	require.NoError(t, posts.UpdateImages(ctx, post.ID, post.Images, next))

	err := posts.UpdateImages(ctx, post.ID, post.Images, `{"images":[]}`)
	assert.ErrorIs(t, err, repository.ErrStaleWrite)

	got, err := posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, next, got.Images)

	err = posts.UpdateImages(ctx, "missing", "", "")
	assert.ErrorIs(t, err, repository.ErrPostNotFound)
}

func TestPostStatusAndDue(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	posts := repository.NewPostRepository(pool)
	post := seedPost(t, pool)

	err := posts.UpdateStatus(ctx, post.ID, models.PostStatusApproved, models.PostStatusScheduled, "", nil)
	assert.ErrorIs(t, err, repository.ErrStaleWrite)

	at := time.Now().Add(-time.Minute).UTC()
	require.NoError(t, posts.UpdateStatus(ctx, post.ID, models.PostStatusDraft, models.PostStatusScheduled, "", &at))

	due, err := posts.ListDue(ctx, time.Now(), 1000)
	require.NoError(t, err)
	found := false
	for _, p := range due {
		if p.ID == post.ID {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, posts.UpdateStatus(ctx, post.ID, models.PostStatusScheduled, models.PostStatusPublished, "", &at))
	got, err := posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPublished, got.Status)
	assert.NotNil(t, got.PublishedAt)
}

func TestAssetLifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	assets := repository.NewAssetRepository(pool)
	post := seedPost(t, pool)

	a := models.Asset{
		ID: ids.New(), UserID: post.UserID, PostID: post.ID, Bucket: "b", ObjectKey: "k",
		URL: "https://cdn.test/" + ids.New(), MIME: "image/png", Source: models.AssetSourceUpload,
		Status: models.AssetStatusActive,
	}
	require.NoError(t, assets.Create(ctx, a))

	found, err := assets.FindByURL(ctx, a.URL)
	require.NoError(t, err)
	assert.Equal(t, a.ID, found.ID)

	require.NoError(t, assets.MarkDeleted(ctx, a.URL))
	assert.ErrorIs(t, assets.MarkDeleted(ctx, a.URL), repository.ErrAssetNotFound)

	deleted, err := assets.ListDeleted(ctx, 1000)
	require.NoError(t, err)
	assert.NotEmpty(t, deleted)

	require.NoError(t, assets.Purge(ctx, a.ID))
	_, err = assets.FindByURL(ctx, a.URL)
	assert.ErrorIs(t, err, repository.ErrAssetNotFound)
}
