package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignstudio/internal/config"
)

func newTestRemote(t *testing.T, h http.HandlerFunc) *RemoteClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewRemoteClient(config.GeneratorConfig{BaseURL: srv.URL + "/", APIKey: "k", Timeout: time.Second}, zerolog.Nop())
}

func TestRemoteGenerateThemes(t *testing.T) {
	c := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/themes", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var req ThemeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Spring", req.CampaignName)
		assert.Equal(t, 2, req.Count)

		_, _ = w.Write([]byte(`{"themes":[{"title":"Bloom","description":"flowers"},{"title":"Fresh","description":"start"}]}`))
	})

	themes, err := c.GenerateThemes(context.Background(), ThemeRequest{CampaignName: "Spring", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, []ThemeIdea{{"Bloom", "flowers"}, {"Fresh", "start"}}, themes)
}

func TestRemoteGenerateImages(t *testing.T) {
	c := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images", r.URL.Path)
		_, _ = w.Write([]byte(`{"images":[{"url":"https://cdn/x.png","prompt":"p","service":"sd"},{"url":"blob:abc"}]}`))
	})

	images, err := c.GenerateImages(context.Background(), ImageRequest{Prompt: "p", Count: 2})
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "https://cdn/x.png", images[0].URL)
	assert.Equal(t, "blob:abc", images[1].URL)
}

func TestRemoteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusBadGateway, `oops`, ErrUnavailable},
		{"throttled", http.StatusTooManyRequests, ``, ErrUnavailable},
		{"client error", http.StatusBadRequest, `{"error":"bad"}`, ErrBadResponse},
		{"invalid json", http.StatusOK, `{"posts":`, ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GeneratePosts(context.Background(), PostRequest{Count: 1})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRemoteUnreachable(t *testing.T) {
	c := NewRemoteClient(config.GeneratorConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, zerolog.Nop())
	_, err := c.GenerateThemes(context.Background(), ThemeRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPrompts(t *testing.T) {
	p := themePrompt(ThemeRequest{CampaignName: "Spring", Objective: "sales", Count: 3})
	assert.Contains(t, p, "Propose 3 distinct themes")
	assert.Contains(t, p, "Objective: sales")
	assert.NotContains(t, p, "Tone:")

	p = postPrompt(PostRequest{CampaignName: "Spring", ThemeTitle: "Bloom", Platforms: []string{"instagram", "x"}})
	assert.Contains(t, p, "Write 1 social media posts")
	assert.Contains(t, p, "instagram, x")
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.GeneratorConfig{Provider: "other"}, zerolog.Nop())
	assert.Error(t, err)
}
