package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaignstudio/internal/config"
)

const maxResponseBytes = 32 << 20

// RemoteClient calls the generation service over JSON HTTP.
type RemoteClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewRemoteClient(cfg config.GeneratorConfig, log zerolog.Logger) *RemoteClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &RemoteClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "generator").Str("provider", "remote").Logger(),
	}
}

type themesResponse struct {
	Themes []ThemeIdea `json:"themes"`
}

type postsResponse struct {
	Posts []PostDraft `json:"posts"`
}

type imagesResponse struct {
	Images []GeneratedImage `json:"images"`
}

func (c *RemoteClient) GenerateThemes(ctx context.Context, req ThemeRequest) ([]ThemeIdea, error) {
	var resp themesResponse
	if err := c.post(ctx, "/themes", req, &resp); err != nil {
		return nil, err
	}
	return resp.Themes, nil
}

func (c *RemoteClient) GeneratePosts(ctx context.Context, req PostRequest) ([]PostDraft, error) {
	var resp postsResponse
	if err := c.post(ctx, "/posts", req, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}

func (c *RemoteClient) GenerateImages(ctx context.Context, req ImageRequest) ([]GeneratedImage, error) {
	var resp imagesResponse
	if err := c.post(ctx, "/images", req, &resp); err != nil {
		return nil, err
	}
	return resp.Images, nil
}

func (c *RemoteClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("generation request")

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d: %s", ErrBadResponse, resp.StatusCode, truncate(raw, 200))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
