// Package generator talks to the AI backend that drafts campaign themes, post
// copy and candidate images.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"campaignstudio/internal/config"
)

var (
	ErrUnavailable = errors.New("generation backend unavailable")
	ErrBadResponse = errors.New("generation backend returned an unusable response")
)

type ThemeRequest struct {
	CampaignName   string `json:"campaignName"`
	Description    string `json:"description"`
	Objective      string `json:"objective"`
	TargetAudience string `json:"targetAudience"`
	Tone           string `json:"tone"`
	Count          int    `json:"count"`
}

type ThemeIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type PostRequest struct {
	CampaignName     string   `json:"campaignName"`
	Objective        string   `json:"objective"`
	Tone             string   `json:"tone"`
	ThemeTitle       string   `json:"themeTitle"`
	ThemeDescription string   `json:"themeDescription"`
	Platforms        []string `json:"platforms"`
	Count            int      `json:"count"`
}

type PostDraft struct {
	Platform string   `json:"platform"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

type ImageRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Count  int    `json:"count"`
}

// GeneratedImage is one candidate. URL may be remote, site relative, an
// inline data: URL, or a blob: URL the caller has to discard.
type GeneratedImage struct {
	URL     string `json:"url"`
	Prompt  string `json:"prompt"`
	Service string `json:"service"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type Backend interface {
	GenerateThemes(ctx context.Context, req ThemeRequest) ([]ThemeIdea, error)
	GeneratePosts(ctx context.Context, req PostRequest) ([]PostDraft, error)
	GenerateImages(ctx context.Context, req ImageRequest) ([]GeneratedImage, error)
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.GeneratorConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Provider {
	case "remote":
		return NewRemoteClient(cfg, log), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported generator provider %q", cfg.Provider)
	}
}
