package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"campaignstudio/internal/config"
	"campaignstudio/internal/media"
)

// GeminiClient drafts copy with a Gemini text model in JSON mode and renders
// candidates with an Imagen model. Images come back inline as data: URLs.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	log        zerolog.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.GeneratorConfig, log zerolog.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generator.apikey is required for the gemini provider")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		log:        log.With().Str("component", "generator").Str("provider", "gemini").Logger(),
	}, nil
}

func (g *GeminiClient) GenerateThemes(ctx context.Context, req ThemeRequest) ([]ThemeIdea, error) {
	var out themesResponse
	if err := g.generateJSON(ctx, themePrompt(req), &out); err != nil {
		return nil, err
	}
	return out.Themes, nil
}

func (g *GeminiClient) GeneratePosts(ctx context.Context, req PostRequest) ([]PostDraft, error) {
	var out postsResponse
	if err := g.generateJSON(ctx, postPrompt(req), &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

func (g *GeminiClient) GenerateImages(ctx context.Context, req ImageRequest) ([]GeneratedImage, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}
	prompt := req.Prompt
	if req.Style != "" {
		prompt = fmt.Sprintf("%s. Style: %s", prompt, req.Style)
	}

	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	images := make([]GeneratedImage, 0, len(resp.GeneratedImages))
	for _, gen := range resp.GeneratedImages {
		if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := gen.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		images = append(images, GeneratedImage{
			URL:     media.EncodeDataURL(mimeType, gen.Image.ImageBytes),
			Prompt:  req.Prompt,
			Service: "imagen",
			Width:   req.Width,
			Height:  req.Height,
		})
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w: no images returned", ErrBadResponse)
	}
	return images, nil
}

func (g *GeminiClient) generateJSON(ctx context.Context, prompt string, out any) error {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.textModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := strings.TrimSpace(resp.Text())
	if err := json.Unmarshal([]byte(text), out); err != nil {
		g.log.Warn().Err(err).Int("length", len(text)).Msg("model returned invalid json")
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}

func themePrompt(req ThemeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Propose %d distinct themes for the marketing campaign %q.\n", max(req.Count, 1), req.CampaignName)
	writeField(&b, "Description", req.Description)
	writeField(&b, "Objective", req.Objective)
	writeField(&b, "Target audience", req.TargetAudience)
	writeField(&b, "Tone", req.Tone)
	b.WriteString(`Respond with JSON: {"themes":[{"title":string,"description":string}]}`)
	return b.String()
}

func postPrompt(req PostRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d social media posts for the campaign %q under the theme %q.\n",
		max(req.Count, 1), req.CampaignName, req.ThemeTitle)
	writeField(&b, "Theme description", req.ThemeDescription)
	writeField(&b, "Objective", req.Objective)
	writeField(&b, "Tone", req.Tone)
	if len(req.Platforms) > 0 {
		writeField(&b, "Platforms (spread posts across them)", strings.Join(req.Platforms, ", "))
	}
	b.WriteString(`Respond with JSON: {"posts":[{"platform":string,"content":string,"hashtags":[string]}]}`)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
