package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaignstudio/internal/events"
	"campaignstudio/internal/generator"
	"campaignstudio/internal/ids"
	"campaignstudio/internal/models"
)

const maxThemesPerRequest = 10

type ThemeService struct {
	campaigns CampaignStore
	themes    ThemeStore
	backend   generator.Backend
	quota     Quota
	events    EventPublisher
	log       zerolog.Logger
}

func NewThemeService(
	campaigns CampaignStore,
	themes ThemeStore,
	backend generator.Backend,
	quota Quota,
	publisher EventPublisher,
	log zerolog.Logger,
) *ThemeService {
	return &ThemeService{
		campaigns: campaigns,
		themes:    themes,
		backend:   backend,
		quota:     quota,
		events:    publisher,
		log:       log,
	}
}

// Generate asks the backend for count theme ideas and stores them as proposed.
func (s *ThemeService) Generate(ctx context.Context, userID, campaignID string, count int) ([]models.Theme, error) {
	if count <= 0 {
		count = 3
	}
	if count > maxThemesPerRequest {
		return nil, fmt.Errorf("%w: at most %d themes per request", ErrInvalidInput, maxThemesPerRequest)
	}

	c, err := ownedCampaign(ctx, s.campaigns, userID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CampaignStatusArchived {
		return nil, fmt.Errorf("%w: campaign is archived", ErrInvalidTransition)
	}
	if err := consumeQuota(ctx, s.quota, userID, 1); err != nil {
		return nil, err
	}

	ideas, err := s.backend.GenerateThemes(ctx, generator.ThemeRequest{
		CampaignName:   c.Name,
		Description:    c.Description,
		Objective:      c.Objective,
		TargetAudience: c.TargetAudience,
		Tone:           c.Tone,
		Count:          count,
	})
	if err != nil {
		return nil, generationErr(err)
	}

	now := time.Now().UTC()
	themes := make([]models.Theme, 0, len(ideas))
	for _, idea := range ideas {
		title := strings.TrimSpace(idea.Title)
		if title == "" {
			continue
		}
		themes = append(themes, models.Theme{
			ID:          ids.New(),
			CampaignID:  c.ID,
			Title:       title,
			Description: strings.TrimSpace(idea.Description),
			Status:      models.ThemeStatusProposed,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if len(themes) == count {
			break
		}
	}
	if len(themes) == 0 {
		return nil, fmt.Errorf("%w: backend returned no themes", ErrGenerationFailed)
	}

	if err := s.themes.CreateBatch(ctx, themes); err != nil {
		return nil, fmt.Errorf("save themes: %w", err)
	}

	emit(ctx, s.events, s.log, events.Event{Type: events.ThemesGenerated, CampaignID: c.ID, UserID: userID})
	return themes, nil
}

func (s *ThemeService) List(ctx context.Context, userID, campaignID string) ([]models.Theme, error) {
	if _, err := ownedCampaign(ctx, s.campaigns, userID, campaignID); err != nil {
		return nil, err
	}
	return s.themes.ListByCampaign(ctx, campaignID)
}

func (s *ThemeService) SetStatus(ctx context.Context, userID, themeID string, status models.ThemeStatus) (models.Theme, error) {
	if !status.IsValid() {
		return models.Theme{}, fmt.Errorf("%w: unknown theme status %q", ErrInvalidInput, status)
	}
	t, err := s.ownedTheme(ctx, userID, themeID)
	if err != nil {
		return models.Theme{}, err
	}
	if err := s.themes.UpdateStatus(ctx, themeID, status); err != nil {
		return models.Theme{}, storeErr(err)
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return t, nil
}

func (s *ThemeService) ownedTheme(ctx context.Context, userID, themeID string) (models.Theme, error) {
	t, err := s.themes.Get(ctx, themeID)
	if err != nil {
		return models.Theme{}, storeErr(err)
	}
	if _, err := ownedCampaign(ctx, s.campaigns, userID, t.CampaignID); err != nil {
		return models.Theme{}, err
	}
	return t, nil
}

func consumeQuota(ctx context.Context, quota Quota, userID string, cost int) error {
	if quota == nil {
		return nil
	}
	ok, err := quota.Allow(ctx, userID, cost)
	if err != nil {
		return fmt.Errorf("check quota: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

func generationErr(err error) error {
	if errors.Is(err, generator.ErrUnavailable) || errors.Is(err, generator.ErrBadResponse) {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return err
}

// emit publishes best effort; the state change it describes is already stored.
func emit(ctx context.Context, publisher EventPublisher, log zerolog.Logger, evs ...events.Event) {
	if publisher == nil || len(evs) == 0 {
		return
	}
	now := time.Now().UTC()
	for i := range evs {
		if evs[i].At.IsZero() {
			evs[i].At = now
		}
	}
	if err := publisher.Publish(ctx, evs...); err != nil {
		log.Warn().Err(err).Str("event", string(evs[0].Type)).Int("count", len(evs)).Msg("publish events failed")
	}
}
