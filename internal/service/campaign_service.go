package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"campaignstudio/internal/ids"
	"campaignstudio/internal/models"
)

type CampaignInput struct {
	Name           string
	Description    string
	Objective      string
	TargetAudience string
	Tone           string
	Platforms      []string
	StartDate      *time.Time
	EndDate        *time.Time
}

func (in CampaignInput) validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > 200 {
		return fmt.Errorf("%w: name is longer than 200 characters", ErrInvalidInput)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}
	return nil
}

type CampaignService struct {
	campaigns CampaignStore
	log       zerolog.Logger
}

func NewCampaignService(campaigns CampaignStore, log zerolog.Logger) *CampaignService {
	return &CampaignService{campaigns: campaigns, log: log}
}

func (s *CampaignService) Create(ctx context.Context, userID string, in CampaignInput) (models.Campaign, error) {
	if err := in.validate(); err != nil {
		return models.Campaign{}, err
	}

	now := time.Now().UTC()
	c := models.Campaign{
		ID:        ids.New(),
		UserID:    userID,
		Status:    models.CampaignStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyCampaignInput(&c, in)

	if err := s.campaigns.Create(ctx, c); err != nil {
		return models.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	s.log.Info().Str("campaign_id", c.ID).Str("user_id", userID).Msg("campaign created")
	return c, nil
}

func (s *CampaignService) Get(ctx context.Context, userID, id string) (models.Campaign, error) {
	return ownedCampaign(ctx, s.campaigns, userID, id)
}

func (s *CampaignService) List(ctx context.Context, userID string, page Page) ([]models.Campaign, error) {
	page = page.normalize()
	return s.campaigns.ListByUser(ctx, userID, page.Limit, page.Offset)
}

func (s *CampaignService) Update(ctx context.Context, userID, id string, in CampaignInput) (models.Campaign, error) {
	if err := in.validate(); err != nil {
		return models.Campaign{}, err
	}
	c, err := ownedCampaign(ctx, s.campaigns, userID, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if c.Status == models.CampaignStatusArchived {
		return models.Campaign{}, fmt.Errorf("%w: campaign is archived", ErrInvalidTransition)
	}

	applyCampaignInput(&c, in)
	c.UpdatedAt = time.Now().UTC()
	if err := s.campaigns.Update(ctx, c); err != nil {
		return models.Campaign{}, storeErr(err)
	}
	return c, nil
}

func (s *CampaignService) SetStatus(ctx context.Context, userID, id string, status models.CampaignStatus) (models.Campaign, error) {
	if !status.IsValid() {
		return models.Campaign{}, fmt.Errorf("%w: unknown campaign status %q", ErrInvalidInput, status)
	}
	c, err := ownedCampaign(ctx, s.campaigns, userID, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if c.Status == status {
		return c, nil
	}

	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	if err := s.campaigns.Update(ctx, c); err != nil {
		return models.Campaign{}, storeErr(err)
	}
	return c, nil
}

func (s *CampaignService) Delete(ctx context.Context, userID, id string) error {
	if _, err := ownedCampaign(ctx, s.campaigns, userID, id); err != nil {
		return err
	}
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return storeErr(err)
	}
	s.log.Info().Str("campaign_id", id).Str("user_id", userID).Msg("campaign deleted")
	return nil
}

func applyCampaignInput(c *models.Campaign, in CampaignInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.Description = strings.TrimSpace(in.Description)
	c.Objective = strings.TrimSpace(in.Objective)
	c.TargetAudience = strings.TrimSpace(in.TargetAudience)
	c.Tone = strings.TrimSpace(in.Tone)
	c.Platforms = normalizePlatforms(in.Platforms)
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
}

func normalizePlatforms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func ownedCampaign(ctx context.Context, store CampaignStore, userID, id string) (models.Campaign, error) {
	c, err := store.Get(ctx, id)
	if err != nil {
		return models.Campaign{}, storeErr(err)
	}
	if c.UserID != userID {
		return models.Campaign{}, ErrForbidden
	}
	return c, nil
}
