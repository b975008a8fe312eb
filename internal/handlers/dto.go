package handlers

import (
	"time"

	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/models"
	"campaignstudio/internal/service"
)

type campaignResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Objective      string     `json:"objective"`
	TargetAudience string     `json:"targetAudience"`
	Tone           string     `json:"tone"`
	Platforms      []string   `json:"platforms"`
	Status         string     `json:"status"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func toCampaign(c models.Campaign) campaignResponse {
	platforms := c.Platforms
	if platforms == nil {
		platforms = []string{}
	}
	return campaignResponse{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		Objective:      c.Objective,
		TargetAudience: c.TargetAudience,
		Tone:           c.Tone,
		Platforms:      platforms,
		Status:         string(c.Status),
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type themeResponse struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaignId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toThemes(themes []models.Theme) []themeResponse {
	out := make([]themeResponse, 0, len(themes))
	for _, t := range themes {
		out = append(out, toTheme(t))
	}
	return out
}

func toTheme(t models.Theme) themeResponse {
	return themeResponse{
		ID:          t.ID,
		CampaignID:  t.CampaignID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
}

type postResponse struct {
	ID            string                      `json:"id"`
	CampaignID    string                      `json:"campaignId"`
	ThemeID       string                      `json:"themeId"`
	Platform      string                      `json:"platform"`
	Content       string                      `json:"content"`
	Hashtags      []string                    `json:"hashtags"`
	Status        string                      `json:"status"`
	ReviewNote    string                      `json:"reviewNote,omitempty"`
	Images        []imagedata.ImageDescriptor `json:"images"`
	MainImage     string                      `json:"mainImage"`
	HasRealImages bool                        `json:"hasRealImages"`
	SelectedCount int                         `json:"selectedCount"`
	ThumbnailURL  string                      `json:"thumbnailUrl,omitempty"`
	ScheduledAt   *time.Time                  `json:"scheduledAt,omitempty"`
	PublishedAt   *time.Time                  `json:"publishedAt,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func toPost(v service.PostView) postResponse {
	hashtags := v.Post.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	images := v.Images
	if images == nil {
		images = []imagedata.ImageDescriptor{}
	}
	return postResponse{
		ID:            v.Post.ID,
		CampaignID:    v.Post.CampaignID,
		ThemeID:       v.Post.ThemeID,
		Platform:      v.Post.Platform,
		Content:       v.Post.Content,
		Hashtags:      hashtags,
		Status:        string(v.Post.Status),
		ReviewNote:    v.Post.ReviewNote,
		Images:        images,
		MainImage:     v.MainImage,
		HasRealImages: v.HasRealImages,
		SelectedCount: v.SelectedCount,
		ThumbnailURL:  v.Post.ThumbnailURL,
		ScheduledAt:   v.Post.ScheduledAt,
		PublishedAt:   v.Post.PublishedAt,
		CreatedAt:     v.Post.CreatedAt,
		UpdatedAt:     v.Post.UpdatedAt,
	}
}

func toPosts(views []service.PostView) []postResponse {
	out := make([]postResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toPost(v))
	}
	return out
}
