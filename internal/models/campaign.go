package models

import "time"

type CampaignStatus string

const (
	CampaignStatusDraft    CampaignStatus = "draft"
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusArchived CampaignStatus = "archived"
)

func (s CampaignStatus) IsValid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusArchived:
		return true
	}
	return false
}

type Campaign struct {
	ID             string
	UserID         string
	Name           string
	Description    string
	Objective      string
	TargetAudience string
	Tone           string
	Platforms      []string
	Status         CampaignStatus
	StartDate      *time.Time
	EndDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ThemeStatus string

const (
	ThemeStatusProposed ThemeStatus = "proposed"
	ThemeStatusApproved ThemeStatus = "approved"
	ThemeStatusRejected ThemeStatus = "rejected"
)

func (s ThemeStatus) IsValid() bool {
	switch s {
	case ThemeStatusProposed, ThemeStatusApproved, ThemeStatusRejected:
		return true
	}
	return false
}

// Theme is a sub-concept of a campaign that groups generated posts.
type Theme struct {
	ID          string
	CampaignID  string
	Title       string
	Description string
	Status      ThemeStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
