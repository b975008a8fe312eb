package models

import "time"

type PostStatus string

const (
	PostStatusDraft         PostStatus = "draft"
	PostStatusPendingReview PostStatus = "pending_review"
	PostStatusApproved      PostStatus = "approved"
	PostStatusRejected      PostStatus = "rejected"
	PostStatusScheduled     PostStatus = "scheduled"
	PostStatusPublished     PostStatus = "published"
	PostStatusFailed        PostStatus = "failed"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:         {PostStatusPendingReview},
	PostStatusPendingReview: {PostStatusApproved, PostStatusRejected},
	PostStatusRejected:      {PostStatusDraft},
	PostStatusApproved:      {PostStatusScheduled, PostStatusDraft},
	PostStatusScheduled:     {PostStatusApproved, PostStatusPublished, PostStatusFailed},
	PostStatusFailed:        {PostStatusScheduled},
}

func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusPendingReview, PostStatusApproved, PostStatusRejected,
		PostStatusScheduled, PostStatusPublished, PostStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a post may move from s to next.
func (s PostStatus) CanTransition(next PostStatus) bool {
	for _, allowed := range postTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Editable reports whether copy and images may still change.
func (s PostStatus) Editable() bool {
	return s == PostStatusDraft || s == PostStatusRejected || s == PostStatusPendingReview
}

// ContentPost is one unit of campaign output. Images holds the serialized
// image collection; ImageURL is the legacy single-image field.
type ContentPost struct {
	ID           string
	CampaignID   string
	ThemeID      string
	UserID       string
	Platform     string
	Content      string
	Hashtags     []string
	Images       string
	ImageURL     string
	ThumbnailURL string
	Status       PostStatus
	ReviewNote   string
	ScheduledAt  *time.Time
	PublishedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
