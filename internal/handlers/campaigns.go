package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campaignstudio/internal/models"
	"campaignstudio/internal/service"
)

type campaignRequest struct {
	Name           string     `json:"name" binding:"required"`
	Description    string     `json:"description"`
	Objective      string     `json:"objective"`
	TargetAudience string     `json:"targetAudience"`
	Tone           string     `json:"tone"`
	Platforms      []string   `json:"platforms"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
}

func (r campaignRequest) input() service.CampaignInput {
	return service.CampaignInput{
		Name:           r.Name,
		Description:    r.Description,
		Objective:      r.Objective,
		TargetAudience: r.TargetAudience,
		Tone:           r.Tone,
		Platforms:      r.Platforms,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
	}
}

func (h HandlerSet) CreateCampaign(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	campaign, err := h.campaigns.Create(c.Request.Context(), user.ID, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"campaign": toCampaign(campaign)})
}

func (h HandlerSet) ListCampaigns(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	campaigns, err := h.campaigns.List(c.Request.Context(), user.ID, pageFromQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]campaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		items = append(items, toCampaign(campaign))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetCampaign(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	campaign, err := h.campaigns.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": toCampaign(campaign)})
}

func (h HandlerSet) UpdateCampaign(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	campaign, err := h.campaigns.Update(c.Request.Context(), user.ID, c.Param("id"), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": toCampaign(campaign)})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h HandlerSet) SetCampaignStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	campaign, err := h.campaigns.SetStatus(c.Request.Context(), user.ID, c.Param("id"), models.CampaignStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": toCampaign(campaign)})
}

func (h HandlerSet) DeleteCampaign(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.campaigns.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
