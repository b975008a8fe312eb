package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campaignstudio/internal/models"
)

func (h HandlerSet) GeneratePosts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req generateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	views, err := h.posts.Generate(c.Request.Context(), user.ID, c.Param("themeId"), req.Count)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": toPosts(views)})
}

func (h HandlerSet) ListPosts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	status := models.PostStatus(c.Query("status"))
	views, err := h.posts.ListByCampaign(c.Request.Context(), user.ID, c.Param("id"), status, pageFromQuery(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toPosts(views)})
}

func (h HandlerSet) GetPost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.posts.Get(c.Request.Context(), user.ID, c.Param("postId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

type updatePostRequest struct {
	Content  string   `json:"content" binding:"required"`
	Hashtags []string `json:"hashtags"`
}

func (h HandlerSet) UpdatePost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.UpdateContent(c.Request.Context(), user.ID, c.Param("postId"), req.Content, req.Hashtags)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

func (h HandlerSet) SubmitPost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.posts.Submit(c.Request.Context(), user.ID, c.Param("postId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

type reviewRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note"`
}

func (h HandlerSet) ReviewPost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.Review(c.Request.Context(), user.ID, c.Param("postId"), *req.Approve, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

func (h HandlerSet) ReopenPost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.posts.Reopen(c.Request.Context(), user.ID, c.Param("postId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

func (h HandlerSet) SchedulePost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.Schedule(c.Request.Context(), user.ID, c.Param("postId"), req.ScheduledAt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

func (h HandlerSet) UnschedulePost(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	view, err := h.posts.Unschedule(c.Request.Context(), user.ID, c.Param("postId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}
