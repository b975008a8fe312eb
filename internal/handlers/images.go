package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"campaignstudio/internal/service"
)

type generateImagesRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Count  int    `json:"count"`
}

func (h HandlerSet) GenerateImages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req generateImagesRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.GenerateImages(c.Request.Context(), user.ID, c.Param("postId"), service.ImageGenerationInput{
		Prompt: req.Prompt,
		Style:  req.Style,
		Width:  req.Width,
		Height: req.Height,
		Count:  req.Count,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

// uploadBodyLimit leaves room for multipart framing around the file.
const uploadBodyLimit = service.MaxUploadBytes + 1<<20

func (h HandlerSet) UploadImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, uploadBodyLimit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_required"})
		return
	}
	defer file.Close()

	view, err := h.uploads.Upload(c.Request.Context(), service.UploadInput{
		UserID:       user.ID,
		PostID:       c.Param("postId"),
		File:         file,
		Filename:     header.Filename,
		DeclaredType: header.Header.Get("Content-Type"),
		Prompt:       c.PostForm("prompt"),
	})
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("upload failed")
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": toPost(view)})
}

type reorderRequest struct {
	Order []int `json:"order" binding:"required"`
}

func (h HandlerSet) ReorderImages(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.ReorderImages(c.Request.Context(), user.ID, c.Param("postId"), req.Order)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

type selectRequest struct {
	Selected *bool `json:"selected" binding:"required"`
}

func (h HandlerSet) SelectImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	index, err := imageIndex(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.SelectImage(c.Request.Context(), user.ID, c.Param("postId"), index, *req.Selected)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

func (h HandlerSet) RemoveImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	index, err := imageIndex(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	view, err := h.posts.RemoveImage(c.Request.Context(), user.ID, c.Param("postId"), index)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": toPost(view)})
}

func imageIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("image index must be a non-negative integer")
	}
	return index, nil
}
