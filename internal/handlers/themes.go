package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campaignstudio/internal/models"
)

type generateRequest struct {
	Count int `json:"count"`
}

func (h HandlerSet) GenerateThemes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req generateRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	themes, err := h.themes.Generate(c.Request.Context(), user.ID, c.Param("id"), req.Count)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"items": toThemes(themes)})
}

func (h HandlerSet) ListThemes(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	themes, err := h.themes.List(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toThemes(themes)})
}

func (h HandlerSet) SetThemeStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	theme, err := h.themes.SetStatus(c.Request.Context(), user.ID, c.Param("themeId"), models.ThemeStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": toTheme(theme)})
}
