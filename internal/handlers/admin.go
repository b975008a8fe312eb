package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListAssets(c *gin.Context) {
	page := pageFromQuery(c)
	assets, err := h.assets.List(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]map[string]interface{}, 0, len(assets))
	for _, a := range assets {
		items = append(items, map[string]interface{}{
			"id":        a.ID,
			"userId":    a.UserID,
			"postId":    a.PostID,
			"url":       a.URL,
			"mime":      a.MIME,
			"sizeBytes": a.SizeBytes,
			"source":    a.Source,
			"status":    a.Status,
			"createdAt": a.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}
