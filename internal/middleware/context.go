package middleware

import (
	"github.com/gin-gonic/gin"

	"campaignstudio/internal/models"
	"campaignstudio/internal/security"
)

const (
	currentUserKey  = "current_user"
	accessClaimsKey = "access_claims"
	accessTokenKey  = "access_token"
)

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func AccessClaims(c *gin.Context) (security.AccessClaims, bool) {
	v, ok := c.Get(accessClaimsKey)
	if !ok {
		return security.AccessClaims{}, false
	}
	claims, ok := v.(security.AccessClaims)
	return claims, ok
}
