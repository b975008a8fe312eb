package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"campaignstudio/internal/config"
	"campaignstudio/internal/middleware"
	"campaignstudio/internal/models"
	"campaignstudio/internal/service"
	"campaignstudio/internal/ws"
)

type SessionStore interface {
	middleware.SessionLookup
	ListByUser(ctx context.Context, userID string) ([]models.Session, error)
	DeleteByDevice(ctx context.Context, userID string, deviceID string) error
}

type AssetLister interface {
	List(ctx context.Context, limit, offset int) ([]models.Asset, error)
}

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Auth      *service.AuthService
	Campaigns *service.CampaignService
	Themes    *service.ThemeService
	Posts     *service.PostService
	Uploads   *service.UploadService
	Users     middleware.UserLookup
	Sessions  SessionStore
	Assets    AssetLister
	Nonces    middleware.NonceStore
	Hub       *ws.Hub
	Checks    map[string]HealthCheck
}

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      *service.AuthService
	campaigns *service.CampaignService
	themes    *service.ThemeService
	posts     *service.PostService
	uploads   *service.UploadService
	users     middleware.UserLookup
	sessions  SessionStore
	assets    AssetLister
	nonces    middleware.NonceStore
	hub       *ws.Hub
	checks    map[string]HealthCheck
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		auth:      deps.Auth,
		campaigns: deps.Campaigns,
		themes:    deps.Themes,
		posts:     deps.Posts,
		uploads:   deps.Uploads,
		users:     deps.Users,
		sessions:  deps.Sessions,
		assets:    deps.Assets,
		nonces:    deps.Nonces,
		hub:       deps.Hub,
		checks:    deps.Checks,
	}
}

func (h HandlerSet) Routes(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	authenticated := middleware.Auth(h.cfg.Security.JWTAccessSecret, h.users, h.sessions)
	signed := middleware.Signature(h.cfg.Security, h.nonces)

	// Browsers cannot sign a websocket handshake.
	v1.GET("/ws", authenticated, h.Socket)

	api := v1.Group("")
	api.Use(authenticated, signed)

	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
	api.GET("/auth/sessions", h.ListSessions)
	api.DELETE("/auth/sessions/:deviceId", h.RevokeSession)

	api.POST("/campaigns", h.CreateCampaign)
	api.GET("/campaigns", h.ListCampaigns)
	api.GET("/campaigns/:id", h.GetCampaign)
	api.PUT("/campaigns/:id", h.UpdateCampaign)
	api.PATCH("/campaigns/:id/status", h.SetCampaignStatus)
	api.DELETE("/campaigns/:id", h.DeleteCampaign)

	api.GET("/campaigns/:id/themes", h.ListThemes)
	api.POST("/campaigns/:id/themes/generate", h.GenerateThemes)
	api.PATCH("/themes/:themeId/status", h.SetThemeStatus)

	api.POST("/themes/:themeId/posts/generate", h.GeneratePosts)
	api.GET("/campaigns/:id/posts", h.ListPosts)
	api.GET("/posts/:postId", h.GetPost)
	api.PATCH("/posts/:postId", h.UpdatePost)

	api.POST("/posts/:postId/images/generate", h.GenerateImages)
	api.POST("/posts/:postId/images/upload", h.UploadImage)
	api.PUT("/posts/:postId/images/order", h.ReorderImages)
	api.PATCH("/posts/:postId/images/:index", h.SelectImage)
	api.DELETE("/posts/:postId/images/:index", h.RemoveImage)

	api.POST("/posts/:postId/submit", h.SubmitPost)
	api.POST("/posts/:postId/review", h.ReviewPost)
	api.POST("/posts/:postId/reopen", h.ReopenPost)
	api.POST("/posts/:postId/schedule", h.SchedulePost)
	api.DELETE("/posts/:postId/schedule", h.UnschedulePost)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/assets", h.AdminListAssets)
}
