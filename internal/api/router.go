// Package api assembles the HTTP surface.
package api

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/api/handler"
	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/media"
)

type RouterOptions struct {
	APIPrefix   string
	Development bool
	UploadDir   string
	// Limiter throttles /auth/* per client IP. Nil disables throttling.
	Limiter *middleware.LimiterStore
}

// OptionsFromConfig derives router options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config, limiter *middleware.LimiterStore) RouterOptions {
	return RouterOptions{
		APIPrefix:   cfg.APIPrefix,
		Development: cfg.IsDevelopment(),
		UploadDir:   cfg.UploadDir,
		Limiter:     limiter,
	}
}

func NewRouter(h *handler.Handler, opts RouterOptions, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}
	if !opts.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.ErrorRenderer(h.Localizer, opts.Development, log))
	r.NoRoute(h.NotFound)

	r.GET("/health", h.Health)
	if opts.UploadDir != "" {
		r.Static(strings.TrimSuffix(media.PublicPrefix, "/"), opts.UploadDir)
	}

	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	api := r.Group(prefix)
	if prefix != "" {
		api.GET("/health", h.Health)
	}
	api.POST("/sms/webhook", h.SMSWebhook)

	authGroup := api.Group("/auth")
	if opts.Limiter != nil {
		authGroup.Use(middleware.RateLimit(opts.Limiter))
	}
	authGroup.POST("/email-register", h.EmailRegister)
	authGroup.POST("/email-login", h.EmailLogin)
	authGroup.POST("/send-otp", h.SendOTP)
	authGroup.POST("/verify-otp", h.VerifyOTP)

	api.GET("/ws", middleware.RequireAuth(h.Auth, true), h.ServeWebSocket)

	secured := api.Group("")
	secured.Use(middleware.RequireAuth(h.Auth, false))

	chatsGroup := secured.Group("/chats")
	chatsGroup.GET("", h.ListChats)
	chatsGroup.POST("/create", h.CreateChat)
	chatsGroup.POST("/group", h.CreateGroup)
	chatsGroup.GET("/:chatId/messages", h.ListMessages)
	chatsGroup.DELETE("/:chatId/messages/:messageId", h.DeleteMessage)
	chatsGroup.POST("/:chatId/messages/:messageId/read", h.MarkRead)
	chatsGroup.POST("/:chatId/add-participant", h.AddParticipant)
	chatsGroup.POST("/:chatId/remove-participant", h.RemoveParticipant)
	chatsGroup.DELETE("/:chatId", h.DeleteGroup)

	usersGroup := secured.Group("/users")
	usersGroup.GET("/search", h.SearchUsers)
	usersGroup.GET("/:userId", h.GetUser)
	usersGroup.POST("/update", h.UpdateProfile)
	usersGroup.POST("/fcm-token", h.UpdatePushToken)

	secured.POST("/upload", h.Upload)

	return r
}
