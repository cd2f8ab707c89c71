// Package handler implements the REST and websocket endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/auth"
	"relaychat/backend/internal/chathub"
	"relaychat/backend/internal/chats"
	"relaychat/backend/internal/config"
	"relaychat/backend/internal/localization"
	"relaychat/backend/internal/media"
	"relaychat/backend/internal/messaging"
	"relaychat/backend/internal/storage"
)

// Deps are the services the handlers call into.
type Deps struct {
	Hub       *chathub.ManagerService
	Gateway   chathub.EventHandler
	Auth      *auth.Service
	Chats     *chats.Service
	Messages  *messaging.Pipeline
	Users     storage.UserStore
	Media     *media.Store
	Localizer *localization.Localizer
	Log       *slog.Logger
	// Ping checks backing stores for /health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

type Handler struct {
	Deps
	upgrader websocket.Upgrader
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Localizer == nil {
		d.Localizer = localization.Bundled()
	}
	return &Handler{
		Deps: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.WSReadBufferSize,
			WriteBufferSize: config.WSWriteBufferSize,
			// Mobile clients do not send a browser Origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// bind decodes a JSON body and turns binding failures into validation errors.
func bind(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return &apperr.Error{Kind: apperr.KindValidation, Key: "error.validation", Message: "invalid request body", Err: err}
	}
	return nil
}
