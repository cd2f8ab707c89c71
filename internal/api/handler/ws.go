package handler

import (
	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/chathub"
)

// ServeWebSocket upgrades an authenticated request and registers the connection.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := middleware.UserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Log.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	client := chathub.NewWebSocketClient(userID, conn, h.Hub, h.Gateway, h.Log)
	client.Lang = h.Localizer.PreferredLanguage(c.GetHeader("Accept-Language"))

	h.Hub.Connect(client)
	client.Run()
}
