package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/apperr"
	"relaychat/backend/internal/sms"
)

func (h *Handler) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			h.Log.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "online": h.Hub.OnlineCount()})
}

// SMSWebhook acknowledges SMS.ru delivery callbacks.
func (h *Handler) SMSWebhook(c *gin.Context) {
	_ = c.Request.ParseForm()
	h.Log.Debug("sms webhook received", "fields", len(c.Request.PostForm))
	c.String(http.StatusOK, sms.WebhookAck)
}

func (h *Handler) NotFound(c *gin.Context) {
	middleware.Fail(c, apperr.NotFound("route.not_found", "route not found"))
}
