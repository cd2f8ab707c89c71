package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/models"
)

const searchLimit = 50

type updateProfileRequest struct {
	DisplayName *string `json:"displayName" binding:"omitempty,max=128"`
	Status      *string `json:"status" binding:"omitempty,max=256"`
	PhotoURL    *string `json:"photoUrl" binding:"omitempty,max=2048"`
}

type pushTokenRequest struct {
	FCMToken string `json:"fcmToken" binding:"required,max=4096"`
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.Users.GetUserByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

func (h *Handler) SearchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	users, err := h.Users.SearchUsers(c.Request.Context(), query, searchLimit)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(users, func(u models.User, _ int) models.PublicProfile {
		return u.Public()
	}))
}

// UpdateProfile always edits the caller's own profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	user, err := h.Users.UpdateProfile(c.Request.Context(), middleware.UserID(c), models.ProfileUpdate{
		DisplayName: req.DisplayName,
		Status:      req.Status,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (h *Handler) UpdatePushToken(c *gin.Context) {
	var req pushTokenRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	if err := h.Users.UpdatePushToken(c.Request.Context(), middleware.UserID(c), req.FCMToken); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
