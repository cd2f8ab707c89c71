package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/api/middleware"
	"relaychat/backend/internal/apperr"
)

type createChatRequest struct {
	Participants []string `json:"participants" binding:"required,min=1,max=2"`
}

type createGroupRequest struct {
	Participants []string `json:"participants" binding:"required,min=1,dive,required"`
	GroupName    string   `json:"groupName" binding:"required,max=128"`
}

type participantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *Handler) CreateChat(c *gin.Context) {
	var req createChatRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	chat, err := h.Chats.CreateChat(c.Request.Context(), middleware.UserID(c), req.Participants)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *Handler) ListChats(c *gin.Context) {
	list, err := h.Chats.ListChats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListMessages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middleware.Fail(c, apperr.Validation("error.validation", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	msgs, err := h.Chats.ListMessages(c.Request.Context(), middleware.UserID(c), c.Param("chatId"), limit)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	err := h.Messages.Delete(c.Request.Context(), middleware.UserID(c), c.Param("chatId"), c.Param("messageId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) MarkRead(c *gin.Context) {
	err := h.Messages.MarkRead(c.Request.Context(), middleware.UserID(c), c.Param("chatId"), c.Param("messageId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	group, err := h.Chats.CreateGroup(c.Request.Context(), middleware.UserID(c), req.Participants, req.GroupName)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

func (h *Handler) AddParticipant(c *gin.Context) {
	var req participantRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	chat, err := h.Chats.AddParticipant(c.Request.Context(), middleware.UserID(c), c.Param("chatId"), req.UserID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "participants": chat.Participants})
}

func (h *Handler) RemoveParticipant(c *gin.Context) {
	var req participantRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	chat, err := h.Chats.RemoveParticipant(c.Request.Context(), middleware.UserID(c), c.Param("chatId"), req.UserID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "participants": chat.Participants})
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.Chats.DeleteGroup(c.Request.Context(), middleware.UserID(c), c.Param("chatId")); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
