package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relaychat/backend/internal/api/middleware"
)

type emailRegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName" binding:"max=128"`
}

type emailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Code        string `json:"code"`
	DisplayName string `json:"displayName" binding:"max=128"`
}

func (h *Handler) EmailRegister(c *gin.Context) {
	var req emailRegisterRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	session, err := h.Auth.RegisterEmail(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": session.Token, "user": session.User})
}

func (h *Handler) EmailLogin(c *gin.Context) {
	var req emailLoginRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	session, err := h.Auth.LoginEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": session.Token, "user": session.User})
}

func (h *Handler) SendOTP(c *gin.Context) {
	var req sendOTPRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	guest, err := h.Auth.SendOTP(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "guest": guest})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := bind(c, &req); err != nil {
		middleware.Fail(c, err)
		return
	}
	session, err := h.Auth.VerifyOTP(c.Request.Context(), req.PhoneNumber, req.Code, req.DisplayName)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "token": session.Token, "user": session.User})
}
