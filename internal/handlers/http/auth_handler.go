package http

import (
	"net/http"
	"strings"
	"time"

	"meetsignal/internal/core/domain"
	"meetsignal/internal/core/services"
	"meetsignal/pkg/errors"
	"meetsignal/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler issues signaling tokens. In a full platform deployment
// the authentication provider issues these; the local endpoint covers
// standalone use and development.
type AuthHandler struct {
	authService services.AuthService
	tokenTTL    time.Duration
}

func NewAuthHandler(authService services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/token", h.IssueToken)
	}
}

type TokenRequest struct {
	UserID   string `json:"userId" binding:"max=100"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidInputError("invalid request format"))
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := validation.ValidateUsername(req.Username); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	userID := domain.UserID(req.UserID)
	if userID == "" {
		userID = domain.UserID(uuid.New().String())
	} else if err := validation.ValidateUserID(req.UserID); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	token, err := h.authService.GenerateToken(userID, req.Username, req.IsAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"username":     req.Username,
		"access_token": token,
		"expires_in":   int(h.tokenTTL / time.Second),
	})
}
