package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pathlight/assessment-backend/internal/response"
	"github.com/pathlight/assessment-backend/internal/service"
)

// AuthHandler handles guest authentication.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// GuestLogin godoc
// POST /api/v1/auth/guest
// Mints a token for a fresh anonymous owner. No credentials required; the
// token is the caller's only handle on their sessions.
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	token, ownerID, err := h.authService.GenerateGuestToken()
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":    token,
		"owner_id": ownerID,
	})
}
