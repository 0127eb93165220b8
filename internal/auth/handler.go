package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/response"
)

// IssueTokenRequest is the body for POST /api/auth/token.
type IssueTokenRequest struct {
	UserID     string `json:"user_id" binding:"required,max=128"`
	Name       string `json:"name" binding:"max=64"`
	Role       string `json:"role" binding:"required,oneof=broadcaster viewer chat"`
	TTLMinutes int    `json:"ttl_minutes" binding:"omitempty,min=1,max=1440"`
}

// TokenResponse is the issued socket token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{jwt: jwt, logger: logger}
}

// IssueToken handles POST /api/auth/token (admin only). The token goes in
// the socket URL as ?token=.
func (h *Handler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	token, expires, err := h.jwt.Generate(req.UserID, req.Name, models.Role(req.Role), time.Duration(req.TTLMinutes)*time.Minute)
	if errors.Is(err, ErrInvalidRole) {
		response.BadRequest(c, "invalid role")
		return
	}
	if err != nil {
		h.logger.Error("generate token failed", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}

	h.logger.Info("socket token issued", zap.String("user_id", req.UserID), zap.String("role", req.Role))
	response.Created(c, TokenResponse{Token: token, ExpiresAt: expires})
}
