package broadcasts

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/response"
)

// Reader is the read side of the broadcasts table.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Broadcast, error)
	ListRecent(ctx context.Context, session string, limit int) ([]models.Broadcast, error)
}

// Handler serves archived broadcasts.
type Handler struct {
	repo    Reader
	session string
	logger  *zap.Logger
}

// NewHandler creates a broadcasts handler for session.
func NewHandler(repo Reader, session string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, session: session, logger: logger}
}

// List handles GET /api/broadcasts?limit=N.
func (h *Handler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		response.BadRequest(c, "limit must be between 1 and 100")
		return
	}
	list, err := h.repo.ListRecent(c.Request.Context(), h.session, limit)
	if err != nil {
		h.logger.Error("list broadcasts failed", zap.Error(err))
		response.Internal(c, "failed to list broadcasts")
		return
	}
	response.OK(c, gin.H{"broadcasts": list})
}

// Get handles GET /api/broadcasts/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid broadcast id")
		return
	}
	b, err := h.repo.GetByID(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "broadcast not found")
		return
	}
	if err != nil {
		h.logger.Error("get broadcast failed", zap.Error(err), zap.String("broadcast_id", id.String()))
		response.Internal(c, "failed to get broadcast")
		return
	}
	response.OK(c, b)
}
