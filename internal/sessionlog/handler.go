package sessionlog

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/response"
)

// Reader is the read side of participant_sessions.
type Reader interface {
	ListRecent(ctx context.Context, session string, limit int) ([]models.ParticipantSession, error)
	GetWatchTimeAggregates(ctx context.Context, session string) (*WatchTimeAggregates, error)
}

// Handler serves the participant history.
type Handler struct {
	repo    Reader
	session string
	logger  *zap.Logger
}

// NewHandler creates a session log handler.
func NewHandler(repo Reader, session string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, session: session, logger: logger}
}

// GetParticipants handles GET /api/participants (admin): recent connections
// and watch time totals.
func (h *Handler) GetParticipants(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		response.BadRequest(c, "limit must be between 1 and 500")
		return
	}
	list, err := h.repo.ListRecent(c.Request.Context(), h.session, limit)
	if err != nil {
		h.logger.Error("list participants failed", zap.Error(err))
		response.Internal(c, "failed to list participants")
		return
	}
	agg, err := h.repo.GetWatchTimeAggregates(c.Request.Context(), h.session)
	if err != nil {
		h.logger.Error("watch time aggregates failed", zap.Error(err))
		response.Internal(c, "failed to list participants")
		return
	}
	response.OK(c, gin.H{"participants": list, "watch_time": agg})
}
