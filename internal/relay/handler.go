package relay

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/pkg/response"
)

// PresenceCounter reports participants across all relay instances.
type PresenceCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Handler serves the session endpoints.
type Handler struct {
	relay    *Relay
	presence PresenceCounter
	logger   *zap.Logger
}

// NewHandler creates a session handler. presence may be nil.
func NewHandler(relay *Relay, presence PresenceCounter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{relay: relay, presence: presence, logger: logger}
}

// Status handles GET /api/session.
func (h *Handler) Status(c *gin.Context) {
	st := h.relay.Snapshot()
	if h.presence != nil {
		n, err := h.presence.Count(c.Request.Context())
		if err != nil {
			h.logger.Warn("presence count failed", zap.Error(err))
		} else {
			st.ClusterCount = n
		}
	}
	response.OK(c, st)
}

// EndBroadcast handles POST /api/session/broadcast/end.
func (h *Handler) EndBroadcast(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"max=200"`
	}
	// The body is optional.
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ended, err := h.relay.EndBroadcast(body.Reason)
	if errors.Is(err, ErrNoBroadcast) {
		response.NotFound(c, "no active broadcast")
		return
	}
	if err != nil {
		h.logger.Error("end broadcast failed", zap.Error(err))
		response.Internal(c, "failed to end broadcast")
		return
	}
	response.OK(c, ended)
}
