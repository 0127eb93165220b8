package recordings

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

// Presigner signs download URLs.
type Presigner interface {
	PresignRecordingDownload(ctx context.Context, key string) (string, error)
}

// Handler handles recording HTTP endpoints.
type Handler struct {
	repo    *Repository
	presign Presigner
	logger  *zap.Logger
}

// NewHandler creates a recordings handler. presign may be nil when S3 is not
// configured.
func NewHandler(repo *Repository, presign Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, presign: presign, logger: logger}
}

// List handles GET /api/recordings[?broadcast_id=...].
func (h *Handler) List(c *gin.Context) {
	var (
		list []models.Recording
		err  error
	)
	if raw := c.Query("broadcast_id"); raw != "" {
		id, perr := uuid.Parse(raw)
		if perr != nil {
			response.BadRequest(c, "invalid broadcast id")
			return
		}
		list, err = h.repo.ListByBroadcast(c.Request.Context(), id)
	} else {
		limit, perr := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if perr != nil || limit <= 0 || limit > 100 {
			response.BadRequest(c, "limit must be between 1 and 100")
			return
		}
		list, err = h.repo.ListRecent(c.Request.Context(), limit)
	}
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, gin.H{"recordings": list})
}

// GenerateDownloadURL handles GET /api/recordings/:id/download-url.
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return
	}
	rec, err := h.repo.GetByID(c.Request.Context(), recordingID)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "recording not found")
		return
	}
	if err != nil {
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to get recording")
		return
	}
	if rec.Status != models.RecordingStatusCompleted || rec.S3Key == "" {
		response.BadRequest(c, "recording not ready for download")
		return
	}
	if h.presign == nil {
		response.ServiceUnavailable(c, "S3 not configured")
		return
	}
	url, err := h.presign.PresignRecordingDownload(c.Request.Context(), rec.S3Key)
	if err != nil {
		h.logger.Error("presign recording download failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}
