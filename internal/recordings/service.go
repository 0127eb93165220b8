//go:generate go run go.uber.org/mock/mockgen -source=service.go -destination=../mocks/mock_upload_queue.go -package=mocks
package recordings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/pkg/queue"
)

// UploadQueue accepts upload jobs.
type UploadQueue interface {
	EnqueueRecordingUpload(ctx context.Context, payload queue.RecordingUploadPayload) error
}

// Service records recordings in the database and schedules their upload.
// It is the recorder's Finisher.
type Service struct {
	store  Store
	queue  UploadQueue
	logger *zap.Logger
}

// NewService creates a recordings service. queue may be nil, in which case
// finished recordings stay on disk with status processing.
func NewService(store Store, q UploadQueue, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, queue: q, logger: logger}
}

// RecordingStarted inserts the recording row.
func (s *Service) RecordingStarted(ctx context.Context, rec models.Recording) error {
	if err := s.store.Create(ctx, &rec); err != nil {
		return fmt.Errorf("create recording: %w", err)
	}
	return nil
}

// RecordingFinished stores the final stats and enqueues the upload. Failed
// recordings are stored but not uploaded.
func (s *Service) RecordingFinished(ctx context.Context, rec models.Recording) error {
	if err := s.store.MarkFinished(ctx, rec); err != nil {
		return fmt.Errorf("mark recording finished: %w", err)
	}
	if rec.Status != models.RecordingStatusProcessing || s.queue == nil {
		return nil
	}
	err := s.queue.EnqueueRecordingUpload(ctx, queue.RecordingUploadPayload{
		RecordingID: rec.ID,
		BroadcastID: rec.BroadcastID,
		LocalPath:   rec.LocalPath,
	})
	if err != nil {
		if uerr := s.store.UpdateStatus(ctx, rec.ID, models.RecordingStatusFailed); uerr != nil {
			s.logger.Error("mark recording failed", zap.Error(uerr))
		}
		return fmt.Errorf("enqueue upload: %w", err)
	}
	s.logger.Info("recording upload scheduled", zap.String("recording_id", rec.ID.String()))
	return nil
}
