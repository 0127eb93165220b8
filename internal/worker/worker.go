//go:generate go run go.uber.org/mock/mockgen -source=worker.go -destination=../mocks/mock_worker.go -package=mocks
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/recordings"
	"github.com/aura-webinar/liverelay/pkg/queue"
	"github.com/aura-webinar/liverelay/pkg/storage"
)

// Uploader stores recording files in object storage.
type Uploader interface {
	UploadRecording(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// JobQueue is the job source the processor drains.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

const dequeueTimeout = 5 * time.Second

// RecordingProcessor processes recording upload jobs: read the local file,
// upload to S3, update DB, remove the file.
type RecordingProcessor struct {
	recordings recordings.Store
	uploader   Uploader
	queue      JobQueue
	logger     *zap.Logger
	backoff    time.Duration
}

// NewRecordingProcessor creates a recording upload processor.
func NewRecordingProcessor(store recordings.Store, uploader Uploader, q JobQueue, logger *zap.Logger) *RecordingProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordingProcessor{recordings: store, uploader: uploader, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one recording upload job.
func (p *RecordingProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeRecordingUpload {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RecordingUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rec, err := p.recordings.GetByID(ctx, payload.RecordingID)
	if err != nil {
		return fmt.Errorf("get recording %s: %w", payload.RecordingID, err)
	}
	if rec.Status == models.RecordingStatusCompleted {
		p.logger.Info("recording already completed", zap.String("recording_id", rec.ID.String()))
		return nil
	}

	localPath := payload.LocalPath
	if localPath == "" {
		localPath = rec.LocalPath
	}
	f, err := os.Open(localPath)
	if errors.Is(err, os.ErrNotExist) {
		// Nothing left to upload; retrying will not bring the file back.
		p.logger.Error("recording file missing", zap.String("recording_id", rec.ID.String()), zap.String("path", localPath))
		return p.recordings.UpdateStatus(ctx, rec.ID, models.RecordingStatusFailed)
	}
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat recording: %w", err)
	}
	contentType := rec.ContentType
	if contentType == "" {
		if mt, derr := mimetype.DetectFile(localPath); derr == nil {
			contentType = mt.String()
		} else {
			contentType = "application/octet-stream"
		}
	}
	key := storage.RecordingKey(payload.BroadcastID.String(), payload.RecordingID.String(), filepath.Ext(localPath))

	s3URL, err := p.uploader.UploadRecording(ctx, key, contentType, f, info.Size())
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := p.recordings.UpdateS3Result(ctx, rec.ID, s3URL, key, info.Size()); err != nil {
		p.logger.Error("update recording S3 result failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		return fmt.Errorf("update db: %w", err)
	}

	f.Close()
	if err := os.Remove(localPath); err != nil {
		p.logger.Warn("remove local recording failed", zap.Error(err), zap.String("path", localPath))
	}
	p.logger.Info("recording upload completed", zap.String("recording_id", rec.ID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *RecordingProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("recording worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if job.Attempt+1 >= queue.MaxRetries {
				p.markFailed(ctx, job)
			}
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *RecordingProcessor) markFailed(ctx context.Context, job *queue.Job) {
	var payload queue.RecordingUploadPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	if err := p.recordings.UpdateStatus(ctx, payload.RecordingID, models.RecordingStatusFailed); err != nil {
		p.logger.Error("mark recording failed", zap.Error(err), zap.String("recording_id", payload.RecordingID.String()))
	}
}

func (p *RecordingProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
