package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording lifecycle states.
const (
	RecordingStatusRecording  = "recording"
	RecordingStatusProcessing = "processing"
	RecordingStatusCompleted  = "completed"
	RecordingStatusFailed     = "failed"
)

// Recording is a broadcast captured to disk and uploaded to S3.
type Recording struct {
	ID            uuid.UUID `json:"id"`
	BroadcastID   uuid.UUID `json:"broadcast_id"`
	LocalPath     string    `json:"-"`
	ContentType   string    `json:"content_type"`
	S3URL         string    `json:"s3_url,omitempty"`
	S3Key         string    `json:"s3_key,omitempty"`
	FileSize      int64     `json:"file_size"`
	Chunks        uint64    `json:"chunks"`
	DroppedChunks uint64    `json:"dropped_chunks"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
