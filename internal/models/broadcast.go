package models

import (
	"time"

	"github.com/google/uuid"
)

// Broadcast is one broadcaster tenure, from join to leave.
type Broadcast struct {
	ID            uuid.UUID  `json:"id"`
	Session       string     `json:"session"`
	BroadcasterID string     `json:"broadcaster_id"`
	UserID        string     `json:"user_id,omitempty"`
	MimeType      string     `json:"mime_type,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Chunks        uint64     `json:"chunks"`
	Bytes         int64      `json:"bytes"`
	PeakViewers   int        `json:"peak_viewers"`
	EndReason     string     `json:"end_reason,omitempty"`
}

// ParticipantInfo is a transport-free view of a participant for APIs.
type ParticipantInfo struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// SessionStatus is the relay state reported by GET /api/session.
type SessionStatus struct {
	Session      string           `json:"session"`
	Broadcaster  *ParticipantInfo `json:"broadcaster,omitempty"`
	Broadcast    *Broadcast       `json:"broadcast,omitempty"`
	Viewers      int              `json:"viewers"`
	Participants int              `json:"participants"`
	ClusterCount int64            `json:"cluster_participants,omitempty"`
	ChatMessages uint64           `json:"chat_messages"`
}
