package models

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantSession is one archived connection: join, leave and watch time.
type ParticipantSession struct {
	ID            uuid.UUID  `json:"id"`
	Session       string     `json:"session"`
	ParticipantID string     `json:"participant_id"`
	UserID        string     `json:"user_id,omitempty"`
	Role          Role       `json:"role"`
	JoinedAt      time.Time  `json:"joined_at"`
	LeftAt        *time.Time `json:"left_at,omitempty"`
	WatchSeconds  int64      `json:"watch_seconds"`
}
