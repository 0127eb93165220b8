package models

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is one opaque unit of broadcast payload. Seq starts at 1 for every
// broadcast and increases by one per chunk.
type Chunk struct {
	BroadcastID uuid.UUID
	Seq         uint64
	Payload     []byte
	At          time.Time
}

// ChatMessage is a chat line as delivered to participants. Seq is the arrival
// order assigned by the relay when the message is delivered.
type ChatMessage struct {
	Seq        uint64    `json:"seq"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text"`
	At         time.Time `json:"at"`
	History    bool      `json:"history,omitempty"`
}
