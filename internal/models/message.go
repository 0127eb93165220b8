package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Outbound event names carried in the text frame envelope.
const (
	EventJoined           = "joined"
	EventChatMessage      = "chat_message"
	EventBroadcastStarted = "broadcast_started"
	EventBroadcastEnded   = "broadcast_ended"
	EventRejected         = "rejected"
	EventError            = "error"
)

// Rejection and error codes sent to a single connection.
const (
	CodeRoleConflict    = "role_conflict"
	CodeNotBroadcaster  = "not_broadcaster"
	CodeEmptyMessage    = "empty_message"
	CodeMessageTooLong  = "message_too_long"
	CodeInvalidText     = "invalid_text"
	CodeNotJoined       = "not_joined"
	CodeForbiddenRole   = "forbidden_role"
	CodeEndedByOperator = "ended_by_operator"
	CodeSlowConsumer    = "slow_consumer"
)

// Envelope is the JSON text frame exchanged over the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals payload into an envelope for event.
func Encode(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// ParseChatText extracts the chat text from an inbound text frame. Clients may
// send either a chat_message envelope or the bare text; anything that is not a
// chat_message envelope is taken verbatim.
func ParseChatText(frame string) string {
	trimmed := strings.TrimSpace(frame)
	if !strings.HasPrefix(trimmed, "{") {
		return frame
	}
	var env Envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.Event != EventChatMessage {
		return frame
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		return frame
	}
	return body.Text
}

// Outbound is one frame queued for a connection. Binary frames carry a chunk
// payload and its sequence number; text frames carry an encoded Envelope.
// Chat frames also carry the bare text for plain-text chat clients.
type Outbound struct {
	Binary bool
	Seq    uint64
	Data   []byte
	Plain  string
}

// TextFrame wraps an encoded envelope.
func TextFrame(data []byte) Outbound { return Outbound{Data: data} }

// ChatFrame wraps an encoded chat_message envelope and its text.
func ChatFrame(data []byte, text string) Outbound { return Outbound{Data: data, Plain: text} }

// ChunkFrame wraps a relayed chunk.
func ChunkFrame(c Chunk) Outbound { return Outbound{Binary: true, Seq: c.Seq, Data: c.Payload} }

// JoinedPayload acknowledges a successful join.
type JoinedPayload struct {
	ParticipantID string `json:"participant_id"`
	Role          Role   `json:"role"`
	BroadcastLive bool   `json:"broadcast_live"`
	BroadcastID   string `json:"broadcast_id,omitempty"`
	Broadcaster   string `json:"broadcaster,omitempty"`
}

// BroadcastPayload announces the start or end of a broadcast.
type BroadcastPayload struct {
	BroadcastID string    `json:"broadcast_id"`
	Broadcaster string    `json:"broadcaster"`
	MimeType    string    `json:"mime_type,omitempty"`
	Chunks      uint64    `json:"chunks,omitempty"`
	At          time.Time `json:"at"`
}

// NoticePayload is the body of rejected and error events.
type NoticePayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
