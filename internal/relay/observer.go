package relay

import "github.com/aura-webinar/liverelay/internal/models"

// Observer receives relay events. Calls are made while the relay holds its
// lock, so implementations must hand work off without blocking.
type Observer interface {
	ParticipantJoined(p models.ParticipantInfo)
	ParticipantLeft(p models.ParticipantInfo)
	BroadcastStarted(b models.Broadcast)
	ChunkRelayed(b models.Broadcast, c models.Chunk)
	BroadcastEnded(b models.Broadcast)
	ChatDelivered(m models.ChatMessage)
}

// NopObserver can be embedded to implement only some of Observer.
type NopObserver struct{}

func (NopObserver) ParticipantJoined(models.ParticipantInfo) {}
func (NopObserver) ParticipantLeft(models.ParticipantInfo) {}
func (NopObserver) BroadcastStarted(models.Broadcast) {}
func (NopObserver) ChunkRelayed(models.Broadcast, models.Chunk) {}
func (NopObserver) BroadcastEnded(models.Broadcast) {}
func (NopObserver) ChatDelivered(models.ChatMessage) {}

var _ Observer = NopObserver{}
