// Package session tracks who is connected to the relay and which single
// participant, if any, currently holds the broadcaster slot.
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
)

var (
	ErrRoleConflict  = errors.New("a broadcaster is already active")
	ErrInvalidRole   = errors.New("invalid role")
	ErrAlreadyJoined = errors.New("connection already joined")
	ErrInvalidHandle = errors.New("connection handle requires an id and a sink")
)

// Sink is the outbound side of a connection. Send must not block: it reports
// false when the message could not be queued. Close ends the connection with a
// WebSocket close code.
type Sink interface {
	Send(msg models.Outbound) bool
	Close(code int, reason string)
}

// Handle identifies a transport connection asking to join.
type Handle struct {
	ID     string
	UserID string
	Name   string
	Sink   Sink
}

// State is the connection lifecycle of a participant.
type State int32

const (
	StateConnecting State = iota
	StateJoined
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Participant is a joined connection. Role never changes after Join.
type Participant struct {
	ID       string
	UserID   string
	Name     string
	Role     models.Role
	JoinedAt time.Time

	sink  Sink
	state atomic.Int32
}

// Sink returns the participant's outbound side.
func (p *Participant) Sink() Sink { return p.sink }

// State returns the current lifecycle state.
func (p *Participant) State() State { return State(p.state.Load()) }

// Info returns a transport-free copy for APIs and logs.
func (p *Participant) Info() models.ParticipantInfo {
	return models.ParticipantInfo{ID: p.ID, UserID: p.UserID, Name: p.Name, Role: p.Role, JoinedAt: p.JoinedAt}
}

// BroadcastEndedHandler is called after the broadcaster leaves, outside the
// registry lock, with the viewers present at that moment.
type BroadcastEndedHandler func(ended *Participant, viewers []*Participant)

// Registry is the session membership table.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]*Participant
	order        []string // join order, for stable listings
	broadcaster  *Participant
	onEnded      BroadcastEndedHandler
	logger       *zap.Logger
	now          func() time.Time
}

// NewRegistry creates an empty session. Without a handler set, broadcast end
// is announced to viewers as a broadcast_ended event through their sinks.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		participants: make(map[string]*Participant),
		logger:       logger,
		now:          time.Now,
	}
	r.onEnded = r.notifyEnded
	return r
}

// SetBroadcastEndedHandler replaces the broadcast-ended notification.
func (r *Registry) SetBroadcastEndedHandler(fn BroadcastEndedHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		fn = r.notifyEnded
	}
	r.onEnded = fn
}

// Join registers a connection under the requested role.
func (r *Registry) Join(h Handle, role models.Role) (*Participant, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if h.ID == "" || h.Sink == nil {
		return nil, ErrInvalidHandle
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[h.ID]; ok {
		return nil, ErrAlreadyJoined
	}
	if role == models.RoleBroadcaster && r.broadcaster != nil {
		return nil, ErrRoleConflict
	}
	p := &Participant{
		ID:       h.ID,
		UserID:   h.UserID,
		Name:     h.Name,
		Role:     role,
		JoinedAt: r.now(),
		sink:     h.Sink,
	}
	p.state.Store(int32(StateJoined))
	r.participants[p.ID] = p
	r.order = append(r.order, p.ID)
	if role == models.RoleBroadcaster {
		r.broadcaster = p
	}
	r.logger.Debug("participant joined", zap.String("participant_id", p.ID), zap.String("role", string(role)))
	return p, nil
}

// Leave removes p. It reports whether p was still registered, so repeated
// calls are harmless. When p held the broadcaster slot the slot is cleared and
// the broadcast-ended handler runs before Leave returns.
func (r *Registry) Leave(p *Participant) bool {
	if p == nil {
		return false
	}
	r.mu.Lock()
	cur, ok := r.participants[p.ID]
	if !ok || cur != p {
		r.mu.Unlock()
		return false
	}
	delete(r.participants, p.ID)
	r.order = lo.Without(r.order, p.ID)
	p.state.Store(int32(StateDisconnected))
	wasBroadcaster := r.broadcaster == p
	var viewers []*Participant
	if wasBroadcaster {
		r.broadcaster = nil
		viewers = r.viewersLocked()
	}
	onEnded := r.onEnded
	r.mu.Unlock()

	r.logger.Debug("participant left", zap.String("participant_id", p.ID), zap.String("role", string(p.Role)))
	if wasBroadcaster && onEnded != nil {
		onEnded(p, viewers)
	}
	return true
}

// ListViewers returns the viewers in join order.
func (r *Registry) ListViewers() []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.viewersLocked()
}

// CurrentBroadcaster returns the broadcaster or nil.
func (r *Registry) CurrentBroadcaster() *Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.broadcaster
}

// ListParticipants returns everyone, in join order.
func (r *Registry) ListParticipants() []*Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.FilterMap(r.order, func(id string, _ int) (*Participant, bool) {
		p, ok := r.participants[id]
		return p, ok
	})
}

// Get looks up a participant by connection ID.
func (r *Registry) Get(id string) (*Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	return p, ok
}

// Count returns the number of joined participants.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func (r *Registry) viewersLocked() []*Participant {
	return lo.FilterMap(r.order, func(id string, _ int) (*Participant, bool) {
		p, ok := r.participants[id]
		return p, ok && p.Role == models.RoleViewer
	})
}

func (r *Registry) notifyEnded(ended *Participant, viewers []*Participant) {
	data, err := models.Encode(models.EventBroadcastEnded, models.BroadcastPayload{
		Broadcaster: ended.ID,
		At:          r.now(),
	})
	if err != nil {
		r.logger.Error("encode broadcast_ended", zap.Error(err))
		return
	}
	for _, v := range viewers {
		v.sink.Send(models.TextFrame(data))
	}
}
