// Package relay routes inbound frames from connected participants: binary
// chunks from the broadcaster go to every viewer in order, chat goes to
// everyone.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/session"
)

var (
	ErrNotBroadcaster = errors.New("sender is not the active broadcaster")
	ErrEmptyMessage   = errors.New("chat message is empty")
	ErrMessageTooLong = errors.New("chat message is too long")
	ErrInvalidText    = errors.New("chat message is not valid UTF-8")
	ErrNotJoined      = errors.New("participant is not joined")
	ErrNoBroadcast    = errors.New("no broadcast is active")
)

// WebSocket close codes used when the relay ends a connection.
const (
	CloseEndedByOperator = 4001
	CloseSlowConsumer    = 4008
	CloseRoleConflict    = 4009
)

const (
	DefaultMaxChatLength       = 2000
	DefaultMaxConsecutiveDrops = 16
	DefaultHistorySize         = 50
)

// Config tunes the relay.
type Config struct {
	SessionName         string
	MaxChatLength       int // runes
	MaxConsecutiveDrops int
	HistorySize         int
}

func (c Config) withDefaults() Config {
	if c.SessionName == "" {
		c.SessionName = "default"
	}
	if c.MaxChatLength <= 0 {
		c.MaxChatLength = DefaultMaxChatLength
	}
	if c.MaxConsecutiveDrops <= 0 {
		c.MaxConsecutiveDrops = DefaultMaxConsecutiveDrops
	}
	if c.HistorySize < 0 {
		c.HistorySize = 0
	} else if c.HistorySize == 0 {
		c.HistorySize = DefaultHistorySize
	}
	return c
}

// Moderator masks disallowed words in chat text.
type Moderator interface {
	Censor(text string) (masked string, matched []string)
}

// ChatBus publishes chat to every relay instance, this one included. When a
// bus is set, local delivery happens when the message comes back through
// DeliverChat.
type ChatBus interface {
	PublishChat(ctx context.Context, msg models.ChatMessage) error
}

// FreeSpacer is implemented by sinks that can report how many more frames
// they would accept right now.
type FreeSpacer interface {
	Free() int
}

// DeliveryReport describes one fan-out.
type DeliveryReport struct {
	Seq     uint64
	SentTo  int
	Dropped int
	Evicted []string
}

// FrameKind tells binary and text frames apart.
type FrameKind int

const (
	FrameText FrameKind = iota
	FrameBinary
)

// Frame is one inbound transport message.
type Frame struct {
	Kind FrameKind
	Data []byte
}

// Relay is the routing core. Every inbound event is handled under one mutex,
// so registry changes and fan-out enqueues happen in a single global order.
type Relay struct {
	mu        sync.Mutex
	cfg       Config
	registry  *session.Registry
	logger    *zap.Logger
	moderator Moderator
	bus       ChatBus
	observers []Observer
	now       func() time.Time

	broadcast *models.Broadcast
	init      initSegment
	chunkSeq  uint64
	chatSeq   uint64
	history   *ring[models.ChatMessage]
	drops     map[string]int
	endReason string
}

// New creates a relay over registry. The registry's broadcast-ended handler
// is taken over by the relay.
func New(cfg Config, registry *session.Registry, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	r := &Relay{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		now:      time.Now,
		history:  newRing[models.ChatMessage](cfg.HistorySize),
		drops:    make(map[string]int),
	}
	registry.SetBroadcastEndedHandler(r.onBroadcastEnded)
	return r
}

// SetModerator enables chat moderation.
func (r *Relay) SetModerator(m Moderator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderator = m
}

// SetChatBus routes chat through bus instead of delivering locally.
func (r *Relay) SetChatBus(bus ChatBus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bus = bus
}

// AddObserver registers a side tap.
func (r *Relay) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// SeedHistory loads previously delivered chat, oldest first, so it is replayed
// to new participants. Chat sequence numbers continue after the last one seen.
func (r *Relay) SeedHistory(msgs []models.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.history.Add(m)
		if m.Seq > r.chatSeq {
			r.chatSeq = m.Seq
		}
	}
}

// Join registers a connection. A broadcaster join starts a broadcast. The
// joiner is acknowledged, then a viewer arriving mid-broadcast gets the init
// segment, then recent chat is replayed. On ErrRoleConflict the connection is
// told why and closed.
func (r *Relay) Join(h session.Handle, role models.Role) (*session.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.registry.Join(h, role)
	if err != nil {
		if errors.Is(err, session.ErrRoleConflict) && h.Sink != nil {
			r.notice(h.Sink, models.EventError, models.CodeRoleConflict, err.Error())
			h.Sink.Close(CloseRoleConflict, "broadcaster already active")
		}
		r.logger.Info("join rejected", zap.String("participant_id", h.ID), zap.String("role", string(role)), zap.Error(err))
		return nil, fmt.Errorf("join %s: %w", role, err)
	}

	if role == models.RoleBroadcaster {
		r.startBroadcastLocked(p)
	}

	ack := models.JoinedPayload{ParticipantID: p.ID, Role: p.Role}
	if r.broadcast != nil {
		ack.BroadcastLive = true
		ack.BroadcastID = r.broadcast.ID.String()
		ack.Broadcaster = r.broadcast.BroadcasterID
	}
	if data, err := models.Encode(models.EventJoined, ack); err == nil {
		p.Sink().Send(models.TextFrame(data))
	}

	if role == models.RoleViewer && r.broadcast != nil {
		if viewers := len(r.registry.ListViewers()); viewers > r.broadcast.PeakViewers {
			r.broadcast.PeakViewers = viewers
		}
		if c, ok := r.init.Get(); ok {
			p.Sink().Send(models.ChunkFrame(c))
		}
	}
	r.replayHistoryLocked(p)

	if p.State() != session.StateJoined {
		return nil, fmt.Errorf("join %s: %w", role, ErrNotJoined)
	}
	for _, o := range r.observers {
		o.ParticipantJoined(p.Info())
	}
	r.logger.Info("participant joined", zap.String("participant_id", p.ID), zap.String("role", string(role)))
	return p, nil
}

// replayHistoryLocked sends recent chat to a new participant. Join-time
// frames do not count as drops; when the sink reports its free space only the
// newest messages that fit are sent, otherwise replay stops at the first
// refused frame.
func (r *Relay) replayHistoryLocked(p *session.Participant) {
	msgs := r.history.All()
	if fs, ok := p.Sink().(FreeSpacer); ok {
		if free := fs.Free(); free < len(msgs) {
			msgs = msgs[len(msgs)-max(free, 0):]
		}
	}
	for i, m := range msgs {
		m.History = true
		data, err := models.Encode(models.EventChatMessage, m)
		if err != nil {
			r.logger.Error("encode chat history", zap.Error(err))
			return
		}
		if !p.Sink().Send(models.ChatFrame(data, m.Text)) {
			r.logger.Debug("chat history truncated",
				zap.String("participant_id", p.ID),
				zap.Int("skipped", len(msgs)-i),
			)
			return
		}
	}
}

// OnBinaryMessage relays one chunk from the broadcaster to every viewer.
func (r *Relay) OnBinaryMessage(from *session.Participant, data []byte) (DeliveryReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.joinedLocked(from) {
		return DeliveryReport{}, ErrNotJoined
	}
	if r.registry.CurrentBroadcaster() != from || r.broadcast == nil {
		r.notice(from.Sink(), models.EventRejected, models.CodeNotBroadcaster, ErrNotBroadcaster.Error())
		r.logger.Debug("binary frame from non-broadcaster dropped", zap.String("participant_id", from.ID))
		return DeliveryReport{}, ErrNotBroadcaster
	}

	r.chunkSeq++
	chunk := models.Chunk{
		BroadcastID: r.broadcast.ID,
		Seq:         r.chunkSeq,
		Payload:     data,
		At:          r.now(),
	}
	r.broadcast.Chunks++
	r.broadcast.Bytes += int64(len(data))
	if chunk.Seq == 1 {
		r.init.Store(chunk)
		r.broadcast.MimeType = r.init.MimeType()
	}

	report := r.fanOutLocked(r.registry.ListViewers(), models.ChunkFrame(chunk))
	report.Seq = chunk.Seq
	for _, o := range r.observers {
		o.ChunkRelayed(*r.broadcast, chunk)
	}
	return report, nil
}

// OnTextMessage validates a chat line and delivers it to every participant,
// the sender included. With a chat bus set the message is published and
// delivered when it comes back; if publishing fails it is delivered locally.
func (r *Relay) OnTextMessage(ctx context.Context, from *session.Participant, text string) (DeliveryReport, error) {
	msg, bus, report, err := r.acceptChat(from, text)
	if err != nil || bus == nil {
		return report, err
	}
	if err := bus.PublishChat(ctx, msg); err != nil {
		r.logger.Warn("chat publish failed, delivering locally", zap.Error(err))
		return r.DeliverChat(msg), nil
	}
	return DeliveryReport{}, nil
}

// acceptChat validates text from a joined participant. Without a chat bus the
// message is delivered before it returns; otherwise the bus is returned for
// publishing outside the lock.
func (r *Relay) acceptChat(from *session.Participant, text string) (models.ChatMessage, ChatBus, DeliveryReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.joinedLocked(from) {
		return models.ChatMessage{}, nil, DeliveryReport{}, ErrNotJoined
	}
	clean, err := r.validateChat(text)
	if err != nil {
		r.notice(from.Sink(), models.EventRejected, codeFor(err), err.Error())
		return models.ChatMessage{}, nil, DeliveryReport{}, err
	}
	msg := models.ChatMessage{
		SenderID:   from.ID,
		SenderName: from.Name,
		Text:       clean,
		At:         r.now(),
	}
	if r.bus == nil {
		return msg, nil, r.deliverChatLocked(msg), nil
	}
	return msg, r.bus, DeliveryReport{}, nil
}

// DeliverChat assigns the next chat sequence number to msg and sends it to
// every participant.
func (r *Relay) DeliverChat(msg models.ChatMessage) DeliveryReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deliverChatLocked(msg)
}

// OnDisconnect removes p. Safe to call more than once.
func (r *Relay) OnDisconnect(p *session.Participant) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(p, "disconnected")
}

// EndBroadcast disconnects the current broadcaster.
func (r *Relay) EndBroadcast(reason string) (models.Broadcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.registry.CurrentBroadcaster()
	if b == nil || r.broadcast == nil {
		return models.Broadcast{}, ErrNoBroadcast
	}
	ended := *r.broadcast
	if reason == "" {
		reason = models.CodeEndedByOperator
	}
	r.notice(b.Sink(), models.EventError, models.CodeEndedByOperator, reason)
	r.leaveLocked(b, reason)
	b.Sink().Close(CloseEndedByOperator, reason)
	r.logger.Info("broadcast ended by operator", zap.String("broadcast_id", ended.ID.String()), zap.String("reason", reason))
	return ended, nil
}

// Dispatch routes a transport frame by kind.
func (r *Relay) Dispatch(ctx context.Context, from *session.Participant, f Frame) error {
	var err error
	switch f.Kind {
	case FrameBinary:
		_, err = r.OnBinaryMessage(from, f.Data)
	case FrameText:
		_, err = r.OnTextMessage(ctx, from, models.ParseChatText(string(f.Data)))
	default:
		err = fmt.Errorf("unknown frame kind %d", f.Kind)
	}
	return err
}

// Snapshot reports the current session state.
func (r *Relay) Snapshot() models.SessionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := models.SessionStatus{
		Session:      r.cfg.SessionName,
		Viewers:      len(r.registry.ListViewers()),
		Participants: r.registry.Count(),
		ChatMessages: r.chatSeq,
	}
	if b := r.registry.CurrentBroadcaster(); b != nil {
		info := b.Info()
		st.Broadcaster = &info
	}
	if r.broadcast != nil {
		b := *r.broadcast
		st.Broadcast = &b
	}
	return st
}

// Session returns the configured session name.
func (r *Relay) Session() string { return r.cfg.SessionName }

func (r *Relay) joinedLocked(p *session.Participant) bool {
	if p == nil || p.State() != session.StateJoined {
		return false
	}
	cur, ok := r.registry.Get(p.ID)
	return ok && cur == p
}

func (r *Relay) validateChat(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrInvalidText
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > r.cfg.MaxChatLength {
		return "", ErrMessageTooLong
	}
	if r.moderator != nil {
		masked, matched := r.moderator.Censor(text)
		if len(matched) > 0 {
			r.logger.Debug("chat message censored", zap.Strings("words", matched))
		}
		text = masked
	}
	return text, nil
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return models.CodeEmptyMessage
	case errors.Is(err, ErrMessageTooLong):
		return models.CodeMessageTooLong
	case errors.Is(err, ErrInvalidText):
		return models.CodeInvalidText
	default:
		return models.CodeNotJoined
	}
}

func (r *Relay) startBroadcastLocked(p *session.Participant) {
	r.chunkSeq = 0
	r.init.Reset()
	r.broadcast = &models.Broadcast{
		ID:            uuid.New(),
		Session:       r.cfg.SessionName,
		BroadcasterID: p.ID,
		UserID:        p.UserID,
		StartedAt:     r.now(),
		PeakViewers:   len(r.registry.ListViewers()),
	}
	b := *r.broadcast

	data, err := models.Encode(models.EventBroadcastStarted, models.BroadcastPayload{
		BroadcastID: b.ID.String(),
		Broadcaster: p.ID,
		At:          b.StartedAt,
	})
	if err == nil {
		others := make([]*session.Participant, 0, r.registry.Count())
		for _, q := range r.registry.ListParticipants() {
			if q != p {
				others = append(others, q)
			}
		}
		r.fanOutLocked(others, models.TextFrame(data))
	}
	for _, o := range r.observers {
		o.BroadcastStarted(b)
	}
	r.logger.Info("broadcast started", zap.String("broadcast_id", b.ID.String()), zap.String("participant_id", p.ID))
}

// onBroadcastEnded runs inside registry.Leave, which the relay only calls
// with r.mu held.
func (r *Relay) onBroadcastEnded(ended *session.Participant, viewers []*session.Participant) {
	b := r.broadcast
	r.broadcast = nil
	r.init.Reset()
	if b == nil {
		b = &models.Broadcast{BroadcasterID: ended.ID, Session: r.cfg.SessionName}
	}
	now := r.now()
	b.EndedAt = &now
	b.EndReason = r.endReason

	data, err := models.Encode(models.EventBroadcastEnded, models.BroadcastPayload{
		BroadcastID: b.ID.String(),
		Broadcaster: ended.ID,
		MimeType:    b.MimeType,
		Chunks:      b.Chunks,
		At:          now,
	})
	if err == nil {
		r.fanOutLocked(viewers, models.TextFrame(data))
	}
	for _, o := range r.observers {
		o.BroadcastEnded(*b)
	}
	r.logger.Info("broadcast ended",
		zap.String("broadcast_id", b.ID.String()),
		zap.Uint64("chunks", b.Chunks),
		zap.Int64("bytes", b.Bytes),
		zap.String("reason", b.EndReason),
	)
}

func (r *Relay) leaveLocked(p *session.Participant, reason string) bool {
	r.endReason = reason
	left := r.registry.Leave(p)
	r.endReason = ""
	if !left {
		return false
	}
	delete(r.drops, p.ID)
	for _, o := range r.observers {
		o.ParticipantLeft(p.Info())
	}
	r.logger.Info("participant left", zap.String("participant_id", p.ID), zap.String("reason", reason))
	return true
}

func (r *Relay) deliverChatLocked(msg models.ChatMessage) DeliveryReport {
	r.chatSeq++
	msg.Seq = r.chatSeq
	msg.History = false
	r.history.Add(msg)

	data, err := models.Encode(models.EventChatMessage, msg)
	if err != nil {
		r.logger.Error("encode chat message", zap.Error(err))
		return DeliveryReport{Seq: msg.Seq}
	}
	report := r.fanOutLocked(r.registry.ListParticipants(), models.ChatFrame(data, msg.Text))
	report.Seq = msg.Seq
	for _, o := range r.observers {
		o.ChatDelivered(msg)
	}
	return report
}

func (r *Relay) fanOutLocked(targets []*session.Participant, frame models.Outbound) DeliveryReport {
	var report DeliveryReport
	for _, p := range targets {
		sent, evicted := r.deliverLocked(p, frame)
		switch {
		case sent:
			report.SentTo++
		case evicted:
			report.Dropped++
			report.Evicted = append(report.Evicted, p.ID)
		default:
			report.Dropped++
		}
	}
	return report
}

// deliverLocked enqueues frame for p without blocking. A full queue drops the
// frame for p only; after MaxConsecutiveDrops in a row p is evicted.
func (r *Relay) deliverLocked(p *session.Participant, frame models.Outbound) (sent, evicted bool) {
	if p.State() != session.StateJoined {
		return false, false
	}
	if p.Sink().Send(frame) {
		delete(r.drops, p.ID)
		return true, false
	}
	r.drops[p.ID]++
	if r.drops[p.ID] < r.cfg.MaxConsecutiveDrops {
		return false, false
	}
	r.logger.Warn("evicting slow participant",
		zap.String("participant_id", p.ID),
		zap.Int("consecutive_drops", r.drops[p.ID]),
	)
	r.leaveLocked(p, models.CodeSlowConsumer)
	p.Sink().Close(CloseSlowConsumer, "slow consumer")
	return false, true
}

func (r *Relay) notice(sink session.Sink, event, code, msg string) {
	data, err := models.Encode(event, models.NoticePayload{Code: code, Message: msg})
	if err != nil {
		return
	}
	sink.Send(models.TextFrame(data))
}
