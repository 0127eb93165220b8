// Package realtime is the WebSocket side of the relay: it upgrades HTTP
// requests, runs one read pump and one write pump per connection, and feeds
// frames to the relay core.
package realtime

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/relay"
	"github.com/aura-webinar/liverelay/internal/session"
	"github.com/aura-webinar/liverelay/pkg/response"
)

const (
	DefaultPingInterval   = 30 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultWriteWait      = 10 * time.Second
	DefaultOutboundBuffer = 64
	DefaultReadLimit      = 8 << 20
)

// Framing selects how binary chunks are written to a viewer.
type Framing int

const (
	// FramingRaw writes the chunk payload as-is.
	FramingRaw Framing = iota
	// FramingSequenced prefixes the payload with its 8-byte big-endian sequence number.
	FramingSequenced
)

// ParseFraming maps the framing query value.
func ParseFraming(s string) (Framing, bool) {
	switch s {
	case "", "raw":
		return FramingRaw, true
	case "sequenced":
		return FramingSequenced, true
	default:
		return FramingRaw, false
	}
}

// ParseChatMode maps the chat query value. "plain" writes chat as bare text
// and suppresses the other JSON events, for clients that print every text
// frame as a chat line.
func ParseChatMode(s string) (plain bool, ok bool) {
	switch s {
	case "", "json":
		return false, true
	case "plain":
		return true, true
	default:
		return false, false
	}
}

// Config tunes the transport.
type Config struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	OutboundBuffer int
	ReadLimit      int64
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = DefaultOutboundBuffer
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = DefaultReadLimit
	}
	return c
}

// Identity is who a socket token says the caller is. MaxRole is the most
// privileged role the caller may request.
type Identity struct {
	UserID  string
	Name    string
	MaxRole models.Role
}

// Authenticator validates the token query parameter.
type Authenticator func(token string) (Identity, error)

// Allows reports whether id may join as role. Only broadcaster identities may
// broadcast; everyone may watch or chat.
func (id Identity) Allows(role models.Role) bool {
	if role == models.RoleBroadcaster {
		return id.MaxRole == models.RoleBroadcaster
	}
	return true
}

// Server upgrades /ws requests and connects them to the relay.
type Server struct {
	relay    *relay.Relay
	cfg      Config
	auth     Authenticator
	logger   *zap.Logger
	upgrader websocket.Upgrader
	ctx      context.Context
	active   sync.WaitGroup
}

// NewServer creates the transport. auth may be nil, in which case every
// caller may take any role.
func NewServer(ctx context.Context, r *relay.Relay, cfg Config, auth Authenticator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg = cfg.withDefaults()
	s := &Server{relay: r, cfg: cfg, auth: auth, logger: logger, ctx: ctx}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Wait blocks until every connection served so far has finished or ctx is
// done. Cancelling the context given to NewServer closes open connections.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || lo.Contains(s.cfg.AllowedOrigins, origin)
}

// ServeWs handles GET /ws?role=...&token=...&framing=...
func (s *Server) ServeWs(c *gin.Context) {
	role, err := models.ParseRole(c.Query("role"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	framing, ok := ParseFraming(c.Query("framing"))
	if !ok {
		response.BadRequest(c, "framing must be raw or sequenced")
		return
	}
	plainChat, ok := ParseChatMode(c.Query("chat"))
	if !ok {
		response.BadRequest(c, "chat must be json or plain")
		return
	}
	id := Identity{Name: c.Query("name"), MaxRole: models.RoleBroadcaster}
	if s.auth != nil {
		id, err = s.auth(c.Query("token"))
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
	}
	if !id.Allows(role) {
		response.Fail(c, http.StatusForbidden, models.CodeForbiddenRole, "token does not allow role "+string(role))
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.active.Add(1)
	defer s.active.Done()

	conn := newConn(ws, s.cfg, framing, s.logger)
	conn.plainChat = plainChat
	go conn.writePump(s.ctx)

	p, err := s.relay.Join(session.Handle{ID: conn.id, UserID: id.UserID, Name: id.Name, Sink: conn}, role)
	if err != nil {
		if !errors.Is(err, session.ErrRoleConflict) {
			conn.Close(websocket.ClosePolicyViolation, "join failed")
		}
		<-conn.writerDone
		return
	}
	conn.readPump(s.ctx, s.relay, p)
	<-conn.writerDone
}

// Conn is one WebSocket connection. It implements session.Sink.
type Conn struct {
	id      string
	ws      *websocket.Conn
	cfg     Config
	framing Framing
	logger  *zap.Logger

	plainChat  bool
	send       chan models.Outbound
	done       chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
	closeCode  int
	closeMsg   string
}

func newConn(ws *websocket.Conn, cfg Config, framing Framing, logger *zap.Logger) *Conn {
	id := uuid.New().String()
	return &Conn{
		id:         id,
		ws:         ws,
		cfg:        cfg,
		framing:    framing,
		logger:     logger.With(zap.String("participant_id", id)),
		send:       make(chan models.Outbound, cfg.OutboundBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

// Send queues msg without blocking.
func (c *Conn) Send(msg models.Outbound) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Free returns how many frames can be queued without a drop.
func (c *Conn) Free() int { return cap(c.send) - len(c.send) }

// Close flushes queued frames, then sends a close frame with code.
func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeMsg = reason
		close(c.done)
	})
}

func (c *Conn) readPump(ctx context.Context, r *relay.Relay, p *session.Participant) {
	var once sync.Once
	leave := func() { once.Do(func() { r.OnDisconnect(p) }) }
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("connection handler panic", zap.Any("panic", rec))
		}
		leave()
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.ws.SetReadLimit(c.cfg.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		var f relay.Frame
		switch mt {
		case websocket.BinaryMessage:
			f = relay.Frame{Kind: relay.FrameBinary, Data: data}
		case websocket.TextMessage:
			f = relay.Frame{Kind: relay.FrameText, Data: data}
		default:
			continue
		}
		if err := r.Dispatch(ctx, p, f); err != nil {
			if errors.Is(err, relay.ErrNotJoined) {
				// evicted or ended by the relay
				return
			}
			c.logger.Debug("frame rejected", zap.Error(err))
		}
	}
}

func (c *Conn) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close(websocket.CloseGoingAway, "")
		_ = c.ws.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		case <-c.done:
			c.closeFrame()
			return
		case <-ctx.Done():
			c.Close(websocket.CloseGoingAway, "server shutting down")
			c.closeFrame()
			return
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeFrame writes what is still queued, then the close frame.
func (c *Conn) closeFrame() {
	c.flush()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(c.closeCode, c.closeMsg),
		time.Now().Add(c.cfg.WriteWait))
}

func (c *Conn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(msg models.Outbound) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if !msg.Binary {
		if !c.plainChat {
			return c.ws.WriteMessage(websocket.TextMessage, msg.Data)
		}
		if msg.Plain == "" {
			return nil
		}
		return c.ws.WriteMessage(websocket.TextMessage, []byte(msg.Plain))
	}
	w, err := c.ws.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return err
	}
	if c.framing == FramingSequenced {
		var hdr [8]byte
		binary.BigEndian.PutUint64(hdr[:], msg.Seq)
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
	}
	if _, err := w.Write(msg.Data); err != nil {
		return err
	}
	return w.Close()
}
