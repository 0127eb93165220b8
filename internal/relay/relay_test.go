package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/session"
)

type fakeSink struct {
	mu        sync.Mutex
	capacity  int // 0 means unbounded
	msgs      []models.Outbound
	closed    bool
	closeCode int
}

func (s *fakeSink) Send(m models.Outbound) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || (s.capacity > 0 && len(s.msgs) >= s.capacity) {
		return false
	}
	s.msgs = append(s.msgs, m)
	return true
}

func (s *fakeSink) Close(code int, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCode = code
}

func (s *fakeSink) Free() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity == 0 {
		return math.MaxInt
	}
	return s.capacity - len(s.msgs)
}

// opaqueSink hides Free, like a sink that cannot report its queue.
type opaqueSink struct{ s *fakeSink }

func (o opaqueSink) Send(m models.Outbound) bool { return o.s.Send(m) }
func (o opaqueSink) Close(code int, reason string) { o.s.Close(code, reason) }

func (s *fakeSink) all() []models.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Outbound(nil), s.msgs...)
}

func (s *fakeSink) chunkSeqs() []uint64 {
	var out []uint64
	for _, m := range s.all() {
		if m.Binary {
			out = append(out, m.Seq)
		}
	}
	return out
}

func (s *fakeSink) envelopes(event string) []models.Envelope {
	var out []models.Envelope
	for _, m := range s.all() {
		if m.Binary {
			continue
		}
		var env models.Envelope
		if json.Unmarshal(m.Data, &env) == nil && (event == "" || env.Event == event) {
			out = append(out, env)
		}
	}
	return out
}

func (s *fakeSink) chats(t *testing.T) []models.ChatMessage {
	t.Helper()
	var out []models.ChatMessage
	for _, env := range s.envelopes(models.EventChatMessage) {
		var m models.ChatMessage
		require.NoError(t, json.Unmarshal(env.Data, &m))
		out = append(out, m)
	}
	return out
}

func (s *fakeSink) notices(t *testing.T, event string) []models.NoticePayload {
	t.Helper()
	var out []models.NoticePayload
	for _, env := range s.envelopes(event) {
		var n models.NoticePayload
		require.NoError(t, json.Unmarshal(env.Data, &n))
		out = append(out, n)
	}
	return out
}

type harness struct {
	t     *testing.T
	relay *Relay
	reg   *session.Registry
}

func newHarness(t *testing.T, cfg Config) *harness {
	reg := session.NewRegistry(nil)
	return &harness{t: t, relay: New(cfg, reg, nil), reg: reg}
}

func (h *harness) join(id string, role models.Role, sink *fakeSink) *session.Participant {
	h.t.Helper()
	p, err := h.relay.Join(session.Handle{ID: id, Name: id, Sink: sink}, role)
	require.NoError(h.t, err)
	return p
}

func (h *harness) send(from *session.Participant, n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		_, err := h.relay.OnBinaryMessage(from, []byte(fmt.Sprintf("chunk-%d", i)))
		require.NoError(h.t, err)
	}
}

func TestOnBinaryMessage_FansOutInOrderToViewersOnly(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})

	bSink, v1Sink, v2Sink, cSink := &fakeSink{}, &fakeSink{}, &fakeSink{}, &fakeSink{}
	b := h.join("b", models.RoleBroadcaster, bSink)
	h.join("v1", models.RoleViewer, v1Sink)
	h.join("v2", models.RoleViewer, v2Sink)
	h.join("c", models.RoleChatOnly, cSink)

	report, err := h.relay.OnBinaryMessage(b, []byte("first"))
	req.NoError(err)
	req.Equal(uint64(1), report.Seq)
	req.Equal(2, report.SentTo)
	h.send(b, 4)

	req.Equal([]uint64{1, 2, 3, 4, 5}, v1Sink.chunkSeqs())
	req.Equal([]uint64{1, 2, 3, 4, 5}, v2Sink.chunkSeqs())
	req.Empty(cSink.chunkSeqs())
	req.Empty(bSink.chunkSeqs())
}

func TestOnBinaryMessage_NonBroadcasterRejected(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})

	bSink, vSink, otherSink := &fakeSink{}, &fakeSink{}, &fakeSink{}
	h.join("b", models.RoleBroadcaster, bSink)
	v := h.join("v", models.RoleViewer, vSink)
	h.join("v2", models.RoleViewer, otherSink)

	_, err := h.relay.OnBinaryMessage(v, []byte("spoof"))
	req.ErrorIs(err, ErrNotBroadcaster)

	notices := vSink.notices(t, models.EventRejected)
	req.Len(notices, 1)
	req.Equal(models.CodeNotBroadcaster, notices[0].Code)
	req.Empty(otherSink.chunkSeqs())
	req.Empty(otherSink.envelopes(models.EventRejected))
	req.False(vSink.closed)
}

func TestOnBinaryMessage_NotJoined(t *testing.T) {
	h := newHarness(t, Config{})
	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	h.relay.OnDisconnect(b)

	_, err := h.relay.OnBinaryMessage(b, []byte("late"))
	require.ErrorIs(t, err, ErrNotJoined)
	_, err = h.relay.OnBinaryMessage(nil, []byte("x"))
	require.ErrorIs(t, err, ErrNotJoined)
}

func TestOnTextMessage_EchoesToEveryoneIncludingSender(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})

	sinks := map[models.Role]*fakeSink{
		models.RoleBroadcaster: {},
		models.RoleViewer:      {},
		models.RoleChatOnly:    {},
	}
	h.join("b", models.RoleBroadcaster, sinks[models.RoleBroadcaster])
	v := h.join("v", models.RoleViewer, sinks[models.RoleViewer])
	h.join("c", models.RoleChatOnly, sinks[models.RoleChatOnly])

	report, err := h.relay.OnTextMessage(context.Background(), v, "  hello  ")
	req.NoError(err)
	req.Equal(3, report.SentTo)
	req.Equal(uint64(1), report.Seq)

	for role, s := range sinks {
		chats := s.chats(t)
		req.Len(chats, 1, string(role))
		req.Equal("hello", chats[0].Text)
		req.Equal("v", chats[0].SenderID)
		req.False(chats[0].History)
	}
}

func TestOnTextMessage_Validation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
		code string
	}{
		{name: "empty", text: "", want: ErrEmptyMessage, code: models.CodeEmptyMessage},
		{name: "whitespace", text: " \t\n", want: ErrEmptyMessage, code: models.CodeEmptyMessage},
		{name: "too long", text: strings.Repeat("é", 11), want: ErrMessageTooLong, code: models.CodeMessageTooLong},
		{name: "invalid utf8", text: string([]byte{0xff, 0xfe}), want: ErrInvalidText, code: models.CodeInvalidText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			h := newHarness(t, Config{MaxChatLength: 10})
			sender, other := &fakeSink{}, &fakeSink{}
			p := h.join("p", models.RoleViewer, sender)
			h.join("o", models.RoleViewer, other)

			_, err := h.relay.OnTextMessage(context.Background(), p, tt.text)
			req.ErrorIs(err, tt.want)
			notices := sender.notices(t, models.EventRejected)
			req.Len(notices, 1)
			req.Equal(tt.code, notices[0].Code)
			req.Empty(other.chats(t))
		})
	}

	t.Run("exactly at limit", func(t *testing.T) {
		h := newHarness(t, Config{MaxChatLength: 10})
		p := h.join("p", models.RoleViewer, &fakeSink{})
		_, err := h.relay.OnTextMessage(context.Background(), p, strings.Repeat("é", 10))
		require.NoError(t, err)
	})
}

func TestChatSequenceFollowsArrivalOrder(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	s := &fakeSink{}
	a := h.join("a", models.RoleViewer, s)
	b := h.join("b", models.RoleChatOnly, &fakeSink{})

	for i, p := range []*session.Participant{a, b, a} {
		_, err := h.relay.OnTextMessage(context.Background(), p, fmt.Sprintf("m%d", i))
		req.NoError(err)
	}
	chats := s.chats(t)
	req.Len(chats, 3)
	for i, m := range chats {
		req.Equal(uint64(i+1), m.Seq)
		req.Equal(fmt.Sprintf("m%d", i), m.Text)
	}
}

func TestViewerBeforeBroadcasterGetsOnlyChat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	vSink := &fakeSink{}
	v := h.join("v", models.RoleViewer, vSink)

	_, err := h.relay.OnTextMessage(context.Background(), v, "anyone here?")
	req.NoError(err)
	req.Empty(vSink.chunkSeqs())
	req.Len(vSink.chats(t), 1)

	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	req.Len(vSink.envelopes(models.EventBroadcastStarted), 1)
	h.send(b, 2)
	req.Equal([]uint64{1, 2}, vSink.chunkSeqs())
}

func TestRoleConflict_NotifiesAndCloses(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	h.join("b1", models.RoleBroadcaster, &fakeSink{})

	second := &fakeSink{}
	_, err := h.relay.Join(session.Handle{ID: "b2", Sink: second}, models.RoleBroadcaster)
	req.ErrorIs(err, session.ErrRoleConflict)

	notices := second.notices(t, models.EventError)
	req.Len(notices, 1)
	req.Equal(models.CodeRoleConflict, notices[0].Code)
	req.True(second.closed)
	req.Equal(CloseRoleConflict, second.closeCode)
	req.Equal("b1", h.reg.CurrentBroadcaster().ID)
	_, ok := h.reg.Get("b2")
	req.False(ok)
}

func TestBroadcasterDisconnect_EndsBroadcast(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})

	vSink, cSink := &fakeSink{}, &fakeSink{}
	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	h.join("v", models.RoleViewer, vSink)
	h.join("c", models.RoleChatOnly, cSink)
	h.send(b, 3)

	h.relay.OnDisconnect(b)
	h.relay.OnDisconnect(b)

	ended := vSink.envelopes(models.EventBroadcastEnded)
	req.Len(ended, 1)
	var payload models.BroadcastPayload
	req.NoError(json.Unmarshal(ended[0].Data, &payload))
	req.Equal(uint64(3), payload.Chunks)
	req.Equal("b", payload.Broadcaster)
	req.Empty(cSink.envelopes(models.EventBroadcastEnded))
	req.Nil(h.reg.CurrentBroadcaster())
	req.Nil(h.relay.Snapshot().Broadcast)

	_, err := h.relay.OnBinaryMessage(b, []byte("after"))
	req.ErrorIs(err, ErrNotJoined)
	req.Equal([]uint64{1, 2, 3}, vSink.chunkSeqs())

	// a new broadcaster can take over at once and numbering restarts
	b2 := h.join("b2", models.RoleBroadcaster, &fakeSink{})
	h.send(b2, 2)
	req.Equal([]uint64{1, 2, 3, 1, 2}, vSink.chunkSeqs())
}

func TestLateViewerReceivesInitSegmentFirst(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})

	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	h.join("early", models.RoleViewer, &fakeSink{})
	h.send(b, 3)

	late := &fakeSink{}
	h.join("late", models.RoleViewer, late)
	h.send(b, 1)

	req.Equal([]uint64{1, 4}, late.chunkSeqs())
	msgs := late.all()
	req.False(msgs[0].Binary)
	req.True(msgs[1].Binary)
	req.Equal([]byte("chunk-0"), msgs[1].Data)
}

func TestLateViewerBeforeFirstChunkGetsNoInitSegment(t *testing.T) {
	h := newHarness(t, Config{})
	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	v := &fakeSink{}
	h.join("v", models.RoleViewer, v)
	h.send(b, 2)
	require.Equal(t, []uint64{1, 2}, v.chunkSeqs())
}

func TestSlowViewerIsEvictedWithoutStallingOthers(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{MaxConsecutiveDrops: 3})

	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	fast := &fakeSink{}
	h.join("fast", models.RoleViewer, fast)
	// room for the joined ack and one chunk
	slow := &fakeSink{capacity: 2}
	h.join("slow", models.RoleViewer, slow)

	var reports []DeliveryReport
	for i := 0; i < 5; i++ {
		r, err := h.relay.OnBinaryMessage(b, []byte{byte(i)})
		req.NoError(err)
		reports = append(reports, r)
	}

	req.Equal([]uint64{1, 2, 3, 4, 5}, fast.chunkSeqs())
	req.Equal([]uint64{1}, slow.chunkSeqs())
	req.Equal(1, reports[1].Dropped)
	req.Equal([]string{"slow"}, reports[3].Evicted)
	req.Equal(1, reports[4].SentTo)
	req.True(slow.closed)
	req.Equal(CloseSlowConsumer, slow.closeCode)
	_, ok := h.reg.Get("slow")
	req.False(ok)
}

func TestSuccessfulSendResetsDropCounter(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{MaxConsecutiveDrops: 2})

	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	s := &fakeSink{capacity: 1}
	v := h.join("v", models.RoleViewer, s)

	for i := 0; i < 5; i++ {
		// the queue is full: drop one, then make room
		h.send(b, 1)
		s.mu.Lock()
		s.msgs = nil
		s.mu.Unlock()
		h.send(b, 1)
	}
	req.Equal(session.StateJoined, v.State())
	req.False(s.closed)
}

func TestChatHistoryReplayedToNewParticipants(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{HistorySize: 2})
	v := h.join("v", models.RoleViewer, &fakeSink{})
	for _, text := range []string{"one", "two", "three"} {
		_, err := h.relay.OnTextMessage(context.Background(), v, text)
		req.NoError(err)
	}

	late := &fakeSink{}
	h.join("late", models.RoleChatOnly, late)
	chats := late.chats(t)
	req.Len(chats, 2)
	req.Equal("two", chats[0].Text)
	req.Equal("three", chats[1].Text)
	req.True(chats[0].History)
	req.Equal(uint64(3), chats[1].Seq)
}

func TestLongHistoryDoesNotEvictJoiner(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{HistorySize: 200, MaxConsecutiveDrops: 16})
	log := &eventLog{}
	h.relay.AddObserver(log)
	talker := h.join("talker", models.RoleChatOnly, &fakeSink{})
	for i := 1; i <= 200; i++ {
		_, err := h.relay.OnTextMessage(context.Background(), talker, fmt.Sprintf("line %d", i))
		req.NoError(err)
	}

	late := &fakeSink{capacity: 64}
	p, err := h.relay.Join(session.Handle{ID: "late", Sink: late}, models.RoleViewer)
	req.NoError(err)
	req.Equal(session.StateJoined, p.State())
	req.False(late.closed)
	_, ok := h.reg.Get("late")
	req.True(ok)

	// the ack takes one slot, the newest 63 messages fill the rest
	chats := late.chats(t)
	req.Len(chats, 63)
	req.Equal(uint64(138), chats[0].Seq)
	req.Equal(uint64(200), chats[62].Seq)
	req.Equal([]string{"joined:talker", "joined:late"}, log.events)

	// a replay that fills the queue leaves the drop count untouched
	_, err = h.relay.OnTextMessage(context.Background(), talker, "one more")
	req.NoError(err)
	req.Equal(session.StateJoined, p.State())
}

func TestHistoryReplayStopsWhenSinkIsFull(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{HistorySize: 10, MaxConsecutiveDrops: 1})
	talker := h.join("talker", models.RoleChatOnly, &fakeSink{})
	for i := 1; i <= 10; i++ {
		_, err := h.relay.OnTextMessage(context.Background(), talker, fmt.Sprintf("line %d", i))
		req.NoError(err)
	}

	inner := &fakeSink{capacity: 4}
	p, err := h.relay.Join(session.Handle{ID: "late", Sink: opaqueSink{inner}}, models.RoleViewer)
	req.NoError(err)
	req.Equal(session.StateJoined, p.State())
	req.False(inner.closed)
	chats := inner.chats(t)
	req.Len(chats, 3)
	req.Equal(uint64(1), chats[0].Seq)
}

func TestSeedHistoryContinuesSequence(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	h.relay.SeedHistory([]models.ChatMessage{
		{Seq: 41, SenderID: "x", Text: "old"},
		{Seq: 42, SenderID: "y", Text: "older reply"},
	})
	s := &fakeSink{}
	p := h.join("p", models.RoleViewer, s)
	req.Len(s.chats(t), 2)

	report, err := h.relay.OnTextMessage(context.Background(), p, "new")
	req.NoError(err)
	req.Equal(uint64(43), report.Seq)
}

type panicky struct{}

func (panicky) Censor(string) (string, []string) { panic("censor") }

func TestModeratorPanicReleasesRelay(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	h.relay.SetModerator(panicky{})
	p := h.join("p", models.RoleChatOnly, &fakeSink{})

	req.Panics(func() { _, _ = h.relay.OnTextMessage(context.Background(), p, "boom") })

	done := make(chan struct{})
	go func() {
		h.relay.OnDisconnect(p)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay still locked after moderator panic")
	}
	_, ok := h.reg.Get("p")
	req.False(ok)
}

type maskAll struct{}

func (maskAll) Censor(text string) (string, []string) {
	if strings.Contains(text, "darn") {
		return strings.ReplaceAll(text, "darn", "****"), []string{"darn"}
	}
	return text, nil
}

func TestModeratorMasksChat(t *testing.T) {
	h := newHarness(t, Config{})
	h.relay.SetModerator(maskAll{})
	s := &fakeSink{}
	p := h.join("p", models.RoleViewer, s)

	_, err := h.relay.OnTextMessage(context.Background(), p, "darn it")
	require.NoError(t, err)
	require.Equal(t, "**** it", s.chats(t)[0].Text)
}

type fakeBus struct {
	mu   sync.Mutex
	err  error
	sent []models.ChatMessage
}

func (b *fakeBus) PublishChat(_ context.Context, m models.ChatMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, m)
	return nil
}

func TestChatBus(t *testing.T) {
	t.Run("published then delivered on the way back", func(t *testing.T) {
		req := require.New(t)
		h := newHarness(t, Config{})
		bus := &fakeBus{}
		h.relay.SetChatBus(bus)
		s := &fakeSink{}
		p := h.join("p", models.RoleViewer, s)

		_, err := h.relay.OnTextMessage(context.Background(), p, "via redis")
		req.NoError(err)
		req.Empty(s.chats(t))
		req.Len(bus.sent, 1)

		h.relay.DeliverChat(bus.sent[0])
		chats := s.chats(t)
		req.Len(chats, 1)
		req.Equal(uint64(1), chats[0].Seq)
	})

	t.Run("publish failure falls back to local delivery", func(t *testing.T) {
		h := newHarness(t, Config{})
		h.relay.SetChatBus(&fakeBus{err: errors.New("redis down")})
		s := &fakeSink{}
		p := h.join("p", models.RoleViewer, s)

		report, err := h.relay.OnTextMessage(context.Background(), p, "still works")
		require.NoError(t, err)
		require.Equal(t, 1, report.SentTo)
		require.Len(t, s.chats(t), 1)
	})
}

type eventLog struct {
	NopObserver
	mu     sync.Mutex
	events []string
	last   models.Broadcast
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) ParticipantJoined(p models.ParticipantInfo) { l.add("joined:" + p.ID) }
func (l *eventLog) ParticipantLeft(p models.ParticipantInfo) { l.add("left:" + p.ID) }
func (l *eventLog) BroadcastStarted(models.Broadcast) { l.add("started") }
func (l *eventLog) ChunkRelayed(_ models.Broadcast, c models.Chunk) {
	l.add(fmt.Sprintf("chunk:%d", c.Seq))
}
func (l *eventLog) BroadcastEnded(b models.Broadcast) {
	l.last = b
	l.add("ended")
}

func TestObserversSeeLifecycle(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	log := &eventLog{}
	h.relay.AddObserver(log)

	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	h.join("v", models.RoleViewer, &fakeSink{})
	h.send(b, 2)
	h.relay.OnDisconnect(b)

	req.Equal([]string{"started", "joined:b", "joined:v", "chunk:1", "chunk:2", "ended", "left:b"}, log.events)
	req.Equal(uint64(2), log.last.Chunks)
	req.Equal(1, log.last.PeakViewers)
	req.Equal("disconnected", log.last.EndReason)
	req.NotNil(log.last.EndedAt)
}

func TestEndBroadcast(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})

	_, err := h.relay.EndBroadcast("")
	req.ErrorIs(err, ErrNoBroadcast)

	bSink, vSink := &fakeSink{}, &fakeSink{}
	b := h.join("b", models.RoleBroadcaster, bSink)
	h.join("v", models.RoleViewer, vSink)
	h.send(b, 1)

	ended, err := h.relay.EndBroadcast("terms violation")
	req.NoError(err)
	req.Equal(uint64(1), ended.Chunks)
	req.True(bSink.closed)
	req.Equal(CloseEndedByOperator, bSink.closeCode)
	req.Len(vSink.envelopes(models.EventBroadcastEnded), 1)
	req.Nil(h.reg.CurrentBroadcaster())
}

func TestDispatch(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	s := &fakeSink{}
	b := h.join("b", models.RoleBroadcaster, s)
	v := &fakeSink{}
	h.join("v", models.RoleViewer, v)

	req.NoError(h.relay.Dispatch(context.Background(), b, Frame{Kind: FrameBinary, Data: []byte("c1")}))
	req.NoError(h.relay.Dispatch(context.Background(), b, Frame{Kind: FrameText, Data: []byte(`{"event":"chat_message","data":{"text":"hi there"}}`)}))
	req.NoError(h.relay.Dispatch(context.Background(), b, Frame{Kind: FrameText, Data: []byte("plain text")}))
	req.Error(h.relay.Dispatch(context.Background(), b, Frame{Kind: FrameKind(9)}))

	req.Equal([]uint64{1}, v.chunkSeqs())
	chats := v.chats(t)
	req.Len(chats, 2)
	req.Equal("hi there", chats[0].Text)
	req.Equal("plain text", chats[1].Text)
}

func TestSnapshot(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{SessionName: "main"})
	b := h.join("b", models.RoleBroadcaster, &fakeSink{})
	h.join("v", models.RoleViewer, &fakeSink{})
	h.join("c", models.RoleChatOnly, &fakeSink{})
	h.send(b, 1)

	st := h.relay.Snapshot()
	req.Equal("main", st.Session)
	req.Equal(1, st.Viewers)
	req.Equal(3, st.Participants)
	req.Equal("b", st.Broadcaster.ID)
	req.Equal(uint64(1), st.Broadcast.Chunks)
}

func TestConcurrentViewersSeeEveryChunkInOrder(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, Config{})
	b := h.join("b", models.RoleBroadcaster, &fakeSink{})

	const viewers = 20
	const chunks = 200
	sinks := make([]*fakeSink, viewers)
	errs := make(chan error, viewers+chunks)
	var wg sync.WaitGroup
	for i := range sinks {
		sinks[i] = &fakeSink{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.relay.Join(session.Handle{ID: fmt.Sprintf("v%d", i), Sink: sinks[i]}, models.RoleViewer)
			errs <- err
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < chunks; i++ {
			_, err := h.relay.OnBinaryMessage(b, []byte{byte(i)})
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}
	h.send(b, 1)

	for _, s := range sinks {
		seqs := s.chunkSeqs()
		req.NotEmpty(seqs)
		for i := 1; i < len(seqs); i++ {
			// the init segment (seq 1) may precede a jump, never a repeat
			req.Greater(seqs[i], seqs[i-1])
		}
		req.Equal(uint64(chunks+1), seqs[len(seqs)-1])
	}
}
