// Package archive records broadcasts and participant connections in
// Postgres without putting the database on the relay's path.
package archive

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/broadcasts"
	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/relay"
	"github.com/aura-webinar/liverelay/internal/sessionlog"
)

const writeTimeout = 5 * time.Second

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Writer is a relay observer that queues archive writes for a background
// goroutine. A full queue drops the write and counts it.
type Writer struct {
	relay.NopObserver
	broadcasts broadcasts.Store
	sessions   sessionlog.Store
	session    string
	tasks      chan task
	dropped    atomic.Uint64
	logger     *zap.Logger
	now        func() time.Time
}

// NewWriter creates a writer. Either store may be nil to skip that table.
func NewWriter(b broadcasts.Store, s sessionlog.Store, session string, buffer int, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1024
	}
	return &Writer{
		broadcasts: b,
		sessions:   s,
		session:    session,
		tasks:      make(chan task, buffer),
		logger:     logger,
		now:        time.Now,
	}
}

func (w *Writer) ParticipantJoined(p models.ParticipantInfo) {
	if w.sessions == nil {
		return
	}
	row := models.ParticipantSession{
		ID:            uuid.New(),
		Session:       w.session,
		ParticipantID: p.ID,
		UserID:        p.UserID,
		Role:          p.Role,
		JoinedAt:      p.JoinedAt,
	}
	w.enqueue("log join", func(ctx context.Context) error { return w.sessions.LogJoin(ctx, row) })
}

func (w *Writer) ParticipantLeft(p models.ParticipantInfo) {
	if w.sessions == nil {
		return
	}
	at := w.now()
	w.enqueue("log leave", func(ctx context.Context) error { return w.sessions.LogLeave(ctx, p.ID, at) })
}

func (w *Writer) BroadcastStarted(b models.Broadcast) {
	if w.broadcasts == nil {
		return
	}
	w.enqueue("create broadcast", func(ctx context.Context) error { return w.broadcasts.Create(ctx, b) })
}

func (w *Writer) BroadcastEnded(b models.Broadcast) {
	if w.broadcasts == nil {
		return
	}
	w.enqueue("finish broadcast", func(ctx context.Context) error { return w.broadcasts.Finish(ctx, b) })
}

// Dropped returns how many writes were discarded.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

func (w *Writer) enqueue(name string, run func(ctx context.Context) error) {
	select {
	case w.tasks <- task{name: name, run: run}:
	default:
		w.dropped.Add(1)
		w.logger.Warn("archive queue full, write dropped", zap.String("task", name))
	}
}

// Run executes queued writes in order until ctx is done, then drains the
// queue.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case t := <-w.tasks:
			w.exec(t)
		case <-ctx.Done():
			for {
				select {
				case t := <-w.tasks:
					w.exec(t)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) exec(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := t.run(ctx); err != nil {
		w.logger.Error("archive write failed", zap.String("task", t.name), zap.Error(err))
	}
}
