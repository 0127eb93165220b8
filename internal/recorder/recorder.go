//go:generate go run go.uber.org/mock/mockgen -source=recorder.go -destination=../mocks/mock_finisher.go -package=mocks
// Package recorder writes every chunk of a broadcast to a local file so the
// broadcast can be uploaded once it ends.
package recorder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/relay"
)

const (
	defaultBuffer = 256
	// controlReserve keeps queue slots free for start/end events so a burst
	// of chunks cannot crowd out the end of a recording.
	controlReserve = 8
	callTimeout    = 10 * time.Second
)

// Finisher is told when a recording file is opened and when it is complete.
type Finisher interface {
	RecordingStarted(ctx context.Context, rec models.Recording) error
	RecordingFinished(ctx context.Context, rec models.Recording) error
}

type eventKind int

const (
	evStart eventKind = iota
	evChunk
	evEnd
)

type event struct {
	kind      eventKind
	broadcast models.Broadcast
	chunk     models.Chunk
}

type active struct {
	broadcastID uuid.UUID
	rec         models.Recording
	file        *os.File
	w           *bufio.Writer
	lastSeq     uint64
	failed      bool
}

// Recorder is a relay observer. File IO happens on the Run goroutine; the
// relay only enqueues.
type Recorder struct {
	relay.NopObserver
	dir      string
	finisher Finisher
	logger   *zap.Logger
	events   chan event
	dropped  atomic.Uint64

	cur *active
}

// New creates a recorder writing into dir. finisher may be nil.
func New(dir string, buffer int, finisher Finisher, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= controlReserve {
		buffer = defaultBuffer
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	return &Recorder{
		dir:      dir,
		finisher: finisher,
		logger:   logger,
		events:   make(chan event, buffer),
	}, nil
}

func (r *Recorder) BroadcastStarted(b models.Broadcast) {
	r.control(event{kind: evStart, broadcast: b})
}

func (r *Recorder) BroadcastEnded(b models.Broadcast) {
	r.control(event{kind: evEnd, broadcast: b})
}

// ChunkRelayed queues a chunk unless the queue is into its reserve.
func (r *Recorder) ChunkRelayed(b models.Broadcast, c models.Chunk) {
	if len(r.events) >= cap(r.events)-controlReserve {
		r.dropped.Add(1)
		return
	}
	select {
	case r.events <- event{kind: evChunk, broadcast: b, chunk: c}:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) control(ev event) {
	select {
	case r.events <- ev:
	default:
		r.logger.Error("recorder queue full, control event lost", zap.String("broadcast_id", ev.broadcast.ID.String()))
	}
}

// Dropped returns how many chunks were not queued.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Run writes queued events until ctx is done. A recording still open at that
// point is finished as if its broadcast had ended.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		case <-ctx.Done():
			r.drain()
			if r.cur != nil {
				r.finish()
			}
			return
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case ev := <-r.events:
			r.handle(ev)
		default:
			return
		}
	}
}

func (r *Recorder) handle(ev event) {
	switch ev.kind {
	case evStart:
		// a lost end event must not leave the previous file open
		if r.cur != nil && r.cur.broadcastID != ev.broadcast.ID {
			r.finish()
		}
	case evChunk:
		r.writeChunk(ev.broadcast, ev.chunk)
	case evEnd:
		if r.cur != nil && r.cur.broadcastID == ev.broadcast.ID {
			r.finish()
		}
	}
}

func (r *Recorder) writeChunk(b models.Broadcast, c models.Chunk) {
	if r.cur == nil || r.cur.broadcastID != b.ID {
		if r.cur != nil {
			r.finish()
		}
		if err := r.open(b); err != nil {
			r.logger.Error("open recording failed", zap.String("broadcast_id", b.ID.String()), zap.Error(err))
			return
		}
	}
	cur := r.cur
	if cur.failed {
		return
	}
	if c.Seq > cur.lastSeq+1 {
		cur.rec.DroppedChunks += c.Seq - cur.lastSeq - 1
	}
	cur.lastSeq = c.Seq
	if _, err := cur.w.Write(c.Payload); err != nil {
		cur.failed = true
		r.logger.Error("write recording failed", zap.String("path", cur.rec.LocalPath), zap.Error(err))
		return
	}
	cur.rec.Chunks++
	cur.rec.FileSize += int64(len(c.Payload))
}

func (r *Recorder) open(b models.Broadcast) error {
	contentType := b.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ext := ".bin"
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	p := filepath.Join(r.dir, b.ID.String()+ext)
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	now := time.Now()
	r.cur = &active{
		broadcastID: b.ID,
		file:        f,
		w:           bufio.NewWriterSize(f, 256*1024),
		rec: models.Recording{
			ID:          uuid.New(),
			BroadcastID: b.ID,
			LocalPath:   p,
			ContentType: contentType,
			Status:      models.RecordingStatusRecording,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	r.logger.Info("recording started", zap.String("broadcast_id", b.ID.String()), zap.String("path", p))
	if r.finisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := r.finisher.RecordingStarted(ctx, r.cur.rec); err != nil {
			r.logger.Warn("recording start not recorded", zap.Error(err))
		}
	}
	return nil
}

func (r *Recorder) finish() {
	cur := r.cur
	r.cur = nil
	err := cur.w.Flush()
	if cerr := cur.file.Close(); err == nil {
		err = cerr
	}
	cur.rec.UpdatedAt = time.Now()
	cur.rec.Status = models.RecordingStatusProcessing
	if err != nil || cur.failed {
		cur.rec.Status = models.RecordingStatusFailed
		r.logger.Error("recording incomplete", zap.String("path", cur.rec.LocalPath), zap.Error(err))
	}
	r.logger.Info("recording finished",
		zap.String("recording_id", cur.rec.ID.String()),
		zap.Uint64("chunks", cur.rec.Chunks),
		zap.Uint64("dropped_chunks", cur.rec.DroppedChunks),
		zap.Int64("bytes", cur.rec.FileSize),
	)
	if r.finisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if err := r.finisher.RecordingFinished(ctx, cur.rec); err != nil {
		r.logger.Error("hand off recording failed", zap.String("recording_id", cur.rec.ID.String()), zap.Error(err))
	}
}
