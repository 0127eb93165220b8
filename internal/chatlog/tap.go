// Package chatlog keeps delivered chat in BadgerDB so it can be replayed to
// participants who join later, across restarts.
package chatlog

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/relay"
)

// Tap writes chat delivered by the relay to a ChatStore on its own goroutine.
type Tap struct {
	relay.NopObserver
	store   ChatStore
	ch      chan models.ChatMessage
	dropped atomic.Uint64
	logger  *zap.Logger
}

// NewTap creates a tap with room for buffer pending messages.
func NewTap(store ChatStore, buffer int, logger *zap.Logger) *Tap {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Tap{store: store, ch: make(chan models.ChatMessage, buffer), logger: logger}
}

// ChatDelivered queues msg for storage, dropping it if the writer is behind.
func (t *Tap) ChatDelivered(msg models.ChatMessage) {
	select {
	case t.ch <- msg:
	default:
		t.dropped.Add(1)
		t.logger.Warn("chat history queue full, message not stored", zap.Uint64("seq", msg.Seq))
	}
}

// Dropped returns how many messages were not stored.
func (t *Tap) Dropped() uint64 { return t.dropped.Load() }

// Run stores queued messages until ctx is done, then flushes what is left.
func (t *Tap) Run(ctx context.Context) {
	for {
		select {
		case m := <-t.ch:
			t.put(m)
		case <-ctx.Done():
			for {
				select {
				case m := <-t.ch:
					t.put(m)
				default:
					return
				}
			}
		}
	}
}

func (t *Tap) put(m models.ChatMessage) {
	if err := t.store.Put(m); err != nil {
		t.logger.Error("store chat message", zap.Uint64("seq", m.Seq), zap.Error(err))
	}
}
