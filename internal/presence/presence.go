// Package presence mirrors who is connected into a Redis set so the
// participant count can be read across relay instances.
package presence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
	"github.com/aura-webinar/liverelay/internal/relay"
)

const opTimeout = 3 * time.Second

// SetStore is the subset of set operations presence needs.
type SetStore interface {
	Add(ctx context.Context, key, member string, ttl time.Duration) error
	Remove(ctx context.Context, key string, members ...string) error
	Card(ctx context.Context, key string) (int64, error)
}

// RedisSetStore implements SetStore with go-redis.
type RedisSetStore struct {
	client *redis.Client
}

func NewRedisSetStore(client *redis.Client) *RedisSetStore {
	return &RedisSetStore{client: client}
}

func (s *RedisSetStore) Add(ctx context.Context, key, member string, ttl time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, member)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *RedisSetStore) Remove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SRem(ctx, key, args...).Err()
}

func (s *RedisSetStore) Card(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

// Key returns the presence set for session.
func Key(session string) string {
	return "relay:" + session + ":participants"
}

type op struct {
	join   bool
	member string
}

// Tracker is a relay observer that keeps the presence set current. Redis
// calls run on their own goroutine; when that falls behind, updates are
// dropped and the set heals on the next join or on TTL expiry.
type Tracker struct {
	relay.NopObserver
	store    SetStore
	key      string
	instance string
	ttl      time.Duration
	logger   *zap.Logger
	ops      chan op
	dropped  atomic.Uint64

	mu    sync.Mutex
	local map[string]struct{}
}

// NewTracker creates a tracker for session. instance keeps members from
// different relay processes apart.
func NewTracker(store SetStore, session, instance string, ttl time.Duration, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tracker{
		store:    store,
		key:      Key(session),
		instance: instance,
		ttl:      ttl,
		logger:   logger,
		ops:      make(chan op, 256),
		local:    make(map[string]struct{}),
	}
}

func (t *Tracker) member(id string) string { return t.instance + ":" + id }

func (t *Tracker) ParticipantJoined(p models.ParticipantInfo) { t.enqueue(op{join: true, member: t.member(p.ID)}) }

func (t *Tracker) ParticipantLeft(p models.ParticipantInfo) { t.enqueue(op{member: t.member(p.ID)}) }

func (t *Tracker) enqueue(o op) {
	select {
	case t.ops <- o:
	default:
		t.dropped.Add(1)
	}
}

// Count returns the number of participants across all instances.
func (t *Tracker) Count(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return t.store.Card(ctx, t.key)
}

// Run applies queued updates until ctx is done, then removes this
// instance's members from the set.
func (t *Tracker) Run(ctx context.Context) {
	for {
		select {
		case o := <-t.ops:
			t.apply(o)
		case <-ctx.Done():
			for {
				select {
				case o := <-t.ops:
					t.apply(o)
				default:
					t.cleanup()
					return
				}
			}
		}
	}
}

func (t *Tracker) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var err error
	if o.join {
		err = t.store.Add(ctx, t.key, o.member, t.ttl)
	} else {
		err = t.store.Remove(ctx, t.key, o.member)
	}
	if err != nil {
		t.logger.Warn("presence update failed", zap.String("member", o.member), zap.Error(err))
		return
	}
	t.mu.Lock()
	if o.join {
		t.local[o.member] = struct{}{}
	} else {
		delete(t.local, o.member)
	}
	t.mu.Unlock()
}

func (t *Tracker) cleanup() {
	t.mu.Lock()
	members := make([]string, 0, len(t.local))
	for m := range t.local {
		members = append(members, m)
	}
	t.local = make(map[string]struct{})
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := t.store.Remove(ctx, t.key, members...); err != nil {
		t.logger.Warn("presence cleanup failed", zap.Error(err))
	}
}
