//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_chat_store.go -package=mocks
package chatlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/aura-webinar/liverelay/internal/models"
)

// ChatStore persists delivered chat.
type ChatStore interface {
	Put(msg models.ChatMessage) error
	Recent(n int) ([]models.ChatMessage, error)
}

// Store keeps chat in BadgerDB under "chat:{session}:{seq padded to 19}",
// so a prefix scan walks one session in delivery order.
type Store struct {
	db      *badger.DB
	session string
	ttl     time.Duration
	logger  *zap.Logger
}

// Open opens (or creates) the Badger directory at path.
func Open(path string) (*badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open chat history %s: %w", path, err)
	}
	return db, nil
}

// NewStore creates a store for session. ttl of zero keeps messages forever.
func NewStore(db *badger.DB, session string, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, session: session, ttl: ttl, logger: logger}
}

func (s *Store) prefix() []byte {
	return []byte(fmt.Sprintf("chat:%s:", s.session))
}

func (s *Store) key(seq uint64) []byte {
	return []byte(fmt.Sprintf("chat:%s:%019d", s.session, seq))
}

// Put stores msg under its sequence number, replacing any previous entry.
func (s *Store) Put(msg models.ChatMessage) error {
	msg.History = false
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(s.key(msg.Seq), value)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Recent returns up to n of the latest messages, oldest first.
func (s *Store) Recent(n int) ([]models.ChatMessage, error) {
	if n <= 0 {
		return nil, nil
	}
	var values [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := s.prefix()
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// seek past the largest possible key, then walk backwards
		for it.Seek(append(prefix, []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if len(values) == n {
				break
			}
			v, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatMessage, len(values))
	for i, v := range values {
		var m models.ChatMessage
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, fmt.Errorf("decode chat message: %w", err)
		}
		out[len(values)-1-i] = m
	}
	return out, nil
}
