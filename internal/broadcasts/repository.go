//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_broadcast_store.go -package=mocks -mock_names=Store=MockBroadcastStore
package broadcasts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/liverelay/internal/models"
)

var ErrNotFound = errors.New("broadcast not found")

// Store archives broadcasts.
type Store interface {
	Create(ctx context.Context, b models.Broadcast) error
	Finish(ctx context.Context, b models.Broadcast) error
}

// Repository handles the broadcasts table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a broadcast repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, session, broadcaster_id, user_id, mime_type, started_at, ended_at, chunks, bytes, peak_viewers, end_reason`

// Create inserts a broadcast when the broadcaster joins.
func (r *Repository) Create(ctx context.Context, b models.Broadcast) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO broadcasts (id, session, broadcaster_id, user_id, started_at, peak_viewers)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		b.ID, b.Session, b.BroadcasterID, b.UserID, b.StartedAt, b.PeakViewers)
	return err
}

// Finish records the final stats. A broadcast whose start was never
// archived is inserted whole.
func (r *Repository) Finish(ctx context.Context, b models.Broadcast) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO broadcasts (`+columns+`)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10, NULLIF($11, ''))
		 ON CONFLICT (id) DO UPDATE SET
		   mime_type = EXCLUDED.mime_type,
		   ended_at = EXCLUDED.ended_at,
		   chunks = EXCLUDED.chunks,
		   bytes = EXCLUDED.bytes,
		   peak_viewers = GREATEST(broadcasts.peak_viewers, EXCLUDED.peak_viewers),
		   end_reason = EXCLUDED.end_reason`,
		b.ID, b.Session, b.BroadcasterID, b.UserID, b.MimeType, b.StartedAt, b.EndedAt,
		int64(b.Chunks), b.Bytes, b.PeakViewers, b.EndReason)
	return err
}

// GetByID returns a broadcast or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Broadcast, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM broadcasts WHERE id = $1`, id)
	b, err := scanBroadcast(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListRecent returns the latest broadcasts of session, newest first.
func (r *Repository) ListRecent(ctx context.Context, session string, limit int) ([]models.Broadcast, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM broadcasts WHERE session = $1 ORDER BY started_at DESC LIMIT $2`,
		session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Broadcast
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *b)
	}
	return list, rows.Err()
}

func scanBroadcast(row pgx.Row) (*models.Broadcast, error) {
	var (
		b                    models.Broadcast
		userID, mime, reason *string
		chunks               int64
	)
	err := row.Scan(&b.ID, &b.Session, &b.BroadcasterID, &userID, &mime, &b.StartedAt, &b.EndedAt,
		&chunks, &b.Bytes, &b.PeakViewers, &reason)
	if err != nil {
		return nil, err
	}
	b.Chunks = uint64(chunks)
	if userID != nil {
		b.UserID = *userID
	}
	if mime != nil {
		b.MimeType = *mime
	}
	if reason != nil {
		b.EndReason = *reason
	}
	return &b, nil
}
