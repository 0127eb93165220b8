//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_session_store.go -package=mocks -mock_names=Store=MockSessionStore
package sessionlog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/liverelay/internal/models"
)

// Store archives participant connections.
type Store interface {
	LogJoin(ctx context.Context, s models.ParticipantSession) error
	LogLeave(ctx context.Context, participantID string, leftAt time.Time) error
}

// Repository handles participant_sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session log repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogJoin inserts a row when a participant joins.
func (r *Repository) LogJoin(ctx context.Context, s models.ParticipantSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO participant_sessions (id, session, participant_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		 ON CONFLICT (participant_id) DO NOTHING`,
		s.ID, s.Session, s.ParticipantID, s.UserID, string(s.Role), s.JoinedAt)
	return err
}

// LogLeave closes the participant's row and records how long it stayed.
func (r *Repository) LogLeave(ctx context.Context, participantID string, leftAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE participant_sessions
		 SET left_at = $2, watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - joined_at))::BIGINT)
		 WHERE participant_id = $1 AND left_at IS NULL`,
		participantID, leftAt)
	return err
}

// WatchTimeAggregates sums watch time over closed rows.
type WatchTimeAggregates struct {
	TotalWatchSeconds int64 `json:"total_watch_seconds"`
	DistinctUsers     int   `json:"distinct_users"`
	Sessions          int   `json:"sessions"`
}

// GetWatchTimeAggregates returns viewer watch totals for session.
func (r *Repository) GetWatchTimeAggregates(ctx context.Context, session string) (*WatchTimeAggregates, error) {
	const q = `SELECT COALESCE(SUM(watch_seconds), 0), COUNT(DISTINCT user_id), COUNT(*)
		FROM participant_sessions WHERE session = $1 AND role = 'viewer' AND left_at IS NOT NULL`
	var agg WatchTimeAggregates
	if err := r.pool.QueryRow(ctx, q, session).Scan(&agg.TotalWatchSeconds, &agg.DistinctUsers, &agg.Sessions); err != nil {
		return nil, err
	}
	return &agg, nil
}

// ListRecent returns the latest connections of session, newest first.
func (r *Repository) ListRecent(ctx context.Context, session string, limit int) ([]models.ParticipantSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session, participant_id, COALESCE(user_id, ''), role, joined_at, left_at, watch_seconds
		 FROM participant_sessions WHERE session = $1 ORDER BY joined_at DESC LIMIT $2`,
		session, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ParticipantSession
	for rows.Next() {
		var s models.ParticipantSession
		var role string
		if err := rows.Scan(&s.ID, &s.Session, &s.ParticipantID, &s.UserID, &role, &s.JoinedAt, &s.LeftAt, &s.WatchSeconds); err != nil {
			return nil, err
		}
		s.Role = models.Role(role)
		list = append(list, s)
	}
	return list, rows.Err()
}
