//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_recording_store.go -package=mocks -mock_names=Store=MockRecordingStore
package recordings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/liverelay/internal/models"
)

var ErrNotFound = errors.New("recording not found")

// Store is the recordings persistence used by the recorder hand-off and the
// upload worker.
type Store interface {
	Create(ctx context.Context, rec *models.Recording) error
	MarkFinished(ctx context.Context, rec models.Recording) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateS3Result(ctx context.Context, id uuid.UUID, s3URL, s3Key string, fileSize int64) error
}

// Repository handles the recordings table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a recordings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `id, broadcast_id, local_path, content_type, COALESCE(s3_url,''), COALESCE(s3_key,''),
	file_size, chunks, dropped_chunks, status, created_at, updated_at`

func scanRecording(row pgx.Row) (*models.Recording, error) {
	var rec models.Recording
	var chunks, dropped int64
	err := row.Scan(&rec.ID, &rec.BroadcastID, &rec.LocalPath, &rec.ContentType, &rec.S3URL, &rec.S3Key,
		&rec.FileSize, &chunks, &dropped, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Chunks = uint64(chunks)
	rec.DroppedChunks = uint64(dropped)
	return &rec, nil
}

// Create inserts a recording when its file is opened.
func (r *Repository) Create(ctx context.Context, rec *models.Recording) error {
	const q = `INSERT INTO recordings (id, broadcast_id, local_path, content_type, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, q, rec.ID, rec.BroadcastID, rec.LocalPath, rec.ContentType, rec.Status).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

// MarkFinished stores the final file stats and status. The row is inserted
// if its start was never recorded.
func (r *Repository) MarkFinished(ctx context.Context, rec models.Recording) error {
	const q = `INSERT INTO recordings (id, broadcast_id, local_path, content_type, file_size, chunks, dropped_chunks, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
		  file_size = EXCLUDED.file_size,
		  chunks = EXCLUDED.chunks,
		  dropped_chunks = EXCLUDED.dropped_chunks,
		  status = EXCLUDED.status,
		  updated_at = NOW()`
	_, err := r.pool.Exec(ctx, q, rec.ID, rec.BroadcastID, rec.LocalPath, rec.ContentType,
		rec.FileSize, int64(rec.Chunks), int64(rec.DroppedChunks), rec.Status)
	return err
}

// GetByID returns a recording or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	rec, err := scanRecording(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM recordings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListRecent returns the latest recordings, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.Recording, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM recordings ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// ListByBroadcast returns the recordings of one broadcast.
func (r *Repository) ListByBroadcast(ctx context.Context, broadcastID uuid.UUID) ([]models.Recording, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM recordings WHERE broadcast_id = $1 ORDER BY created_at DESC`, broadcastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rec)
	}
	return list, rows.Err()
}

// UpdateStatus sets recording status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	const q = `UPDATE recordings SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, status, id)
	return err
}

// UpdateS3Result sets the S3 location and marks the recording completed.
func (r *Repository) UpdateS3Result(ctx context.Context, id uuid.UUID, s3URL, s3Key string, fileSize int64) error {
	const q = `UPDATE recordings SET s3_url = $1, s3_key = $2, file_size = $3, status = $4, updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, s3URL, s3Key, fileSize, models.RecordingStatusCompleted, id)
	return err
}
