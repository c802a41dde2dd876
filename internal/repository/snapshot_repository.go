package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// ErrSnapshotLimit means the session already holds the maximum number of
// stored snapshots.
var ErrSnapshotLimit = errors.New("snapshot limit reached")

// SnapshotRepository handles webcam snapshot metadata. File bytes live on
// disk; only paths are stored here.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// CreateCapped inserts a snapshot unless the session is already at max. The
// count and insert run in one transaction holding the session row, so two
// concurrent uploads cannot both pass the cap check.
func (r *SnapshotRepository) CreateCapped(ctx context.Context, s *model.Snapshot, max int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM sessions WHERE id = $1 FOR UPDATE`, s.SessionID); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE session_id = $1`, s.SessionID,
	).Scan(&count); err != nil {
		return err
	}
	if count >= max {
		return ErrSnapshotLimit
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO snapshots (session_id, path, mime_type, size_bytes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.SessionID, s.Path, s.MimeType, s.SizeBytes,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListBySession retrieves snapshot metadata for the examiner view.
func (r *SnapshotRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Snapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, path, mime_type, size_bytes, created_at
		 FROM snapshots WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []model.Snapshot
	for rows.Next() {
		var s model.Snapshot
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Path, &s.MimeType, &s.SizeBytes, &s.CreatedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
