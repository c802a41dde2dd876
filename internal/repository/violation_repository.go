package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// ViolationRepository handles persisted proctoring events.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// BatchInsert stores a batch of violation events with CopyFrom.
func (r *ViolationRepository) BatchInsert(ctx context.Context, events []model.ViolationEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(events))
	for i, e := range events {
		rows[i] = []interface{}{e.SessionID, e.Signal, e.Detail, e.RecordedAt}
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"violation_events"},
		[]string{"session_id", "signal", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// Insert stores a single event, used as the fallback path when a batch
// insert fails partway.
func (r *ViolationRepository) Insert(ctx context.Context, e *model.ViolationEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violation_events (session_id, signal, detail, recorded_at)
		 VALUES ($1, $2, $3, $4)`,
		e.SessionID, e.Signal, e.Detail, e.RecordedAt)
	return err
}

// ListBySession retrieves a session's events for the examiner view.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ViolationEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, signal, detail, recorded_at
		 FROM violation_events WHERE session_id = $1 ORDER BY recorded_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.ViolationEvent
	for rows.Next() {
		var e model.ViolationEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Signal, &e.Detail, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountSince counts events per session for a period since the given time,
// feeding the live monitor.
func (r *ViolationRepository) CountSince(ctx context.Context, periodID uuid.UUID, since time.Time) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ve.session_id, COUNT(*)
		 FROM violation_events ve
		 JOIN sessions s ON s.id = ve.session_id
		 WHERE s.period_id = $1 AND ve.recorded_at >= $2
		 GROUP BY ve.session_id`, periodID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}
