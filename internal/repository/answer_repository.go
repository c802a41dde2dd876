package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SavedAnswer is one durably stored draft answer.
type SavedAnswer struct {
	SessionID uuid.UUID
	ItemID    string
	Value     string
	UpdatedAt time.Time
}

// AnswerRepository persists draft answers flushed from the Redis autosave
// hash. These rows back state restore when the cache is cold; the grading
// record stores its own canonical copy at submission time.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// UpsertBatch writes a batch of draft answers in one statement. Later values
// for the same item replace earlier ones.
func (r *AnswerRepository) UpsertBatch(ctx context.Context, answers []SavedAnswer) error {
	if len(answers) == 0 {
		return nil
	}

	sessionIDs := make([]uuid.UUID, len(answers))
	itemIDs := make([]string, len(answers))
	values := make([]string, len(answers))
	for i, a := range answers {
		sessionIDs[i] = a.SessionID
		itemIDs[i] = a.ItemID
		values[i] = a.Value
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_answers (session_id, item_id, value, updated_at)
		 SELECT u.session_id, u.item_id, u.value, CURRENT_TIMESTAMP
		 FROM UNNEST($1::uuid[], $2::text[], $3::text[]) AS u(session_id, item_id, value)
		 ON CONFLICT (session_id, item_id)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		sessionIDs, itemIDs, values)
	return err
}

// GetBySession loads all stored draft answers for state restore.
func (r *AnswerRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT item_id, value FROM session_answers WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var itemID, value string
		if err := rows.Scan(&itemID, &value); err != nil {
			return nil, err
		}
		answers[itemID] = value
	}
	return answers, rows.Err()
}

// CountByPeriod counts answered items per session, feeding the live monitor.
func (r *AnswerRepository) CountByPeriod(ctx context.Context, periodID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT sa.session_id, COUNT(*)
		 FROM session_answers sa
		 JOIN sessions s ON s.id = sa.session_id
		 WHERE s.period_id = $1 AND sa.value <> ''
		 GROUP BY sa.session_id`, periodID)
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
