package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// SessionRepository handles candidate session data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, token, period_id, candidate_name, submitted, disqualified,
	 submit_reason, started_at, submitted_at, created_at`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(&s.ID, &s.Token, &s.PeriodID, &s.CandidateName, &s.Submitted,
		&s.Disqualified, &s.SubmitReason, &s.StartedAt, &s.SubmittedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByToken retrieves a session by its access token.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token))
}

// GetByID retrieves a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
}

// Create inserts a new session.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO sessions (token, period_id, candidate_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Token, s.PeriodID, s.CandidateName,
	).Scan(&s.ID, &s.CreatedAt)
}

// Start records the first entry into the exam. Subsequent calls are no-ops,
// so reloads never move the start time.
func (r *SessionRepository) Start(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET started_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND started_at IS NULL`, id)
	return err
}

// MarkSubmitted flips the session to its terminal state atomically. Returns
// false when another request already submitted it, which makes the submit
// path idempotent under concurrent force/manual races.
func (r *SessionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, reason model.SubmitReason, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET submitted = TRUE, disqualified = $2, submit_reason = $3, submitted_at = $4
		 WHERE id = $1 AND submitted = FALSE`,
		id, reason.Disqualifies(), reason, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListByPeriod retrieves all sessions of one exam period for the examiner view.
func (r *SessionRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE period_id = $1 ORDER BY candidate_name`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
