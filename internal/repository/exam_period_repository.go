package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// ExamPeriodRepository handles exam period data access.
type ExamPeriodRepository struct {
	pool *pgxpool.Pool
}

// NewExamPeriodRepository creates a new ExamPeriodRepository.
func NewExamPeriodRepository(pool *pgxpool.Pool) *ExamPeriodRepository {
	return &ExamPeriodRepository{pool: pool}
}

// GetByID retrieves a period without its test payload.
func (r *ExamPeriodRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamPeriod, error) {
	p := &model.ExamPeriod{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, open_at, duration_minutes, audio_path, created_at, updated_at
		 FROM exam_periods WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.OpenAt, &p.DurationMinutes, &p.AudioPath, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPayload loads the authored test payload, correct answers included.
func (r *ExamPeriodRepository) GetPayload(ctx context.Context, id uuid.UUID) (*model.TestPayload, error) {
	var raw []byte
	if err := r.pool.QueryRow(ctx,
		`SELECT test_payload FROM exam_periods WHERE id = $1`, id,
	).Scan(&raw); err != nil {
		return nil, err
	}

	payload := &model.TestPayload{}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// List retrieves all periods ordered by opening time, newest first.
func (r *ExamPeriodRepository) List(ctx context.Context) ([]model.ExamPeriod, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, open_at, duration_minutes, audio_path, created_at, updated_at
		 FROM exam_periods ORDER BY open_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []model.ExamPeriod
	for rows.Next() {
		var p model.ExamPeriod
		if err := rows.Scan(&p.ID, &p.Name, &p.OpenAt, &p.DurationMinutes, &p.AudioPath, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// Create inserts a new period with its authored payload.
func (r *ExamPeriodRepository) Create(ctx context.Context, p *model.ExamPeriod, payload *model.TestPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_periods (name, open_at, duration_minutes, audio_path, test_payload)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.OpenAt, p.DurationMinutes, p.AudioPath, raw,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}
