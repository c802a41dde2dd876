package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// GradeRepository handles grading record data access.
type GradeRepository struct {
	pool *pgxpool.Pool
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(pool *pgxpool.Pool) *GradeRepository {
	return &GradeRepository{pool: pool}
}

// CreateOnSubmit stores the canonical answers and objective score at
// submission time. A conflict means the record already exists from an
// earlier submit attempt; the original row wins.
func (r *GradeRepository) CreateOnSubmit(ctx context.Context, g *model.QuestionGrade) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO question_grades
		   (session_id, answers, writing_text, objective_earned, objective_max, total_grade)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO NOTHING`,
		g.SessionID, g.Answers, g.WritingText, g.ObjectiveEarned, g.ObjectiveMax, g.TotalGrade)
	return err
}

// GetBySession retrieves the grading record for one session.
func (r *GradeRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.QuestionGrade, error) {
	g := &model.QuestionGrade{}
	err := r.pool.QueryRow(ctx,
		`SELECT session_id, answers, writing_text, objective_earned, objective_max,
		        speaking_grade, writing_grade, total_grade, graded_at, updated_at
		 FROM question_grades WHERE session_id = $1`, sessionID,
	).Scan(&g.SessionID, &g.Answers, &g.WritingText, &g.ObjectiveEarned, &g.ObjectiveMax,
		&g.SpeakingGrade, &g.WritingGrade, &g.TotalGrade, &g.GradedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateHumanScores stores examiner scores and the recomputed total.
func (r *GradeRepository) UpdateHumanScores(ctx context.Context, sessionID uuid.UUID, speaking, writing *int, total int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE question_grades
		 SET speaking_grade = $2, writing_grade = $3, total_grade = $4,
		     graded_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		 WHERE session_id = $1`,
		sessionID, speaking, writing, total)
	return err
}

// UpdateObjective replaces the objective score after a regrade and stores
// the recomputed total.
func (r *GradeRepository) UpdateObjective(ctx context.Context, sessionID uuid.UUID, earned, max, total int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE question_grades
		 SET objective_earned = $2, objective_max = $3, total_grade = $4,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE session_id = $1`,
		sessionID, earned, max, total)
	return err
}

// ListByPeriod streams every grading record of a period, used by the
// regrade worker to rescore in bulk.
func (r *GradeRepository) ListByPeriod(ctx context.Context, periodID uuid.UUID) ([]model.QuestionGrade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT qg.session_id, qg.answers, qg.writing_text, qg.objective_earned, qg.objective_max,
		        qg.speaking_grade, qg.writing_grade, qg.total_grade, qg.graded_at, qg.updated_at
		 FROM question_grades qg
		 JOIN sessions s ON s.id = qg.session_id
		 WHERE s.period_id = $1`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.QuestionGrade
	for rows.Next() {
		var g model.QuestionGrade
		if err := rows.Scan(&g.SessionID, &g.Answers, &g.WritingText, &g.ObjectiveEarned, &g.ObjectiveMax,
			&g.SpeakingGrade, &g.WritingGrade, &g.TotalGrade, &g.GradedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// BulkUpdateObjective rewrites objective and total scores for many sessions
// in one statement.
func (r *GradeRepository) BulkUpdateObjective(ctx context.Context, ids []uuid.UUID, earned, max, totals []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE question_grades AS qg
		 SET objective_earned = u.earned,
		     objective_max = u.max,
		     total_grade = u.total,
		     updated_at = CURRENT_TIMESTAMP
		 FROM UNNEST($1::uuid[], $2::int[], $3::int[], $4::int[])
		   AS u(session_id, earned, max, total)
		 WHERE qg.session_id = u.session_id`,
		ids, earned, max, totals)
	return err
}
