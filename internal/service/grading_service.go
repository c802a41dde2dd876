package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/grading"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// SessionResult combines a session with its grading record for the examiner
// results view.
type SessionResult struct {
	Session model.Session        `json:"session"`
	Grade   *model.QuestionGrade `json:"grade,omitempty"`
}

// GradingService handles examiner-side grading: human scores, result
// listings, and period regrades.
type GradingService struct {
	sessionRepo *repository.SessionRepository
	gradeRepo   *repository.GradeRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(
	sessionRepo *repository.SessionRepository,
	gradeRepo *repository.GradeRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *GradingService {
	return &GradingService{
		sessionRepo: sessionRepo,
		gradeRepo:   gradeRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "grading").Logger(),
	}
}

// SetHumanScores stores examiner speaking/writing scores and recomputes the
// blended total. Recomputation always starts from the stored objective
// score, so repeated edits never drift.
func (s *GradingService) SetHumanScores(ctx context.Context, sessionID uuid.UUID, req *model.HumanScoresRequest) (*model.QuestionGrade, error) {
	g, err := s.gradeRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if req.SpeakingGrade != nil {
		g.SpeakingGrade = req.SpeakingGrade
	}
	if req.WritingGrade != nil {
		g.WritingGrade = req.WritingGrade
	}

	total := grading.Blend(g.ObjectiveEarned, g.ObjectiveMax, g.SpeakingGrade, g.WritingGrade)
	g.TotalGrade = &total

	if err := s.gradeRepo.UpdateHumanScores(ctx, sessionID, g.SpeakingGrade, g.WritingGrade, total); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("total", total).
		Msg("Human scores recorded")
	return g, nil
}

// Results lists every session of a period with its grading record.
func (s *GradingService) Results(ctx context.Context, periodID uuid.UUID) ([]SessionResult, error) {
	sessions, err := s.sessionRepo.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	results := make([]SessionResult, 0, len(sessions))
	for _, sess := range sessions {
		r := SessionResult{Session: sess}
		if g, err := s.gradeRepo.GetBySession(ctx, sess.ID); err == nil {
			r.Grade = g
		}
		results = append(results, r)
	}
	return results, nil
}

// Result returns one session's grading record.
func (s *GradingService) Result(ctx context.Context, sessionID uuid.UUID) (*model.QuestionGrade, error) {
	return s.gradeRepo.GetBySession(ctx, sessionID)
}

// EnqueueRegrade queues a full objective rescore of the period, picked up by
// the grading worker. Used after an answer key correction.
func (s *GradingService) EnqueueRegrade(ctx context.Context, periodID uuid.UUID) error {
	payload, _ := json.Marshal(map[string]string{"period_id": periodID.String()})
	if err := s.rdb.RPush(ctx, config.WorkerKey.RegradeQueue, payload).Err(); err != nil {
		return err
	}
	s.log.Info().Str("period_id", periodID.String()).Msg("Regrade queued")
	return nil
}
