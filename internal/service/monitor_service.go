package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
)

// CandidateProgress is one row of the live monitor table.
type CandidateProgress struct {
	Session       model.Session `json:"session"`
	Answered      int64         `json:"answered"`
	Violations    int64         `json:"violations"`
	TabViolations int           `json:"tab_violations"`
	Presence      string        `json:"presence"`
}

// MonitorService assembles the live progress view for examiners: answered
// counts and violation counts from Postgres, presence and tab counters from
// Redis. The two database fetches run concurrently.
type MonitorService struct {
	sessionRepo   *repository.SessionRepository
	answerRepo    *repository.AnswerRepository
	violationRepo *repository.ViolationRepository
	periodRepo    *repository.ExamPeriodRepository
	rdb           *redis.Client
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(
	sessionRepo *repository.SessionRepository,
	answerRepo *repository.AnswerRepository,
	violationRepo *repository.ViolationRepository,
	periodRepo *repository.ExamPeriodRepository,
	rdb *redis.Client,
) *MonitorService {
	return &MonitorService{
		sessionRepo:   sessionRepo,
		answerRepo:    answerRepo,
		violationRepo: violationRepo,
		periodRepo:    periodRepo,
		rdb:           rdb,
	}
}

// Progress builds the full monitor snapshot for one period.
func (s *MonitorService) Progress(ctx context.Context, periodID uuid.UUID) ([]CandidateProgress, error) {
	period, err := s.periodRepo.GetByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}

	var (
		answered     map[uuid.UUID]int64
		violations   map[uuid.UUID]int64
		answeredErr  error
		violationErr error
		wg           sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		answered, answeredErr = s.answerRepo.CountByPeriod(ctx, periodID)
	}()
	go func() {
		defer wg.Done()
		violations, violationErr = s.violationRepo.CountSince(ctx, periodID, period.OpenAt)
	}()
	wg.Wait()

	// Answered counts are critical; violation counts are best-effort.
	if answeredErr != nil {
		return nil, answeredErr
	}

	progress := make([]CandidateProgress, 0, len(sessions))
	for _, sess := range sessions {
		row := CandidateProgress{
			Session:  sess,
			Answered: answered[sess.ID],
		}
		if violationErr == nil {
			row.Violations = violations[sess.ID]
		}
		if tabs, err := s.rdb.Get(ctx, config.CacheKey.SessionTabViolationsKey(sess.Token)).Int(); err == nil {
			row.TabViolations = tabs
		}
		if presence, err := s.rdb.Get(ctx, config.CacheKey.SessionPresenceKey(sess.Token)).Result(); err == nil {
			row.Presence = presence
		}
		progress = append(progress, row)
	}
	return progress, nil
}

// Subscribe opens the period's live event channel for SSE fan-out. The
// caller owns the subscription and must close it.
func (s *MonitorService) Subscribe(ctx context.Context, periodID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.PeriodMonitorChannel(periodID.String()))
}
