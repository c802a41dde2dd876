package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/gate"
	"github.com/mariosrafail/english4sp-sub000/internal/grading"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/random"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrAlreadySubmitted means the session already reached its terminal state.
// Submission is write-once; every later attempt gets this error.
var ErrAlreadySubmitted = errors.New("session already submitted")

// SessionStore is the session persistence needed by submissions.
type SessionStore interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID, reason model.SubmitReason, at time.Time) (bool, error)
}

// GradeStore persists the grading record created at submission.
type GradeStore interface {
	CreateOnSubmit(ctx context.Context, g *model.QuestionGrade) error
}

// ContentSource provides the authored payload for scoring.
type ContentSource interface {
	AuthoredPayload(ctx context.Context, periodID uuid.UUID) (*model.TestPayload, error)
}

// MonitorRegistry releases a session's live proctoring monitor.
type MonitorRegistry interface {
	Release(token string)
}

// SubmissionService owns the single submit path. Manual clicks, timer
// expiry, and proctoring rules all funnel through Submit; the session row's
// conditional update decides the winner when paths race.
type SubmissionService struct {
	sessions SessionStore
	grades   GradeStore
	content  ContentSource
	gate     *gate.Service
	monitors MonitorRegistry
	rdb      *redis.Client
	log      zerolog.Logger
	now      func() time.Time
}

// NewSubmissionService creates a new SubmissionService. monitors may be nil
// in tests; now may be nil, in which case time.Now is used.
func NewSubmissionService(
	sessions SessionStore,
	grades GradeStore,
	content ContentSource,
	gateSvc *gate.Service,
	monitors MonitorRegistry,
	rdb *redis.Client,
	log zerolog.Logger,
	now func() time.Time,
) *SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &SubmissionService{
		sessions: sessions,
		grades:   grades,
		content:  content,
		gate:     gateSvc,
		monitors: monitors,
		rdb:      rdb,
		log:      log.With().Str("component", "submission").Logger(),
		now:      now,
	}
}

// Submit finalizes the session with the given answers. When answers is nil
// (forced submissions arrive without a payload) the autosaved drafts stand
// in. meta is best-effort client environment info and may be nil. Exactly
// one caller wins; everyone else gets ErrAlreadySubmitted alongside the
// session's recorded terminal state.
func (s *SubmissionService) Submit(ctx context.Context, token string, answers map[string]string, meta *model.ClientMeta, reason model.SubmitReason) (*model.Session, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, gate.ErrTokenNotFound
	}
	if session.Submitted {
		return session, ErrAlreadySubmitted
	}

	reason, err = s.checkWindow(ctx, token, reason)
	if err != nil {
		return session, err
	}

	if answers == nil {
		answers = s.draftAnswers(ctx, token)
	}

	payload, err := s.content.AuthoredPayload(ctx, session.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("load authored payload: %w", err)
	}

	plan := random.NewPlan(token, payload)
	canonical := grading.Canonicalize(payload, plan, answers)
	earned, max := grading.ObjectiveScore(payload, canonical)
	total := grading.Blend(earned, max, nil, nil)

	now := s.now()
	won, err := s.sessions.MarkSubmitted(ctx, session.ID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if !won {
		// Another path finished first between our read and the update.
		// Re-read so the caller sees the winner's reason and timestamp,
		// not the stale pre-submit row.
		if fresh, ferr := s.sessions.GetByToken(ctx, token); ferr == nil {
			session = fresh
		}
		return session, ErrAlreadySubmitted
	}

	rawAnswers, _ := json.Marshal(canonical)
	grade := &model.QuestionGrade{
		SessionID:       session.ID,
		Answers:         rawAnswers,
		WritingText:     grading.WritingText(payload, canonical),
		ObjectiveEarned: earned,
		ObjectiveMax:    max,
		TotalGrade:      &total,
	}
	if err := s.grades.CreateOnSubmit(ctx, grade); err != nil {
		// The session is already terminal; surface the error but do not
		// roll back the submission.
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Store grading record failed")
	}

	session.Submitted = true
	session.Disqualified = reason.Disqualifies()
	session.SubmitReason = &reason
	session.SubmittedAt = &now

	s.cleanup(ctx, session, reason)

	evt := s.log.Info().
		Str("session_id", session.ID.String()).
		Str("reason", string(reason)).
		Int("objective_earned", earned).
		Int("objective_max", max)
	if meta != nil && meta.UserAgent != "" {
		evt = evt.Str("user_agent", meta.UserAgent)
	}
	evt.Msg("Session submitted")
	return session, nil
}

// ForceSubmit finalizes the session from a proctoring verdict, using the
// autosaved drafts as the answers.
func (s *SubmissionService) ForceSubmit(ctx context.Context, token string, reason model.SubmitReason) error {
	_, err := s.Submit(ctx, token, nil, nil, reason)
	if errors.Is(err, ErrAlreadySubmitted) {
		return nil
	}
	return err
}

// checkWindow re-validates the exam window on the server. Disqualifying
// reasons bypass the check entirely (the rule already fired inside the
// window); a manual submit that lands after expiry is recorded as the
// timer's doing.
func (s *SubmissionService) checkWindow(ctx context.Context, token string, reason model.SubmitReason) (model.SubmitReason, error) {
	if reason.Disqualifies() {
		return reason, nil
	}

	res, err := s.gate.Check(ctx, token)
	if err != nil {
		return reason, err
	}
	switch res.State {
	case gate.StateNotYetOpen:
		return reason, gate.ErrNotYetOpen
	case gate.StateExpired:
		return model.SubmitReasonTimeExpired, nil
	}
	return reason, nil
}

// draftAnswers pulls the autosaved answers for a forced submission. Missing
// or unreachable drafts mean an empty submission, never a failure.
func (s *SubmissionService) draftAnswers(ctx context.Context, token string) map[string]string {
	if s.rdb == nil {
		return map[string]string{}
	}
	drafts, err := s.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(token)).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Load autosaved drafts failed")
		return map[string]string{}
	}
	return drafts
}

// cleanup tears down the session's live state after a won submission.
func (s *SubmissionService) cleanup(ctx context.Context, session *model.Session, reason model.SubmitReason) {
	if s.monitors != nil {
		s.monitors.Release(session.Token)
	}
	if s.rdb == nil {
		return
	}

	s.rdb.Del(ctx,
		config.CacheKey.SessionAnswersKey(session.Token),
		config.CacheKey.SessionPresenceKey(session.Token))

	msg, _ := json.Marshal(map[string]interface{}{
		"type":         "submitted",
		"session_id":   session.ID.String(),
		"reason":       string(reason),
		"disqualified": reason.Disqualifies(),
	})
	_ = s.rdb.Publish(ctx, config.CacheKey.PeriodMonitorChannel(session.PeriodID.String()), msg).Err()
}
