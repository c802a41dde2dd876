package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/gate"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/random"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrAckRequired means the candidate has not acknowledged the proctoring
// rules yet; the test payload stays withheld until they do.
var ErrAckRequired = errors.New("proctoring acknowledgement required")

// presenceTTL is how long a presence ping stays fresh before the monitor
// shows the candidate as silent.
const presenceTTL = 45 * time.Second

// SessionState is the full state-restore response for one candidate: gate
// status, identity, and — once running and acknowledged — the randomized
// payload plus any saved draft answers.
type SessionState struct {
	Status        gate.ClientStatus   `json:"status"`
	ServerTime    time.Time           `json:"server_time"`
	OpensAt       time.Time           `json:"opens_at"`
	EndsAt        time.Time           `json:"ends_at"`
	RemainingMS   int64               `json:"remaining_ms"`
	PeriodName    string              `json:"period_name"`
	CandidateName string              `json:"candidate_name"`
	Submitted     bool                `json:"submitted"`
	Disqualified  bool                `json:"disqualified"`
	SubmitReason  *model.SubmitReason `json:"submit_reason,omitempty"`
	AckRequired   bool                `json:"ack_required"`
	TabViolations int                 `json:"tab_violations"`
	Payload       *model.TestPayload  `json:"payload,omitempty"`
	Answers       map[string]string   `json:"answers,omitempty"`
}

// SessionService handles the candidate-facing session lifecycle: status and
// state restore, the proctoring acknowledgement, autosave, and presence.
type SessionService struct {
	sessionRepo *repository.SessionRepository
	answerRepo  *repository.AnswerRepository
	content     *ContentService
	gate        *gate.Service
	cfg         *config.Config
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	answerRepo *repository.AnswerRepository,
	content *ContentService,
	gateSvc *gate.Service,
	cfg *config.Config,
	rdb *redis.Client,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		answerRepo:  answerRepo,
		content:     content,
		gate:        gateSvc,
		cfg:         cfg,
		rdb:         rdb,
		log:         log.With().Str("component", "session").Logger(),
	}
}

// State resolves the token to the complete client state. A reload lands here
// and gets back exactly what the candidate saw: same item order, same saved
// answers, same violation count.
func (s *SessionService) State(ctx context.Context, token string) (*SessionState, error) {
	res, err := s.gate.Check(ctx, token)
	if err != nil {
		return nil, err
	}

	state := &SessionState{
		Status:        res.Status(),
		ServerTime:    res.Now,
		OpensAt:       res.OpensAt,
		EndsAt:        res.EndsAt,
		RemainingMS:   res.Remaining(),
		PeriodName:    res.Period.Name,
		CandidateName: res.Session.CandidateName,
		Submitted:     res.Session.Submitted,
		Disqualified:  res.Session.Disqualified,
		SubmitReason:  res.Session.SubmitReason,
	}

	// A terminal session renders the end screen regardless of the window.
	if res.Session.Submitted {
		state.Status = gate.StatusEnded
		return state, nil
	}

	tabs, err := s.rdb.Get(ctx, config.CacheKey.SessionTabViolationsKey(token)).Int()
	if err == nil {
		state.TabViolations = tabs
	}

	if state.Status != gate.StatusRunning {
		return state, nil
	}

	if s.cfg.RequireProctoringAck && !s.acked(ctx, token) {
		state.AckRequired = true
		return state, nil
	}

	if err := s.sessionRepo.Start(ctx, res.Session.ID); err != nil {
		return nil, err
	}

	payload, err := s.content.ClientPayload(ctx, res.Session.PeriodID)
	if err != nil {
		return nil, err
	}
	random.NewPlan(token, payload).Apply(payload)
	state.Payload = payload

	state.Answers = s.restoreAnswers(ctx, token, res.Session.ID)
	return state, nil
}

// Ack records the proctoring acknowledgement. Kept server-side so clearing
// browser storage cannot skip the consent screen on reload.
func (s *SessionService) Ack(ctx context.Context, token string) error {
	return s.rdb.Set(ctx, config.CacheKey.SessionAckKey(token), 1, 0).Err()
}

func (s *SessionService) acked(ctx context.Context, token string) bool {
	n, err := s.rdb.Exists(ctx, config.CacheKey.SessionAckKey(token)).Result()
	return err == nil && n > 0
}

// Autosave writes one draft answer to the Redis hash and queues it for
// durable persistence. The hash is the fast path for state restore; the
// worker flushes the queue to Postgres.
func (s *SessionService) Autosave(ctx context.Context, session *model.Session, itemID, value string) error {
	if err := s.rdb.HSet(ctx, config.CacheKey.SessionAnswersKey(session.Token), itemID, value).Err(); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]string{
		"session_id": session.ID.String(),
		"item_id":    itemID,
		"value":      value,
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Queue draft answer failed")
	}
	return nil
}

// Presence records the candidate's periodic liveness ping with a short TTL;
// an expired key reads as silence on the monitor.
func (s *SessionService) Presence(ctx context.Context, token, status string) error {
	return s.rdb.Set(ctx, config.CacheKey.SessionPresenceKey(token), status, presenceTTL).Err()
}

// restoreAnswers prefers the Redis hash and falls back to the durable rows,
// re-seeding the hash on a cache miss.
func (s *SessionService) restoreAnswers(ctx context.Context, token string, sessionID uuid.UUID) map[string]string {
	key := config.CacheKey.SessionAnswersKey(token)
	answers, err := s.rdb.HGetAll(ctx, key).Result()
	if err == nil && len(answers) > 0 {
		return answers
	}

	answers, err = s.answerRepo.GetBySession(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("Restore answers from store failed")
		return map[string]string{}
	}
	if len(answers) > 0 {
		if err := s.rdb.HSet(ctx, key, answers).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Re-seed answer cache failed")
		}
	}
	return answers
}
