package proctor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TickInterval is the server-side evaluation cadence for duration rules.
const TickInterval = 180 * time.Millisecond

// Submitter routes a forced submission into the single idempotent submit
// path. Implemented by the submission service.
type Submitter interface {
	ForceSubmit(ctx context.Context, token string, reason model.SubmitReason) error
}

// entry binds a live monitor to its session identity.
type entry struct {
	monitor   *Monitor
	sessionID uuid.UUID
	periodID  uuid.UUID
}

// Service owns the live monitors for all attached sessions. Tab violation
// counters live in Redis keyed by token so they survive reloads; face
// counters live only inside the attached Monitor.
type Service struct {
	rdb       *redis.Client
	submitter Submitter
	log       zerolog.Logger

	mu       sync.Mutex
	monitors map[string]*entry
}

// NewService creates the proctoring service. The submitter is attached
// separately because the submission service is constructed later.
func NewService(rdb *redis.Client, log zerolog.Logger) *Service {
	return &Service{
		rdb:      rdb,
		log:      log.With().Str("component", "proctor").Logger(),
		monitors: make(map[string]*entry),
	}
}

// SetSubmitter wires the forced-submission sink.
func (s *Service) SetSubmitter(sub Submitter) { s.submitter = sub }

// Attach creates (or returns) the live monitor for a started session,
// seeding the tab counter from Redis.
func (s *Service) Attach(ctx context.Context, session *model.Session) (*Monitor, error) {
	s.mu.Lock()
	if e, ok := s.monitors[session.Token]; ok {
		s.mu.Unlock()
		return e.monitor, nil
	}
	s.mu.Unlock()

	persisted, err := s.rdb.Get(ctx, config.CacheKey.SessionTabViolationsKey(session.Token)).Int()
	if err != nil && err != redis.Nil {
		return nil, err
	}

	m := NewMonitor(persisted)

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.monitors[session.Token]; ok {
		return e.monitor, nil
	}
	s.monitors[session.Token] = &entry{monitor: m, sessionID: session.ID, periodID: session.PeriodID}
	return m, nil
}

// Detach drops the live monitor, e.g. when the client disconnects. The
// persisted tab counter is left in place for the next attach.
func (s *Service) Detach(token string) {
	s.mu.Lock()
	delete(s.monitors, token)
	s.mu.Unlock()
}

// Release marks the token's monitor terminal and drops it. Called by the
// submission service once a session reaches its terminal state.
func (s *Service) Release(token string) {
	s.mu.Lock()
	if e, ok := s.monitors[token]; ok {
		e.monitor.Stop()
		delete(s.monitors, token)
	}
	s.mu.Unlock()
}

// Signal feeds one client-reported signal into the token's monitor and
// applies the verdict: counter persistence, event recording, and — at most
// once — forced submission.
func (s *Service) Signal(ctx context.Context, session *model.Session, sig model.ProctorSignal, detail string) (*Monitor, Verdict, error) {
	m, err := s.Attach(ctx, session)
	if err != nil {
		return nil, Verdict{}, err
	}

	now := time.Now()
	verdict := m.HandleSignal(now, sig)

	s.recordEvent(ctx, session, sig, detail, now)
	s.applyVerdict(ctx, session.Token, session.PeriodID, m, verdict)
	return m, verdict, nil
}

// Run drives the duration rules on the server cadence so a rule fires even
// when the client stops sending signals after the triggering transition.
// Call in a goroutine; stops when ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.log.Info().Dur("interval", TickInterval).Msg("Proctor tick loop started")
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Proctor tick loop stopped")
			return
		case now := <-ticker.C:
			s.tickAll(ctx, now)
		}
	}
}

func (s *Service) tickAll(ctx context.Context, now time.Time) {
	type pending struct {
		token    string
		periodID uuid.UUID
		monitor  *Monitor
		verdict  Verdict
	}

	s.mu.Lock()
	var fired []pending
	for token, e := range s.monitors {
		if v := e.monitor.Tick(now); v.TabViolationDelta > 0 || v.ForceSubmit {
			fired = append(fired, pending{token: token, periodID: e.periodID, monitor: e.monitor, verdict: v})
		}
	}
	s.mu.Unlock()

	for _, p := range fired {
		s.applyVerdict(ctx, p.token, p.periodID, p.monitor, p.verdict)
	}
}

// applyVerdict persists counter changes and routes forced submissions.
func (s *Service) applyVerdict(ctx context.Context, token string, periodID uuid.UUID, m *Monitor, v Verdict) {
	if v.TabViolationDelta > 0 {
		if err := s.rdb.IncrBy(ctx, config.CacheKey.SessionTabViolationsKey(token), int64(v.TabViolationDelta)).Err(); err != nil {
			s.log.Error().Err(err).Msg("Persist tab violation counter failed")
		}
	}

	if !v.ForceSubmit {
		return
	}

	s.log.Warn().
		Str("reason", string(v.Reason)).
		Int("tab_violations", m.TabViolations()).
		Msg("Forcing submission")

	if s.submitter == nil {
		s.log.Error().Msg("No submitter wired; dropping forced submission")
		return
	}
	if err := s.submitter.ForceSubmit(ctx, token, v.Reason); err != nil {
		s.log.Error().Err(err).Str("reason", string(v.Reason)).Msg("Forced submission failed")
	}
	s.publish(ctx, periodID, map[string]interface{}{
		"type":   "force_submit",
		"reason": string(v.Reason),
	})
}

// recordEvent queues the raw signal for batch persistence and notifies any
// live examiner monitor. Both are best-effort.
func (s *Service) recordEvent(ctx context.Context, session *model.Session, sig model.ProctorSignal, detail string, at time.Time) {
	payload, _ := json.Marshal(map[string]interface{}{
		"session_id": session.ID.String(),
		"signal":     string(sig),
		"detail":     detail,
		"timestamp":  at.Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Msg("Queue violation event failed")
	}

	s.publish(ctx, session.PeriodID, map[string]interface{}{
		"type":       "violation",
		"session_id": session.ID.String(),
		"signal":     string(sig),
	})
}

func (s *Service) publish(ctx context.Context, periodID uuid.UUID, msg map[string]interface{}) {
	payload, _ := json.Marshal(msg)
	_ = s.rdb.Publish(ctx, config.CacheKey.PeriodMonitorChannel(periodID.String()), payload).Err()
}
