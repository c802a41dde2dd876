// Package gate classifies every request against the server-authoritative
// exam window. The window is always derived from the owning exam period at
// request time; nothing from a prior response is trusted.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// ErrTokenNotFound means no session matches the presented token.
var ErrTokenNotFound = errors.New("no session for token")

// State is the strict gate classification of a moment against a window.
type State string

const (
	StateNotYetOpen State = "not_yet_open"
	StateOpen       State = "open"
	StateExpired    State = "expired"
)

// ClientStatus is the relaxed status surfaced on read endpoints so the
// client can render a live countdown before the window opens.
type ClientStatus string

const (
	StatusCountdown ClientStatus = "countdown"
	StatusRunning   ClientStatus = "running"
	StatusEnded     ClientStatus = "ended"
)

// Classify places now inside, before, or after the window
// [openAt, openAt + durationMinutes].
func Classify(now, openAt time.Time, durationMinutes int) State {
	if now.Before(openAt) {
		return StateNotYetOpen
	}
	endAt := openAt.Add(time.Duration(durationMinutes) * time.Minute)
	if now.After(endAt) {
		return StateExpired
	}
	return StateOpen
}

// SessionSource resolves a session by its access token.
type SessionSource interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

// PeriodSource resolves an exam period by id.
type PeriodSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamPeriod, error)
}

// Result is the full gate decision for one request.
type Result struct {
	Session *model.Session
	Period  *model.ExamPeriod
	State   State
	Now     time.Time
	OpensAt time.Time
	EndsAt  time.Time
}

// Status maps the strict state to the relaxed client-facing status.
func (r *Result) Status() ClientStatus {
	switch r.State {
	case StateNotYetOpen:
		return StatusCountdown
	case StateExpired:
		return StatusEnded
	default:
		return StatusRunning
	}
}

// Remaining returns the milliseconds left in the window, clamped at zero.
func (r *Result) Remaining() int64 {
	ms := r.EndsAt.Sub(r.Now).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// Service resolves tokens to gate decisions.
type Service struct {
	sessions SessionSource
	periods  PeriodSource
	now      func() time.Time
}

// NewService creates a gate service over the given sources. now may be nil,
// in which case time.Now is used.
func NewService(sessions SessionSource, periods PeriodSource, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{sessions: sessions, periods: periods, now: now}
}

// Check resolves the token's session and period and classifies the current
// server time against the period window. Returns ErrTokenNotFound for
// unknown tokens.
func (s *Service) Check(ctx context.Context, token string) (*Result, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, ErrTokenNotFound
	}

	period, err := s.periods.GetByID(ctx, session.PeriodID)
	if err != nil {
		return nil, fmt.Errorf("resolve exam period: %w", err)
	}

	now := s.now()
	return &Result{
		Session: session,
		Period:  period,
		State:   Classify(now, period.OpenAt, period.DurationMinutes),
		Now:     now,
		OpensAt: period.OpenAt,
		EndsAt:  period.EndAt(),
	}, nil
}

// RequireOpen is the strict variant used by every mutating endpoint: it
// fails unless the window is currently open.
func (s *Service) RequireOpen(ctx context.Context, token string) (*Result, error) {
	res, err := s.Check(ctx, token)
	if err != nil {
		return nil, err
	}
	switch res.State {
	case StateNotYetOpen:
		return res, ErrNotYetOpen
	case StateExpired:
		return res, ErrExpired
	}
	return res, nil
}

// Window errors returned by RequireOpen.
var (
	ErrNotYetOpen = errors.New("exam window not yet open")
	ErrExpired    = errors.New("exam window expired")
)
