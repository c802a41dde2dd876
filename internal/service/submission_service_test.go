package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/gate"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var submitOpenAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// fakeStores backs every store interface the submission path touches, with a
// MarkSubmitted that mimics the database's conditional update.
type fakeStores struct {
	mu      sync.Mutex
	session *model.Session
	period  *model.ExamPeriod
	payload *model.TestPayload
	grades  []*model.QuestionGrade

	released []string
}

func (f *fakeStores) GetByToken(_ context.Context, token string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil || f.session.Token != token {
		return nil, gate.ErrTokenNotFound
	}
	s := *f.session
	return &s, nil
}

func (f *fakeStores) MarkSubmitted(_ context.Context, id uuid.UUID, reason model.SubmitReason, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session.ID != id || f.session.Submitted {
		return false, nil
	}
	f.session.Submitted = true
	f.session.Disqualified = reason.Disqualifies()
	f.session.SubmitReason = &reason
	f.session.SubmittedAt = &at
	return true, nil
}

func (f *fakeStores) GetByID(_ context.Context, id uuid.UUID) (*model.ExamPeriod, error) {
	return f.period, nil
}

func (f *fakeStores) CreateOnSubmit(_ context.Context, g *model.QuestionGrade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.grades {
		if existing.SessionID == g.SessionID {
			return nil // conflict: first row wins
		}
	}
	f.grades = append(f.grades, g)
	return nil
}

func (f *fakeStores) AuthoredPayload(_ context.Context, _ uuid.UUID) (*model.TestPayload, error) {
	return f.payload, nil
}

func (f *fakeStores) Release(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, token)
}

func newSubmitFixture(now time.Time) (*SubmissionService, *fakeStores) {
	periodID := uuid.New()
	stores := &fakeStores{
		session: &model.Session{ID: uuid.New(), Token: "tok-1", PeriodID: periodID},
		period:  &model.ExamPeriod{ID: periodID, OpenAt: submitOpenAt, DurationMinutes: 90},
		payload: &model.TestPayload{
			Sections: []model.Section{
				{
					ID:   "sec-1",
					Kind: model.SectionReading,
					Items: []model.Item{
						{ID: "q1", Type: model.ItemMultipleChoice, Options: []string{"a", "b"}, Points: 2, Correct: "A"},
						{ID: "q2", Type: model.ItemShortAnswer, Points: 2, Correct: "paris"},
					},
				},
			},
		},
	}
	clock := func() time.Time { return now }
	gateSvc := gate.NewService(stores, stores, clock)
	svc := NewSubmissionService(stores, stores, stores, gateSvc, stores, nil, zerolog.Nop(), clock)
	return svc, stores
}

func TestSubmitWithinWindow(t *testing.T) {
	now := submitOpenAt.Add(30 * time.Minute)
	svc, stores := newSubmitFixture(now)

	session, err := svc.Submit(context.Background(), "tok-1",
		map[string]string{"q1": "0", "q2": " Paris "}, nil, model.SubmitReasonManual)
	require.NoError(t, err)

	assert.True(t, session.Submitted)
	assert.False(t, session.Disqualified)
	assert.Equal(t, model.SubmitReasonManual, *session.SubmitReason)
	assert.Equal(t, now, *session.SubmittedAt)

	require.Len(t, stores.grades, 1)
	g := stores.grades[0]
	assert.Equal(t, 4, g.ObjectiveEarned)
	assert.Equal(t, 4, g.ObjectiveMax)

	var canonical map[string]string
	require.NoError(t, json.Unmarshal(g.Answers, &canonical))
	assert.Equal(t, map[string]string{"q1": "A", "q2": "Paris"}, canonical)

	assert.Equal(t, []string{"tok-1"}, stores.released)
}

func TestSubmitUnknownToken(t *testing.T) {
	svc, _ := newSubmitFixture(submitOpenAt.Add(time.Minute))
	_, err := svc.Submit(context.Background(), "nope", nil, nil, model.SubmitReasonManual)
	assert.ErrorIs(t, err, gate.ErrTokenNotFound)
}

func TestSubmitSecondAttemptLoses(t *testing.T) {
	svc, stores := newSubmitFixture(submitOpenAt.Add(30 * time.Minute))

	_, err := svc.Submit(context.Background(), "tok-1", map[string]string{}, nil, model.SubmitReasonManual)
	require.NoError(t, err)

	// The loser still receives the recorded terminal state, never the
	// stale pre-submit row.
	session, err := svc.Submit(context.Background(), "tok-1", map[string]string{}, nil, model.SubmitReasonManual)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	require.NotNil(t, session)
	assert.True(t, session.Submitted)
	require.NotNil(t, session.SubmitReason)
	assert.Equal(t, model.SubmitReasonManual, *session.SubmitReason)
	assert.NotNil(t, session.SubmittedAt)
	assert.Len(t, stores.grades, 1)
}

func TestSubmitBeforeWindowOpens(t *testing.T) {
	svc, stores := newSubmitFixture(submitOpenAt.Add(-time.Minute))

	_, err := svc.Submit(context.Background(), "tok-1", map[string]string{}, nil, model.SubmitReasonManual)
	assert.ErrorIs(t, err, gate.ErrNotYetOpen)
	assert.False(t, stores.session.Submitted)
}

func TestManualSubmitAfterExpiryBecomesTimeExpired(t *testing.T) {
	svc, _ := newSubmitFixture(submitOpenAt.Add(91 * time.Minute))

	session, err := svc.Submit(context.Background(), "tok-1", map[string]string{}, nil, model.SubmitReasonManual)
	require.NoError(t, err)
	assert.Equal(t, model.SubmitReasonTimeExpired, *session.SubmitReason)
	assert.False(t, session.Disqualified)
}

func TestDisqualifyingReasonBypassesWindow(t *testing.T) {
	// A proctoring rule that fired just before expiry may land after it;
	// the recorded reason stays the rule's.
	svc, _ := newSubmitFixture(submitOpenAt.Add(91 * time.Minute))

	session, err := svc.Submit(context.Background(), "tok-1", nil, nil, model.SubmitReasonTabViolations)
	require.NoError(t, err)
	assert.Equal(t, model.SubmitReasonTabViolations, *session.SubmitReason)
	assert.True(t, session.Disqualified)
}

func TestForceSubmitToleratesAlreadySubmitted(t *testing.T) {
	svc, _ := newSubmitFixture(submitOpenAt.Add(30 * time.Minute))

	_, err := svc.Submit(context.Background(), "tok-1", map[string]string{}, nil, model.SubmitReasonManual)
	require.NoError(t, err)

	// The racing forced path reports success; the session stays manual.
	err = svc.ForceSubmit(context.Background(), "tok-1", model.SubmitReasonFullscreen)
	assert.NoError(t, err)
}

func TestConcurrentSubmitsSingleWinner(t *testing.T) {
	svc, stores := newSubmitFixture(submitOpenAt.Add(30 * time.Minute))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	sessions := make([]*model.Session, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], errs[i] = svc.Submit(context.Background(), "tok-1", map[string]string{}, nil, model.SubmitReasonManual)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrAlreadySubmitted)
		}
		// Winner or loser, every caller observes the terminal row.
		if assert.NotNil(t, sessions[i]) {
			assert.True(t, sessions[i].Submitted)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, stores.grades, 1)
}
