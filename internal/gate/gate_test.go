package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var openAt = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestClassifyEdges(t *testing.T) {
	const duration = 90

	cases := []struct {
		name string
		now  time.Time
		want State
	}{
		{"one ms before open", openAt.Add(-time.Millisecond), StateNotYetOpen},
		{"exactly at open", openAt, StateOpen},
		{"mid window", openAt.Add(45 * time.Minute), StateOpen},
		{"exactly at end", openAt.Add(90 * time.Minute), StateOpen},
		{"one ms after end", openAt.Add(90*time.Minute + time.Millisecond), StateExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.now, openAt, duration))
		})
	}
}

func TestResultStatus(t *testing.T) {
	assert.Equal(t, StatusCountdown, (&Result{State: StateNotYetOpen}).Status())
	assert.Equal(t, StatusRunning, (&Result{State: StateOpen}).Status())
	assert.Equal(t, StatusEnded, (&Result{State: StateExpired}).Status())
}

func TestResultRemainingClampsAtZero(t *testing.T) {
	endsAt := openAt.Add(90 * time.Minute)

	r := &Result{Now: openAt, EndsAt: endsAt}
	assert.Equal(t, int64(90*60*1000), r.Remaining())

	r = &Result{Now: endsAt.Add(5 * time.Second), EndsAt: endsAt}
	assert.Equal(t, int64(0), r.Remaining())
}

type fakeSource struct {
	session *model.Session
	period  *model.ExamPeriod
}

func (f *fakeSource) GetByToken(_ context.Context, token string) (*model.Session, error) {
	if f.session == nil || f.session.Token != token {
		return nil, errors.New("no rows")
	}
	return f.session, nil
}

func (f *fakeSource) GetByID(_ context.Context, id uuid.UUID) (*model.ExamPeriod, error) {
	if f.period == nil || f.period.ID != id {
		return nil, errors.New("no rows")
	}
	return f.period, nil
}

func newFakeSource() *fakeSource {
	periodID := uuid.New()
	return &fakeSource{
		session: &model.Session{ID: uuid.New(), Token: "tok-1", PeriodID: periodID},
		period:  &model.ExamPeriod{ID: periodID, OpenAt: openAt, DurationMinutes: 90},
	}
}

func TestCheckUnknownToken(t *testing.T) {
	src := newFakeSource()
	svc := NewService(src, src, nil)

	_, err := svc.Check(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestCheckClassifies(t *testing.T) {
	src := newFakeSource()
	now := openAt.Add(10 * time.Minute)
	svc := NewService(src, src, func() time.Time { return now })

	res, err := svc.Check(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, StateOpen, res.State)
	assert.Equal(t, now, res.Now)
	assert.Equal(t, openAt, res.OpensAt)
	assert.Equal(t, openAt.Add(90*time.Minute), res.EndsAt)
	assert.Equal(t, src.session.ID, res.Session.ID)
}

func TestRequireOpen(t *testing.T) {
	src := newFakeSource()

	cases := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"before window", openAt.Add(-time.Minute), ErrNotYetOpen},
		{"inside window", openAt.Add(time.Minute), nil},
		{"after window", openAt.Add(91 * time.Minute), ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(src, src, func() time.Time { return tc.now })
			res, err := svc.RequireOpen(context.Background(), "tok-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				require.NotNil(t, res)
			} else {
				require.NoError(t, err)
				assert.Equal(t, StateOpen, res.State)
			}
		})
	}
}
