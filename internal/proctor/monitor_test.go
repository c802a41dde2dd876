package proctor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestTabViolationsForceSubmitAtLimit(t *testing.T) {
	m := NewMonitor(0)

	v := m.HandleSignal(t0, model.SignalTabHidden)
	assert.Equal(t, 1, v.TabViolationDelta)
	assert.False(t, v.ForceSubmit)

	v = m.HandleSignal(t0.Add(time.Second), model.SignalWindowBlur)
	assert.Equal(t, 1, v.TabViolationDelta)
	assert.False(t, v.ForceSubmit)

	v = m.HandleSignal(t0.Add(2*time.Second), model.SignalBackNav)
	assert.Equal(t, 1, v.TabViolationDelta)
	assert.True(t, v.ForceSubmit)
	assert.Equal(t, model.SubmitReasonTabViolations, v.Reason)
	assert.Equal(t, 3, m.TabViolations())
}

func TestTabSignalsStopAfterForce(t *testing.T) {
	m := NewMonitor(0)
	for i := 0; i < 3; i++ {
		m.HandleSignal(t0.Add(time.Duration(i)*time.Second), model.SignalTabHidden)
	}

	v := m.HandleSignal(t0.Add(10*time.Second), model.SignalTabHidden)
	assert.Equal(t, Verdict{}, v)
	assert.Equal(t, 3, m.TabViolations())
}

func TestTabDebounceCollapsesBursts(t *testing.T) {
	m := NewMonitor(0)

	v := m.HandleSignal(t0, model.SignalTabHidden)
	assert.Equal(t, 1, v.TabViolationDelta)

	// A hide immediately followed by a blur is one violation, not two.
	v = m.HandleSignal(t0.Add(200*time.Millisecond), model.SignalWindowBlur)
	assert.Equal(t, 0, v.TabViolationDelta)
	assert.Equal(t, 1, m.TabViolations())

	// The debounce window slides from the last signal, not the last counted
	// violation.
	v = m.HandleSignal(t0.Add(700*time.Millisecond), model.SignalTabHidden)
	assert.Equal(t, 0, v.TabViolationDelta)

	v = m.HandleSignal(t0.Add(1400*time.Millisecond), model.SignalTabHidden)
	assert.Equal(t, 1, v.TabViolationDelta)
	assert.Equal(t, 2, m.TabViolations())
}

func TestPersistedCountSurvivesReload(t *testing.T) {
	m := NewMonitor(2)

	v := m.HandleSignal(t0, model.SignalTabHidden)
	assert.True(t, v.ForceSubmit)
	assert.Equal(t, model.SubmitReasonTabViolations, v.Reason)
	assert.Equal(t, 3, m.TabViolations())
}

func TestPointerLeaveGraceAndRearm(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalPointerLeave)

	// Inside the grace window nothing fires.
	v := m.Tick(t0.Add(899 * time.Millisecond))
	assert.Equal(t, 0, v.TabViolationDelta)

	// Full grace elapsed: one violation on the shared counter.
	v = m.Tick(t0.Add(900 * time.Millisecond))
	assert.Equal(t, 1, v.TabViolationDelta)
	assert.Equal(t, 1, m.TabViolations())

	// Re-arm window: leaving again right away cannot fire yet.
	m.HandleSignal(t0.Add(1000*time.Millisecond), model.SignalPointerLeave)
	v = m.Tick(t0.Add(2300 * time.Millisecond))
	assert.Equal(t, 0, v.TabViolationDelta)

	// Past the re-arm point the rule fires again.
	v = m.Tick(t0.Add(2500 * time.Millisecond))
	assert.Equal(t, 1, v.TabViolationDelta)
	assert.Equal(t, 2, m.TabViolations())
}

func TestPointerReturnCancelsGrace(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalPointerLeave)
	m.HandleSignal(t0.Add(500*time.Millisecond), model.SignalPointerReturn)

	v := m.Tick(t0.Add(5 * time.Second))
	assert.Equal(t, 0, v.TabViolationDelta)
	assert.Equal(t, 0, m.TabViolations())
}

func TestFullscreenLostForcesAfterGrace(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalFullscreenLost)

	v := m.Tick(t0.Add(9999 * time.Millisecond))
	assert.False(t, v.ForceSubmit)

	v = m.Tick(t0.Add(10001 * time.Millisecond))
	require.True(t, v.ForceSubmit)
	assert.Equal(t, model.SubmitReasonFullscreen, v.Reason)
}

func TestFullscreenRestoredResetsTimer(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalFullscreenLost)
	m.HandleSignal(t0.Add(9*time.Second), model.SignalFullscreenRestored)

	v := m.Tick(t0.Add(30 * time.Second))
	assert.False(t, v.ForceSubmit)

	// Losing fullscreen again starts a fresh countdown.
	m.HandleSignal(t0.Add(31*time.Second), model.SignalFullscreenLost)
	v = m.Tick(t0.Add(40 * time.Second))
	assert.False(t, v.ForceSubmit)
	v = m.Tick(t0.Add(41*time.Second + time.Millisecond))
	assert.True(t, v.ForceSubmit)
}

func TestFaceMissingDiagnosticTicksThenForce(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalFaceMissing)
	assert.Equal(t, 0, m.FaceViolations())

	m.Tick(t0.Add(4 * time.Second))
	assert.Equal(t, 1, m.FaceViolations())

	m.Tick(t0.Add(8 * time.Second))
	assert.Equal(t, 2, m.FaceViolations())

	v := m.Tick(t0.Add(10 * time.Second))
	require.True(t, v.ForceSubmit)
	assert.Equal(t, model.SubmitReasonFaceMissing, v.Reason)
}

func TestFaceTicksNotDoubleCountedAcrossPolls(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalFaceMissing)

	// Polling every 180 ms must not re-count the same 4 s interval.
	for d := 180 * time.Millisecond; d < 9*time.Second; d += 180 * time.Millisecond {
		m.Tick(t0.Add(d))
	}
	assert.Equal(t, 2, m.FaceViolations())
}

func TestFacePresentResetsAbsence(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalFaceMissing)
	m.Tick(t0.Add(4 * time.Second))
	m.HandleSignal(t0.Add(5*time.Second), model.SignalFacePresent)

	// The diagnostic count keeps its history but no force fires later.
	v := m.Tick(t0.Add(30 * time.Second))
	assert.False(t, v.ForceSubmit)
	assert.Equal(t, 1, m.FaceViolations())
}

func TestCameraInactiveNeverForces(t *testing.T) {
	m := NewMonitor(0)

	m.HandleSignal(t0, model.SignalCameraInactive)
	assert.False(t, m.CameraLive())

	v := m.Tick(t0.Add(time.Hour))
	assert.False(t, v.ForceSubmit)
	assert.Equal(t, 0, m.TabViolations())

	m.HandleSignal(t0.Add(time.Hour), model.SignalCameraActive)
	assert.True(t, m.CameraLive())
}

func TestStopSilencesMonitor(t *testing.T) {
	m := NewMonitor(0)
	m.HandleSignal(t0, model.SignalFullscreenLost)
	m.Stop()

	v := m.Tick(t0.Add(time.Minute))
	assert.Equal(t, Verdict{}, v)
	v = m.HandleSignal(t0.Add(time.Minute), model.SignalTabHidden)
	assert.Equal(t, Verdict{}, v)
}

func TestSignalsAndTicksFromSeparateGoroutines(t *testing.T) {
	// Client signals arrive on request goroutines while the server tick
	// loop polls the same monitor. The counter must never exceed the
	// limit and the forced submission must fire exactly once.
	m := NewMonitor(0)

	var wg sync.WaitGroup
	var forced int32

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			v := m.HandleSignal(t0.Add(time.Duration(i)*time.Second), model.SignalTabHidden)
			if v.ForceSubmit {
				atomic.AddInt32(&forced, 1)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			v := m.Tick(t0.Add(time.Duration(i) * 50 * time.Millisecond))
			if v.ForceSubmit {
				atomic.AddInt32(&forced, 1)
			}
			_ = m.TabViolations()
			_ = m.CameraLive()
		}
	}()
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&forced))
	assert.Equal(t, TabViolationLimit, m.TabViolations())
}
