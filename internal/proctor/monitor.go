// Package proctor implements the violation-detection state machine that
// watches a running exam session and can force an early, disqualifying
// submission. The monitor is fed client integrity signals plus a periodic
// server tick; all timing decisions use the timestamps handed to it, so the
// machine is fully deterministic under test.
package proctor

import (
	"sync"
	"time"

	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

// Tunables for each sub-rule. Values match the proctoring policy shipped to
// the exam client.
const (
	// TabDebounce collapses repeated hide/blur signals into one violation.
	TabDebounce = 600 * time.Millisecond
	// TabViolationLimit forces submission once reached.
	TabViolationLimit = 3

	// PointerOutGrace is how long the pointer must stay outside the
	// document before it counts as a violation.
	PointerOutGrace = 900 * time.Millisecond
	// PointerRearm is the cooldown before pointer-leave can fire again.
	PointerRearm = 1500 * time.Millisecond

	// FullscreenGrace is the blocking-overlay countdown before a lost
	// fullscreen state forces submission.
	FullscreenGrace = 10_000 * time.Millisecond

	// FaceMissingGrace forces submission after continuous face absence.
	FaceMissingGrace = 10_000 * time.Millisecond
	// FaceViolationTick increments the diagnostic face counter during a
	// continuous absence. Diagnostic only; never disqualifies by itself.
	FaceViolationTick = 4_000 * time.Millisecond
)

// Verdict is the outcome of feeding one signal or tick into the monitor.
type Verdict struct {
	// TabViolationDelta is 1 when this input produced a new tab/pointer
	// violation (the caller persists the cumulative counter).
	TabViolationDelta int
	// ForceSubmit is set at most once per monitor lifetime.
	ForceSubmit bool
	Reason      model.SubmitReason
}

// Monitor holds the per-attempt violation state for one session. One
// instance lives for one client attachment: the tab counter is seeded from
// the persisted store (violations accumulate across reloads) while the face
// counter always starts at zero (a reload forgives transient camera
// glitches from the previous load). Safe for concurrent use: client signals
// arrive on request goroutines while the server tick loop runs duration
// rules in the background.
type Monitor struct {
	mu sync.Mutex

	tabViolations int
	lastTabSignal time.Time

	pointerOutSince time.Time
	pointerRearmAt  time.Time

	fullscreenLostSince time.Time

	faceMissingSince time.Time
	faceViolations   int
	faceTicks        int

	cameraLive bool
	done       bool
}

// NewMonitor creates a monitor seeded with the persisted tab-violation
// count for this token.
func NewMonitor(persistedTabViolations int) *Monitor {
	return &Monitor{
		tabViolations: persistedTabViolations,
		cameraLive:    true,
	}
}

// TabViolations returns the cumulative tab/pointer violation count.
func (m *Monitor) TabViolations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tabViolations
}

// FaceViolations returns the diagnostic face-absence counter for this
// attempt.
func (m *Monitor) FaceViolations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.faceViolations
}

// CameraLive reports the last known camera track state.
func (m *Monitor) CameraLive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cameraLive
}

// Stop marks the session terminal; all further inputs are ignored. Called
// when the session submits through any path.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
}

// HandleSignal feeds one client-reported integrity signal into the machine.
func (m *Monitor) HandleSignal(now time.Time, sig model.ProctorSignal) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handleSignal(now, sig)
}

func (m *Monitor) handleSignal(now time.Time, sig model.ProctorSignal) Verdict {
	if m.done {
		return Verdict{}
	}

	switch sig {
	case model.SignalTabHidden, model.SignalWindowBlur, model.SignalBackNav:
		return m.tabSignal(now)

	case model.SignalPointerLeave:
		if m.pointerOutSince.IsZero() {
			m.pointerOutSince = now
		}
	case model.SignalPointerReturn:
		m.pointerOutSince = time.Time{}

	case model.SignalFullscreenLost:
		if m.fullscreenLostSince.IsZero() {
			m.fullscreenLostSince = now
		}
	case model.SignalFullscreenRestored:
		m.fullscreenLostSince = time.Time{}

	case model.SignalFaceMissing:
		if m.faceMissingSince.IsZero() {
			m.faceMissingSince = now
			m.faceTicks = 0
		}
	case model.SignalFacePresent:
		m.faceMissingSince = time.Time{}
		m.faceTicks = 0

	case model.SignalCameraInactive:
		// Blocks the client UI without escalating; the camera gate is
		// distinct from the face-detection rule.
		m.cameraLive = false
	case model.SignalCameraActive:
		m.cameraLive = true
	}

	return m.tick(now)
}

// tabSignal counts a debounced tab/blur/back-navigation violation.
func (m *Monitor) tabSignal(now time.Time) Verdict {
	if !m.lastTabSignal.IsZero() && now.Sub(m.lastTabSignal) < TabDebounce {
		m.lastTabSignal = now
		return Verdict{}
	}
	m.lastTabSignal = now
	return m.countTabViolation()
}

// countTabViolation increments the shared tab/pointer counter and checks
// the threshold.
func (m *Monitor) countTabViolation() Verdict {
	m.tabViolations++
	v := Verdict{TabViolationDelta: 1}
	if m.tabViolations >= TabViolationLimit {
		m.done = true
		v.ForceSubmit = true
		v.Reason = model.SubmitReasonTabViolations
	}
	return v
}

// Tick evaluates the duration-based rules against now. Called on every
// incoming signal and on the server-side polling cadence, so a rule fires
// even when the client goes quiet after the triggering transition.
func (m *Monitor) Tick(now time.Time) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick(now)
}

func (m *Monitor) tick(now time.Time) Verdict {
	if m.done {
		return Verdict{}
	}

	// Pointer outside the document for the full grace window counts one
	// violation on the shared counter, then re-arms.
	if !m.pointerOutSince.IsZero() && now.Sub(m.pointerOutSince) >= PointerOutGrace && now.After(m.pointerRearmAt) {
		m.pointerRearmAt = now.Add(PointerRearm)
		m.pointerOutSince = time.Time{}
		if v := m.countTabViolation(); v.ForceSubmit {
			return v
		} else if v.TabViolationDelta > 0 {
			// Keep evaluating the remaining rules below but surface
			// the counter change.
			if fv := m.durationRules(now); fv.ForceSubmit {
				fv.TabViolationDelta = v.TabViolationDelta
				return fv
			}
			return v
		}
	}

	return m.durationRules(now)
}

// durationRules checks fullscreen and face-absence timers.
func (m *Monitor) durationRules(now time.Time) Verdict {
	if !m.fullscreenLostSince.IsZero() && now.Sub(m.fullscreenLostSince) >= FullscreenGrace {
		m.done = true
		return Verdict{ForceSubmit: true, Reason: model.SubmitReasonFullscreen}
	}

	if !m.faceMissingSince.IsZero() {
		absent := now.Sub(m.faceMissingSince)

		// Diagnostic counter: one tick per full 4 s of continuous absence.
		for ticks := int(absent / FaceViolationTick); m.faceTicks < ticks; {
			m.faceTicks++
			m.faceViolations++
		}

		if absent >= FaceMissingGrace {
			m.done = true
			return Verdict{ForceSubmit: true, Reason: model.SubmitReasonFaceMissing}
		}
	}

	return Verdict{}
}
