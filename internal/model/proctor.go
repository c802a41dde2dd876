package model

import (
	"time"

	"github.com/google/uuid"
)

// ProctorSignal is a raw integrity signal reported by the exam client.
type ProctorSignal string

const (
	// Discrete transitions.
	SignalTabHidden     ProctorSignal = "tab_hidden"
	SignalWindowBlur    ProctorSignal = "window_blur"
	SignalBackNav       ProctorSignal = "back_navigation"
	SignalPointerLeave  ProctorSignal = "pointer_leave"
	SignalPointerReturn ProctorSignal = "pointer_return"

	// Periodic observations (~180 ms client cadence).
	SignalFullscreenLost     ProctorSignal = "fullscreen_lost"
	SignalFullscreenRestored ProctorSignal = "fullscreen_restored"
	SignalFaceMissing        ProctorSignal = "face_missing"
	SignalFacePresent        ProctorSignal = "face_present"
	SignalCameraInactive     ProctorSignal = "camera_inactive"
	SignalCameraActive       ProctorSignal = "camera_active"
)

// Valid reports whether the signal is one the monitor understands.
func (s ProctorSignal) Valid() bool {
	switch s {
	case SignalTabHidden, SignalWindowBlur, SignalBackNav,
		SignalPointerLeave, SignalPointerReturn,
		SignalFullscreenLost, SignalFullscreenRestored,
		SignalFaceMissing, SignalFacePresent,
		SignalCameraInactive, SignalCameraActive:
		return true
	}
	return false
}

// ViolationEvent is a persisted integrity event for examiner review.
type ViolationEvent struct {
	ID         int64         `json:"id"`
	SessionID  uuid.UUID     `json:"session_id"`
	Signal     ProctorSignal `json:"signal"`
	Detail     string        `json:"detail,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// ProctorEventRequest is the HTTP fallback payload for reporting a signal
// when the WebSocket stream is unavailable.
type ProctorEventRequest struct {
	Signal string `json:"signal" binding:"required"`
	Detail string `json:"detail" binding:"omitempty,max=512"`
}
