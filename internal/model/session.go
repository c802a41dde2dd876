package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReason tags how a session reached its terminal submitted state.
// Every submission path — manual click, timer expiry, proctoring rules —
// funnels through exactly one of these.
type SubmitReason string

const (
	SubmitReasonManual        SubmitReason = "manual"
	SubmitReasonTimeExpired   SubmitReason = "time_expired"
	SubmitReasonTabViolations SubmitReason = "tab_violations_max"
	SubmitReasonFullscreen    SubmitReason = "disqual_fullscreen_10s"
	SubmitReasonFaceMissing   SubmitReason = "face_missing_10s"
)

// Disqualifies reports whether the reason marks the candidate as disqualified.
func (r SubmitReason) Disqualifies() bool {
	switch r {
	case SubmitReasonTabViolations, SubmitReasonFullscreen, SubmitReasonFaceMissing:
		return true
	}
	return false
}

// Session represents one candidate's attempt at an exam period. The token is
// the sole client-facing identifier and is unique within its period.
// Submitted and Disqualified are write-once flags, never reset.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	Token         string        `json:"-"`
	PeriodID      uuid.UUID     `json:"period_id"`
	CandidateName string        `json:"candidate_name"`
	Submitted     bool          `json:"submitted"`
	Disqualified  bool          `json:"disqualified"`
	SubmitReason  *SubmitReason `json:"submit_reason,omitempty"`
	StartedAt     *time.Time    `json:"started_at,omitempty"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SubmitRequest is the payload for submitting (or force-submitting) answers.
// Answers map item id to the raw client value; multiple-choice values are
// shuffled option indices and are translated back before storage.
type SubmitRequest struct {
	Answers    map[string]string `json:"answers" binding:"required"`
	ClientMeta ClientMeta        `json:"client_meta"`
}

// ClientMeta carries best-effort environment info recorded with a submission.
type ClientMeta struct {
	UserAgent      string `json:"user_agent,omitempty"`
	ScreenWidth    int    `json:"screen_width,omitempty"`
	ScreenHeight   int    `json:"screen_height,omitempty"`
	FullscreenExit bool   `json:"fullscreen_exit,omitempty"`
}

// PresenceRequest is the payload for the periodic presence ping.
type PresenceRequest struct {
	Status string `json:"status" binding:"required,oneof=active idle hidden"`
}
