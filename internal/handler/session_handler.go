package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mariosrafail/english4sp-sub000/internal/gate"
	"github.com/mariosrafail/english4sp-sub000/internal/middleware"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/proctor"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
	"github.com/mariosrafail/english4sp-sub000/internal/validator"
)

// SessionHandler handles the candidate-facing session endpoints.
type SessionHandler struct {
	sessionService    *service.SessionService
	submissionService *service.SubmissionService
	proctorService    *proctor.Service
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	sessionService *service.SessionService,
	submissionService *service.SubmissionService,
	proctorService *proctor.Service,
) *SessionHandler {
	return &SessionHandler{
		sessionService:    sessionService,
		submissionService: submissionService,
		proctorService:    proctorService,
	}
}

// State godoc
// GET /api/v1/exam/state
// The single state-restore endpoint: gate status plus, once running, the
// randomized payload and saved answers.
func (h *SessionHandler) State(c *gin.Context) {
	session := middleware.GetSession(c)

	state, err := h.sessionService.State(c.Request.Context(), session.Token)
	if err != nil {
		failGate(c, err)
		return
	}
	c.Set(response.ContextKeyGateStatus, string(state.Status))
	response.Success(c, http.StatusOK, state)
}

// Ack godoc
// POST /api/v1/exam/ack
func (h *SessionHandler) Ack(c *gin.Context) {
	session := middleware.GetSession(c)

	if err := h.sessionService.Ack(c.Request.Context(), session.Token); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"acknowledged": true})
}

// Presence godoc
// POST /api/v1/exam/presence
func (h *SessionHandler) Presence(c *gin.Context) {
	session := middleware.GetSession(c)

	var req model.PresenceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.Presence(c.Request.Context(), session.Token, req.Status); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": req.Status})
}

// ProctorEvent godoc
// POST /api/v1/exam/proctor-event
// HTTP fallback for reporting integrity signals when the WebSocket stream
// is down.
func (h *SessionHandler) ProctorEvent(c *gin.Context) {
	session := middleware.GetSession(c)

	var req model.ProctorEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sig := model.ProctorSignal(req.Signal)
	if !sig.Valid() {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	monitor, verdict, err := h.proctorService.Signal(c.Request.Context(), session, sig, req.Detail)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"tab_violations": monitor.TabViolations(),
		"force_submit":   verdict.ForceSubmit,
		"reason":         verdict.Reason,
	})
}

// Submit godoc
// POST /api/v1/exam/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	session := middleware.GetSession(c)

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	submitted, err := h.submissionService.Submit(c.Request.Context(), session.Token, req.Answers, &req.ClientMeta, model.SubmitReasonManual)
	if errors.Is(err, service.ErrAlreadySubmitted) {
		// Submission is write-once and idempotent: a repeat submit gets
		// the recorded terminal state, same as the winning call.
		response.Success(c, http.StatusOK, submitted)
		return
	}
	if err != nil {
		failGate(c, err)
		return
	}
	response.Success(c, http.StatusOK, submitted)
}

// failGate maps gate and submission errors onto the API error taxonomy.
func failGate(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gate.ErrTokenNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, gate.ErrNotYetOpen):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotOpen)
	case errors.Is(err, gate.ErrExpired):
		response.Fail(c, http.StatusForbidden, response.ErrExamEnded)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrAckRequired):
		response.Fail(c, http.StatusPreconditionRequired, response.ErrAckRequired)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
