package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mariosrafail/english4sp-sub000/internal/middleware"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/proctor"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
	ws "github.com/mariosrafail/english4sp-sub000/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowed-origins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the candidate exam stream: autosave, proctoring
// signals, presence, and submission over one WebSocket.
type WSHandler struct {
	sessionService    *service.SessionService
	submissionService *service.SubmissionService
	proctorService    *proctor.Service
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	sessionService *service.SessionService,
	submissionService *service.SubmissionService,
	proctorService *proctor.Service,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		sessionService:    sessionService,
		submissionService: submissionService,
		proctorService:    proctorService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exam/stream?token=...
func (h *WSHandler) ExamStream(c *gin.Context) {
	session := middleware.GetSession(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if session.Submitted {
		ws.WriteError(conn, "session already submitted")
		return
	}

	if _, err := h.proctorService.Attach(context.Background(), session); err != nil {
		h.log.Error().Err(err).Msg("Monitor attach failed")
		ws.WriteError(conn, "monitor unavailable")
		return
	}
	// Detach keeps the persisted counters; the next connect re-seeds them.
	defer h.proctorService.Detach(session.Token)

	wsLog := h.log.With().
		Str("session_id", session.ID.String()).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, session, raw)
		case ws.ActionProctor:
			h.handleProctor(conn, wsLog, session, raw)
		case ws.ActionPresence:
			h.handlePresence(session, raw)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, session, raw)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

// handleAutosave saves a single draft answer.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, session *model.Session, raw []byte) {
	var msg ws.AutosaveRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.ItemID == "" {
		ws.WriteError(conn, "item_id is required")
		return
	}

	if err := h.sessionService.Autosave(context.Background(), session, msg.ItemID, msg.Value); err != nil {
		ws.WriteError(conn, "save failed")
		return
	}
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, ItemID: msg.ItemID})
}

// handleProctor routes one integrity signal through the monitor and mirrors
// the verdict back to the client.
func (h *WSHandler) handleProctor(conn *websocket.Conn, wsLog zerolog.Logger, session *model.Session, raw []byte) {
	var msg ws.ProctorRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed proctor message")
		return
	}

	sig := model.ProctorSignal(msg.Signal)
	if !sig.Valid() {
		ws.WriteError(conn, "unknown signal: "+msg.Signal)
		return
	}

	monitor, verdict, err := h.proctorService.Signal(context.Background(), session, sig, msg.Detail)
	if err != nil {
		wsLog.Error().Err(err).Msg("Proctor signal failed")
		ws.WriteError(conn, "signal failed")
		return
	}

	ws.WriteTyped(conn, ws.ViolationResponse{
		Event:         ws.EventViolation,
		Signal:        msg.Signal,
		TabViolations: monitor.TabViolations(),
		ForceSubmit:   verdict.ForceSubmit,
		Reason:        string(verdict.Reason),
	})
}

// handlePresence records the liveness ping. No response; the ping is fire
// and forget.
func (h *WSHandler) handlePresence(session *model.Session, raw []byte) {
	var msg ws.PresenceRequest
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Status == "" {
		return
	}
	_ = h.sessionService.Presence(context.Background(), session.Token, msg.Status)
}

// handleSubmit finalizes the attempt over the stream.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, session *model.Session, raw []byte) {
	var msg ws.SubmitRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed submit message")
		return
	}

	submitted, err := h.submissionService.Submit(context.Background(), session.Token, msg.Answers, nil, model.SubmitReasonManual)
	if err != nil && !errors.Is(err, service.ErrAlreadySubmitted) {
		wsLog.Error().Err(err).Msg("Submit over stream failed")
		ws.WriteError(conn, "submit failed")
		return
	}

	reason := model.SubmitReasonManual
	if submitted != nil && submitted.SubmitReason != nil {
		reason = *submitted.SubmitReason
	}
	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:        ws.EventSubmitted,
		Reason:       string(reason),
		Disqualified: submitted != nil && submitted.Disqualified,
	})
}
