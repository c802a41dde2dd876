package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mariosrafail/english4sp-sub000/internal/gate"
	"github.com/mariosrafail/english4sp-sub000/internal/middleware"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
)

// TicketHandler handles listening ticket issuance and audio streaming.
type TicketHandler struct {
	ticketService  *service.TicketService
	storageService *service.StorageService
	gate           *gate.Service
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(ticketService *service.TicketService, storageService *service.StorageService, gateSvc *gate.Service) *TicketHandler {
	return &TicketHandler{
		ticketService:  ticketService,
		storageService: storageService,
		gate:           gateSvc,
	}
}

// Issue godoc
// POST /api/v1/exam/listening-ticket
func (h *TicketHandler) Issue(c *gin.Context) {
	session := middleware.GetSession(c)

	// A terminal session keeps read access to its state but not to the
	// listening audio.
	if session.Submitted {
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		return
	}

	if _, err := h.gate.RequireOpen(c.Request.Context(), session.Token); err != nil {
		failGate(c, err)
		return
	}

	ticket, err := h.ticketService.Issue(c.Request.Context(), session)
	if err != nil {
		failTicket(c, err)
		return
	}
	response.Success(c, http.StatusOK, ticket)
}

// Stream godoc
// GET /api/v1/exam/listening-audio?ticket=...
// Redeems the ticket and streams the audio file. http.ServeFile handles
// range requests, so the player can seek within the single permitted play.
func (h *TicketHandler) Stream(c *gin.Context) {
	session := middleware.GetSession(c)

	ticket := c.Query("ticket")
	if ticket == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrBadTicket)
		return
	}

	if session.Submitted {
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		return
	}

	if _, err := h.gate.RequireOpen(c.Request.Context(), session.Token); err != nil {
		failGate(c, err)
		return
	}

	audioPath, err := h.ticketService.Redeem(c.Request.Context(), session, ticket)
	if err != nil {
		failTicket(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.File(h.storageService.AbsolutePath(audioPath))
}

// failTicket maps ticket errors onto the API error taxonomy.
func failTicket(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAckRequired):
		response.Fail(c, http.StatusPreconditionRequired, response.ErrAckRequired)
	case errors.Is(err, repository.ErrMaxPlays):
		response.Fail(c, http.StatusForbidden, response.ErrMaxPlays)
	case errors.Is(err, repository.ErrBadTicket):
		response.Fail(c, http.StatusForbidden, response.ErrBadTicket)
	case errors.Is(err, repository.ErrTicketExpired):
		response.Fail(c, http.StatusForbidden, response.ErrTicketExpired)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
