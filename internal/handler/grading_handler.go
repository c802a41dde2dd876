package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
	"github.com/mariosrafail/english4sp-sub000/internal/validator"
)

// GradingHandler handles the examiner grading and review endpoints.
type GradingHandler struct {
	gradingService *service.GradingService
	periodRepo     *repository.ExamPeriodRepository
	violationRepo  *repository.ViolationRepository
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(
	gradingService *service.GradingService,
	periodRepo *repository.ExamPeriodRepository,
	violationRepo *repository.ViolationRepository,
) *GradingHandler {
	return &GradingHandler{
		gradingService: gradingService,
		periodRepo:     periodRepo,
		violationRepo:  violationRepo,
	}
}

// ListPeriods godoc
// GET /api/v1/examiner/periods
func (h *GradingHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periodRepo.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, periods)
}

// Results godoc
// GET /api/v1/examiner/periods/:id/results
func (h *GradingHandler) Results(c *gin.Context) {
	periodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.gradingService.Results(c.Request.Context(), periodID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, results)
}

// GetGrade godoc
// GET /api/v1/examiner/sessions/:id/grade
func (h *GradingHandler) GetGrade(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	grade, err := h.gradingService.Result(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, grade)
}

// SetScores godoc
// PUT /api/v1/examiner/sessions/:id/scores
func (h *GradingHandler) SetScores(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.HumanScoresRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	grade, err := h.gradingService.SetHumanScores(c.Request.Context(), sessionID, &req)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, grade)
}

// Violations godoc
// GET /api/v1/examiner/sessions/:id/violations
func (h *GradingHandler) Violations(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	events, err := h.violationRepo.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, events)
}

// Regrade godoc
// POST /api/v1/examiner/periods/:id/regrade
func (h *GradingHandler) Regrade(c *gin.Context) {
	periodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.gradingService.EnqueueRegrade(c.Request.Context(), periodID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"queued": true})
}
