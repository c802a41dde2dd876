package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/middleware"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
)

// SnapshotHandler handles webcam snapshot upload and examiner review.
type SnapshotHandler struct {
	storageService *service.StorageService
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(storageService *service.StorageService) *SnapshotHandler {
	return &SnapshotHandler{storageService: storageService}
}

// Upload godoc
// POST /api/v1/exam/snapshots
func (h *SnapshotHandler) Upload(c *gin.Context) {
	session := middleware.GetSession(c)

	file, header, err := c.Request.FormFile("snapshot")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	snap, err := h.storageService.SaveSnapshot(c.Request.Context(), session.ID, file, header)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		case errors.Is(err, repository.ErrSnapshotLimit):
			response.Fail(c, http.StatusConflict, response.ErrSnapshotLimit)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusCreated, snap)
}

// List godoc
// GET /api/v1/examiner/sessions/:id/snapshots
func (h *SnapshotHandler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	snaps, err := h.storageService.Snapshots(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, snaps)
}
