package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
	"github.com/mariosrafail/english4sp-sub000/internal/validator"
)

// AuthHandler handles examiner authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login godoc
// POST /api/v1/examiner/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.ExaminerLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, examiner, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":    token,
		"examiner": examiner,
	})
}
