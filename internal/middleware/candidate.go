package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
)

const (
	// ContextKeySession is the Gin context key for the candidate session.
	ContextKeySession = "session"
	// HeaderExamToken carries the candidate's access token.
	HeaderExamToken = "X-Exam-Token"
)

// RequireCandidateToken resolves the candidate session from the exam token.
// The token arrives in the X-Exam-Token header, or in the ?token query param
// for endpoints a plain media element must reach (audio streaming,
// WebSocket upgrade).
func RequireCandidateToken(sessionRepo *repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(HeaderExamToken)
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		session, err := sessionRepo.GetByToken(c.Request.Context(), token)
		if err != nil {
			response.AbortFail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}

		c.Set(ContextKeySession, session)
		c.Next()
	}
}

// GetSession retrieves the candidate session from the Gin context.
func GetSession(c *gin.Context) *model.Session {
	v, ok := c.Get(ContextKeySession)
	if !ok {
		return nil
	}
	session, _ := v.(*model.Session)
	return session
}
