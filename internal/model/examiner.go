package model

import (
	"time"

	"github.com/google/uuid"
)

// Examiner is a staff account allowed to monitor sessions and enter
// speaking/writing grades.
type Examiner struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExaminerLoginRequest is the payload for examiner authentication.
type ExaminerLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}
