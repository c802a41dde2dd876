package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionGrade is the authoritative grading record for one session. Created
// on first submission; speaking/writing scores arrive later from examiners
// and the blended total is recomputed every time they change.
type QuestionGrade struct {
	SessionID       uuid.UUID       `json:"session_id"`
	Answers         json.RawMessage `json:"answers"`
	WritingText     string          `json:"writing_text,omitempty"`
	ObjectiveEarned int             `json:"objective_earned"`
	ObjectiveMax    int             `json:"objective_max"`
	SpeakingGrade   *int            `json:"speaking_grade,omitempty"`
	WritingGrade    *int            `json:"writing_grade,omitempty"`
	TotalGrade      *int            `json:"total_grade,omitempty"`
	GradedAt        *time.Time      `json:"graded_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HumanScoresRequest is the examiner payload for speaking/writing scores.
type HumanScoresRequest struct {
	SpeakingGrade *int `json:"speaking_grade" binding:"omitempty,min=0,max=100"`
	WritingGrade  *int `json:"writing_grade" binding:"omitempty,min=0,max=100"`
}
