package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamPeriod defines the server-authoritative gate window for one scheduled
// sitting of the written exam. Immutable once candidates are active.
type ExamPeriod struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	OpenAt          time.Time `json:"open_at"`
	DurationMinutes int       `json:"duration_minutes"`
	// AudioPath is the listening audio file relative to the storage root.
	// Never exposed to clients; audio is reachable only through a ticket.
	AudioPath string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EndAt returns the closing edge of the gate window.
func (p *ExamPeriod) EndAt() time.Time {
	return p.OpenAt.Add(time.Duration(p.DurationMinutes) * time.Minute)
}
