package model

import (
	"time"

	"github.com/google/uuid"
)

// ListeningTicket authorizes streaming the listening audio for one play
// window. One row per session; PlayCount increments only on issuance and is
// capped at the configured max plays. Within its validity window the ticket
// can be presented repeatedly, so seek and range requests for the same play
// keep working.
type ListeningTicket struct {
	SessionID uuid.UUID `json:"-"`
	Ticket    string    `json:"ticket"`
	PlayCount int       `json:"play_count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Live reports whether the ticket is still within its validity window.
func (t *ListeningTicket) Live(now time.Time) bool {
	return t.Ticket != "" && now.Before(t.ExpiresAt)
}
