package model

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one webcam capture stored for a session. The per-session count
// is capped; inserts past the cap are rejected.
type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Path      string    `json:"-"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
