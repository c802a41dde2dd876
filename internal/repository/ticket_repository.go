package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
)

var (
	// ErrMaxPlays means the session has exhausted its listening plays.
	ErrMaxPlays = errors.New("listening play limit reached")
	// ErrBadTicket means the presented ticket does not match the live one.
	ErrBadTicket = errors.New("unknown listening ticket")
	// ErrTicketExpired means the ticket's validity window has passed.
	ErrTicketExpired = errors.New("listening ticket expired")
)

// TicketRepository handles listening ticket data access. Issuance locks the
// session's ticket row so concurrent requests from a double-clicking client
// serialize instead of double-spending a play.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// issueDecision applies the issuance rules to the session's current ticket
// state. A still-live ticket stands unchanged; otherwise fresh replaces it
// and charges one play, up to maxPlays. Returns whether the row changed.
func issueDecision(t *model.ListeningTicket, fresh string, now time.Time, ttl time.Duration, maxPlays int) (bool, error) {
	if t.Live(now) {
		return false, nil
	}
	if t.PlayCount >= maxPlays {
		return false, ErrMaxPlays
	}
	t.Ticket = fresh
	t.PlayCount++
	t.ExpiresAt = now.Add(ttl)
	return true, nil
}

// verifyTicket checks a presented ticket against the stored row.
func verifyTicket(t *model.ListeningTicket, presented string, now time.Time) error {
	if t.Ticket != presented {
		return ErrBadTicket
	}
	if !t.Live(now) {
		return ErrTicketExpired
	}
	return nil
}

// Issue grants a playback ticket for the session. A still-live ticket is
// returned unchanged, so a retried request never burns an extra play. A new
// ticket counts one play up front; once play_count reaches maxPlays no
// further tickets are issued.
func (r *TicketRepository) Issue(ctx context.Context, sessionID uuid.UUID, ticket string, ttl time.Duration, maxPlays int) (*model.ListeningTicket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t := &model.ListeningTicket{SessionID: sessionID}
	err = tx.QueryRow(ctx,
		`SELECT ticket, play_count, expires_at FROM listening_tickets
		 WHERE session_id = $1 FOR UPDATE`, sessionID,
	).Scan(&t.Ticket, &t.PlayCount, &t.ExpiresAt)
	if err != nil && err != pgx.ErrNoRows {
		return nil, err
	}

	changed, err := issueDecision(t, ticket, time.Now(), ttl, maxPlays)
	if err != nil {
		return nil, err
	}
	if !changed {
		return t, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO listening_tickets (session_id, ticket, play_count, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id)
		 DO UPDATE SET ticket = $2, play_count = $3, expires_at = $4`,
		sessionID, t.Ticket, t.PlayCount, t.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return t, tx.Commit(ctx)
}

// Verify checks that the presented ticket authorizes playback right now.
// The ticket stays valid until its window expires, so the player's range
// requests for the same play keep resolving; the play was already charged
// at issuance.
func (r *TicketRepository) Verify(ctx context.Context, sessionID uuid.UUID, ticket string) error {
	t := &model.ListeningTicket{SessionID: sessionID}
	err := r.pool.QueryRow(ctx,
		`SELECT ticket, play_count, expires_at FROM listening_tickets
		 WHERE session_id = $1`, sessionID,
	).Scan(&t.Ticket, &t.PlayCount, &t.ExpiresAt)
	if err == pgx.ErrNoRows {
		return ErrBadTicket
	}
	if err != nil {
		return err
	}
	return verifyTicket(t, ticket, time.Now())
}

// Get returns the session's current ticket state, if any.
func (r *TicketRepository) Get(ctx context.Context, sessionID uuid.UUID) (*model.ListeningTicket, error) {
	t := &model.ListeningTicket{SessionID: sessionID}
	err := r.pool.QueryRow(ctx,
		`SELECT ticket, play_count, expires_at FROM listening_tickets
		 WHERE session_id = $1`, sessionID,
	).Scan(&t.Ticket, &t.PlayCount, &t.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
