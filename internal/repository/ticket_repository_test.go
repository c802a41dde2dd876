package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ticketNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestIssueDecisionFirstIssueChargesOnePlay(t *testing.T) {
	tk := &model.ListeningTicket{SessionID: uuid.New()}

	changed, err := issueDecision(tk, "fresh-1", ticketNow, 2*time.Minute, 3)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "fresh-1", tk.Ticket)
	assert.Equal(t, 1, tk.PlayCount)
	assert.Equal(t, ticketNow.Add(2*time.Minute), tk.ExpiresAt)
}

func TestIssueDecisionReusesLiveTicket(t *testing.T) {
	expires := ticketNow.Add(time.Minute)
	tk := &model.ListeningTicket{Ticket: "live-1", PlayCount: 1, ExpiresAt: expires}

	// A retried request within the validity window gets the same ticket
	// back and is not charged another play.
	changed, err := issueDecision(tk, "fresh-2", ticketNow, 2*time.Minute, 3)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "live-1", tk.Ticket)
	assert.Equal(t, 1, tk.PlayCount)
	assert.Equal(t, expires, tk.ExpiresAt)
}

func TestIssueDecisionNewPlayAfterExpiry(t *testing.T) {
	tk := &model.ListeningTicket{Ticket: "old-1", PlayCount: 1, ExpiresAt: ticketNow.Add(-time.Second)}

	changed, err := issueDecision(tk, "fresh-3", ticketNow, 2*time.Minute, 3)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "fresh-3", tk.Ticket)
	assert.Equal(t, 2, tk.PlayCount)
}

func TestIssueDecisionRefusesPastMaxPlays(t *testing.T) {
	tk := &model.ListeningTicket{Ticket: "old-3", PlayCount: 3, ExpiresAt: ticketNow.Add(-time.Second)}

	changed, err := issueDecision(tk, "fresh-4", ticketNow, 2*time.Minute, 3)
	assert.ErrorIs(t, err, ErrMaxPlays)
	assert.False(t, changed)
	assert.Equal(t, 3, tk.PlayCount)
}

func TestVerifyTicketMismatch(t *testing.T) {
	tk := &model.ListeningTicket{Ticket: "live-1", PlayCount: 1, ExpiresAt: ticketNow.Add(time.Minute)}

	assert.ErrorIs(t, verifyTicket(tk, "guessed", ticketNow), ErrBadTicket)
}

func TestVerifyTicketExpired(t *testing.T) {
	tk := &model.ListeningTicket{Ticket: "old-1", PlayCount: 1, ExpiresAt: ticketNow.Add(-time.Second)}

	assert.ErrorIs(t, verifyTicket(tk, "old-1", ticketNow), ErrTicketExpired)
}

func TestVerifyTicketRepeatableWithinWindow(t *testing.T) {
	// The player issues several range requests for one play; each carries
	// the same ticket and all must resolve until the window closes.
	tk := &model.ListeningTicket{Ticket: "live-1", PlayCount: 1, ExpiresAt: ticketNow.Add(time.Minute)}

	assert.NoError(t, verifyTicket(tk, "live-1", ticketNow))
	assert.NoError(t, verifyTicket(tk, "live-1", ticketNow.Add(30*time.Second)))
	assert.ErrorIs(t, verifyTicket(tk, "live-1", ticketNow.Add(time.Minute)), ErrTicketExpired)
}
