package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TicketService issues and redeems listening playback tickets. Plays are
// counted on issuance; a live ticket authorizes streaming until it expires.
type TicketService struct {
	ticketRepo *repository.TicketRepository
	periodRepo *repository.ExamPeriodRepository
	cfg        *config.Config
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewTicketService creates a new TicketService. rdb may be nil in tests,
// which disables the acknowledgement check.
func NewTicketService(
	ticketRepo *repository.TicketRepository,
	periodRepo *repository.ExamPeriodRepository,
	cfg *config.Config,
	rdb *redis.Client,
	log zerolog.Logger,
) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
		periodRepo: periodRepo,
		cfg:        cfg,
		rdb:        rdb,
		log:        log.With().Str("component", "ticket").Logger(),
	}
}

// Issue grants the session a playback ticket, reusing a still-live one so a
// retried request never consumes an extra play. Audio is withheld until the
// candidate acknowledges the proctoring terms, same as the test payload.
func (s *TicketService) Issue(ctx context.Context, session *model.Session) (*model.ListeningTicket, error) {
	if s.cfg.RequireProctoringAck && s.rdb != nil {
		n, err := s.rdb.Exists(ctx, config.CacheKey.SessionAckKey(session.Token)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrAckRequired
		}
	}

	t, err := s.ticketRepo.Issue(ctx, session.ID, newTicket(), s.cfg.ListeningTicketTTL, s.cfg.ListeningMaxPlays)
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("session_id", session.ID.String()).
		Int("play_count", t.PlayCount).
		Msg("Listening ticket issued")
	return t, nil
}

// Redeem validates the ticket and resolves the audio file path for
// streaming. The ticket is not invalidated here; it stays good for range
// requests until it expires.
func (s *TicketService) Redeem(ctx context.Context, session *model.Session, ticket string) (string, error) {
	if err := s.ticketRepo.Verify(ctx, session.ID, ticket); err != nil {
		return "", err
	}

	period, err := s.periodRepo.GetByID(ctx, session.PeriodID)
	if err != nil {
		return "", err
	}
	return period.AudioPath, nil
}

// newTicket returns a 32-byte random ticket, hex encoded.
func newTicket() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand failure means the host is broken
	}
	return hex.EncodeToString(b)
}
