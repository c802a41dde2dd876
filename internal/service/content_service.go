package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// payloadCacheTTL bounds staleness if a period's test is re-authored while
// the server is running.
const payloadCacheTTL = 6 * time.Hour

// ContentService serves the test payload in its two forms: the authored
// payload with answer keys for grading, and the stripped client payload that
// is the only form candidates ever receive. Both are cached in Redis so the
// status endpoint never touches Postgres on the hot path.
type ContentService struct {
	periodRepo *repository.ExamPeriodRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewContentService creates a new ContentService.
func NewContentService(periodRepo *repository.ExamPeriodRepository, rdb *redis.Client, log zerolog.Logger) *ContentService {
	return &ContentService{
		periodRepo: periodRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "content").Logger(),
	}
}

// ClientPayload returns the stripped payload for the period, cache-first.
func (s *ContentService) ClientPayload(ctx context.Context, periodID uuid.UUID) (*model.TestPayload, error) {
	key := config.CacheKey.PeriodPayloadKey(periodID.String())
	if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		payload := &model.TestPayload{}
		if err := json.Unmarshal(cached, payload); err == nil {
			return payload, nil
		}
	}

	full, err := s.periodRepo.GetPayload(ctx, periodID)
	if err != nil {
		return nil, err
	}
	client := full.ForClient()

	if raw, err := json.Marshal(client); err == nil {
		if err := s.rdb.Set(ctx, key, raw, payloadCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Cache client payload failed")
		}
	}
	return client, nil
}

// AuthoredPayload returns the full payload with answer keys, cache-first.
// Server-side use only.
func (s *ContentService) AuthoredPayload(ctx context.Context, periodID uuid.UUID) (*model.TestPayload, error) {
	key := config.CacheKey.PeriodAnswerKeyKey(periodID.String())
	if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		payload := &model.TestPayload{}
		if err := json.Unmarshal(cached, payload); err == nil {
			return payload, nil
		}
	}

	full, err := s.periodRepo.GetPayload(ctx, periodID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(full); err == nil {
		if err := s.rdb.Set(ctx, key, raw, payloadCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Cache authored payload failed")
		}
	}
	return full, nil
}

// Prewarm loads both payload forms for every period into the cache. Called
// once at startup so the first candidates of the day hit warm caches.
func (s *ContentService) Prewarm(ctx context.Context) {
	periods, err := s.periodRepo.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Prewarm: list periods failed")
		return
	}

	for _, p := range periods {
		if _, err := s.AuthoredPayload(ctx, p.ID); err != nil {
			s.log.Warn().Err(err).Str("period_id", p.ID.String()).Msg("Prewarm authored payload failed")
			continue
		}
		if _, err := s.ClientPayload(ctx, p.ID); err != nil {
			s.log.Warn().Err(err).Str("period_id", p.ID.String()).Msg("Prewarm client payload failed")
		}
	}
	s.log.Info().Int("periods", len(periods)).Msg("Test payload cache prewarmed")
}

// Invalidate drops both cached forms for a period, e.g. after re-authoring.
func (s *ContentService) Invalidate(ctx context.Context, periodID uuid.UUID) {
	s.rdb.Del(ctx,
		config.CacheKey.PeriodPayloadKey(periodID.String()),
		config.CacheKey.PeriodAnswerKeyKey(periodID.String()))
}
