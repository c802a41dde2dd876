package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/grading"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const RegradePollTimeout = 1 * time.Second

// GradingWorker rescores the objective portion of a whole period after an
// answer key correction. Stored answers are already canonical, so the
// rescore only needs the corrected payload; human scores are untouched and
// the blended total is recomputed from whatever they currently are.
type GradingWorker struct {
	gradeRepo  *repository.GradeRepository
	periodRepo *repository.ExamPeriodRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewGradingWorker creates a new GradingWorker.
func NewGradingWorker(
	gradeRepo *repository.GradeRepository,
	periodRepo *repository.ExamPeriodRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *GradingWorker {
	return &GradingWorker{
		gradeRepo:  gradeRepo,
		periodRepo: periodRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "grading_worker").Logger(),
	}
}

type regradePayload struct {
	PeriodID string `json:"period_id"`
}

// Start begins the worker loop. Call in a goroutine.
func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, RegradePollTimeout, config.WorkerKey.RegradeQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(3 * time.Second)
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var p regradePayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed payload")
				continue
			}

			periodID, err := uuid.Parse(p.PeriodID)
			if err != nil {
				w.log.Error().Str("period_id", p.PeriodID).Msg("Discarding regrade with invalid period id")
				continue
			}

			if err := w.regrade(ctx, periodID); err != nil {
				w.log.Error().Err(err).Str("period_id", p.PeriodID).Msg("Regrade failed, requeueing")
				w.rdb.RPush(ctx, config.WorkerKey.RegradeQueue, item[1])
				time.Sleep(5 * time.Second)
			}
		}
	}
}

// regrade rescores every submitted session of the period in one bulk update.
func (w *GradingWorker) regrade(ctx context.Context, periodID uuid.UUID) error {
	payload, err := w.periodRepo.GetPayload(ctx, periodID)
	if err != nil {
		return err
	}

	grades, err := w.gradeRepo.ListByPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if len(grades) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(grades))
	earnedArr := make([]int, 0, len(grades))
	maxArr := make([]int, 0, len(grades))
	totals := make([]int, 0, len(grades))

	for _, g := range grades {
		var canonical map[string]string
		if err := json.Unmarshal(g.Answers, &canonical); err != nil {
			w.log.Error().Err(err).Str("session_id", g.SessionID.String()).Msg("Skipping unreadable answers")
			continue
		}

		earned, max := grading.ObjectiveScore(payload, canonical)
		ids = append(ids, g.SessionID)
		earnedArr = append(earnedArr, earned)
		maxArr = append(maxArr, max)
		totals = append(totals, grading.Blend(earned, max, g.SpeakingGrade, g.WritingGrade))
	}

	if err := w.gradeRepo.BulkUpdateObjective(ctx, ids, earnedArr, maxArr, totals); err != nil {
		return err
	}

	// Invalidate the cached payload forms so the next reads pick up the
	// corrected key.
	w.rdb.Del(ctx,
		config.CacheKey.PeriodPayloadKey(periodID.String()),
		config.CacheKey.PeriodAnswerKeyKey(periodID.String()))

	w.log.Info().
		Str("period_id", periodID.String()).
		Int("sessions", len(ids)).
		Msg("Period regraded")
	return nil
}
