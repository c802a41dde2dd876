package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AnswerBatchSize    = 100
	AnswerBatchTimeout = 2 * time.Second
	AnswerPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// AutosaveWorker flushes queued draft answers from Redis to PostgreSQL in
// batches. The Redis hash stays authoritative for state restore; these rows
// are the durable fallback.
type AutosaveWorker struct {
	answerRepo *repository.AnswerRepository
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(answerRepo *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		answerRepo: answerRepo,
		rdb:        rdb,
		log:        log.With().Str("component", "autosave_worker").Logger(),
	}
}

type answerPayload struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
	Value     string `json:"value"`
}

// Start begins the worker loop. Call in a goroutine; drains on shutdown.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*answerPayload, 0, AnswerBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AnswerBatchSize || time.Since(lastFlush) >= AnswerBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.log.Info().Msg("Worker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, AnswerPollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
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

			var p answerPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				// Malformed JSON cannot be retried. Log and discard.
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed payload")
				continue
			}
			batch = append(batch, &p)
		}
	}
}

// flushSafe attempts the batch upsert and requeues on failure.
func (w *AutosaveWorker) flushSafe(ctx context.Context, batch []*answerPayload) {
	if len(batch) == 0 {
		return
	}

	answers := make([]repository.SavedAnswer, 0, len(batch))
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			w.log.Error().Str("session_id", p.SessionID).Msg("Dropping draft with invalid session id")
			continue
		}
		answers = append(answers, repository.SavedAnswer{
			SessionID: sessionID,
			ItemID:    p.ItemID,
			Value:     p.Value,
		})
	}

	if err := w.answerRepo.UpsertBatch(ctx, answers); err != nil {
		w.log.Error().Err(err).Int("count", len(answers)).Msg("Batch upsert failed, requeueing")
		pipe := w.rdb.Pipeline()
		for _, p := range batch {
			raw, _ := json.Marshal(p)
			pipe.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
		}
		_, _ = pipe.Exec(ctx)
		time.Sleep(5 * time.Second)
	}
}
