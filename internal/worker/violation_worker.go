package worker

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

const (
	ViolationBatchSize    = 50
	ViolationBatchTimeout = 2 * time.Second
	ViolationPollTimeout  = 1 * time.Second
)

// ViolationWorker persists queued proctoring events in batches. Events are
// evidence for examiner review, so failed batches fall back to row-by-row
// inserts and requeue whatever still fails.
type ViolationWorker struct {
	violationRepo *repository.ViolationRepository
	rdb           *redis.Client
	log           zerolog.Logger
}

// NewViolationWorker creates a new ViolationWorker.
func NewViolationWorker(violationRepo *repository.ViolationRepository, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		violationRepo: violationRepo,
		rdb:           rdb,
		log:           log.With().Str("component", "violation_worker").Logger(),
	}
}

type violationPayload struct {
	SessionID string `json:"session_id"`
	Signal    string `json:"signal"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"timestamp"`
}

// Start begins the worker loop. Call in a goroutine; drains on shutdown.
func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]*violationPayload, 0, ViolationBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ViolationBatchSize || time.Since(lastFlush) >= ViolationBatchTimeout) {
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
			item, err := w.rdb.BLPop(ctx, ViolationPollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
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

			var p violationPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Str("data", item[1]).Msg("Discarding malformed payload")
				continue
			}
			batch = append(batch, &p)
		}
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*violationPayload) {
	if len(batch) == 0 {
		return
	}

	events, bad := w.toEvents(batch)
	for _, p := range bad {
		w.log.Error().Str("session_id", p.SessionID).Msg("Dropping event with invalid session id")
	}

	if err := w.violationRepo.BatchInsert(ctx, events); err != nil {
		w.log.Warn().Err(err).Int("count", len(events)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, events)
	}
}

func (w *ViolationWorker) toEvents(batch []*violationPayload) ([]model.ViolationEvent, []*violationPayload) {
	events := make([]model.ViolationEvent, 0, len(batch))
	var bad []*violationPayload
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			bad = append(bad, p)
			continue
		}
		events = append(events, model.ViolationEvent{
			SessionID:  sessionID,
			Signal:     model.ProctorSignal(p.Signal),
			Detail:     p.Detail,
			RecordedAt: time.Unix(p.Timestamp, 0),
		})
	}
	return events, bad
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, events []model.ViolationEvent) {
	var requeue []model.ViolationEvent
	for i := range events {
		if err := w.violationRepo.Insert(ctx, &events[i]); err != nil {
			w.log.Error().Err(err).Str("session_id", events[i].SessionID.String()).Msg("Insert failed, requeueing")
			requeue = append(requeue, events[i])
		}
	}

	if len(requeue) == 0 {
		return
	}
	pipe := w.rdb.Pipeline()
	for _, e := range requeue {
		raw, _ := json.Marshal(violationPayload{
			SessionID: e.SessionID.String(),
			Signal:    string(e.Signal),
			Detail:    e.Detail,
			Timestamp: e.RecordedAt.Unix(),
		})
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, raw)
	}
	_, _ = pipe.Exec(ctx)
}
