package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultQueue is the source of completed attempts, a Redis list in
// production (repository.ResultQueue).
type ResultQueue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	Requeue(ctx context.Context, raw []byte) error
}

// ResultStore writes attempts to PostgreSQL (repository.ResultRepository).
type ResultStore interface {
	BulkInsert(ctx context.Context, batch []model.StoredResult) error
	Insert(ctx context.Context, res model.StoredResult) error
}

// ResultWorker drains the result queue into quiz_results in batches.
type ResultWorker struct {
	queue ResultQueue
	store ResultStore
	log   zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
}

func NewResultWorker(queue ResultQueue, store ResultStore, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		queue:        queue,
		store:        store,
		log:          log.With().Str("component", "result_worker").Logger(),
		batchSize:    ResultBatchSize,
		batchTimeout: ResultBatchTimeout,
		pollTimeout:  ResultPollTimeout,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start blocks until ctx is done, then flushes what it holds.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]model.StoredResult, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			raw, err := w.queue.Pop(ctx, w.pollTimeout)
			if err != nil {
				if ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Queue pop error")
				}
				continue
			}
			if raw == nil {
				continue
			}

			var res model.StoredResult
			if err := json.Unmarshal(raw, &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, res)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert wrapper
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []model.StoredResult) {
	if len(batch) == 0 {
		return
	}

	if err := w.store.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk result insert failed, using fallback")

		for _, res := range batch {
			if err := w.store.Insert(ctx, res); err != nil {
				w.log.Error().Err(err).Str("session_id", res.SessionID.String()).Msg("single insert failed, requeueing")
				raw, _ := json.Marshal(res)
				if err := w.queue.Requeue(ctx, raw); err != nil {
					w.log.Error().Err(err).Str("session_id", res.SessionID.String()).Msg("requeue failed, result lost")
				}
			}
		}
		return
	}

	w.log.Debug().Int("size", len(batch)).Msg("Results persisted")
}
