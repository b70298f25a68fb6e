package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ResultQueue hands completed attempts to the result worker through the
// persist_results_queue list.
type ResultQueue struct {
	rdb *redis.Client
}

func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb}
}

// Enqueue appends res to the queue.
func (q *ResultQueue) Enqueue(ctx context.Context, res model.StoredResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}

// Pop waits up to timeout for the next raw payload. It returns nil, nil when
// the queue stayed empty.
func (q *ResultQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	item, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistResultsQueue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(item) < 2 {
		return nil, nil
	}
	return []byte(item[1]), nil
}

// Requeue puts a raw payload back at the tail of the queue.
func (q *ResultQueue) Requeue(ctx context.Context, raw []byte) error {
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}

// Len reports how many payloads are waiting.
func (q *ResultQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
}
