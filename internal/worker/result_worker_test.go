package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-quiz/internal/model"
)

type fakeQueue struct {
	mu       sync.Mutex
	items    [][]byte
	requeued [][]byte
}

func (q *fakeQueue) push(t *testing.T, res model.StoredResult) {
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	q.mu.Lock()
	q.items = append(q.items, raw)
	q.mu.Unlock()
}

func (q *fakeQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	q.mu.Lock()
	if len(q.items) > 0 {
		raw := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()
		return raw, nil
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(min(timeout, 5*time.Millisecond)):
		return nil, nil
	}
}

func (q *fakeQueue) Requeue(_ context.Context, raw []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeued = append(q.requeued, raw)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	bulkErr error
	failIDs map[uuid.UUID]bool
	batches [][]model.StoredResult
	singles []model.StoredResult
}

func (s *fakeStore) BulkInsert(_ context.Context, batch []model.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkErr != nil {
		return s.bulkErr
	}
	s.batches = append(s.batches, append([]model.StoredResult(nil), batch...))
	return nil
}

func (s *fakeStore) Insert(_ context.Context, res model.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[res.SessionID] {
		return errors.New("insert failed")
	}
	s.singles = append(s.singles, res)
	return nil
}

func (s *fakeStore) persisted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.singles)
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func result(title string) model.StoredResult {
	return model.StoredResult{
		ID:          uuid.New(),
		SessionID:   uuid.New(),
		Title:       title,
		Correct:     1,
		Total:       2,
		Percentage:  50,
		CompletedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:     json.RawMessage(`{"answers":{}}`),
	}
}

func newTestWorker(q *fakeQueue, s *fakeStore) *ResultWorker {
	w := NewResultWorker(q, s, zerolog.Nop())
	w.batchTimeout = 20 * time.Millisecond
	w.pollTimeout = 5 * time.Millisecond
	return w
}

func run(w *ResultWorker) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestResultWorker_FlushesOnTimeout(t *testing.T) {
	q, s := &fakeQueue{}, &fakeStore{}
	q.push(t, result("a"))
	q.push(t, result("b"))

	stop := run(newTestWorker(q, s))
	defer stop()

	assert.Eventually(t, func() bool { return s.persisted() == 2 }, time.Second, 5*time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.batches, 1)
	assert.Equal(t, "a", s.batches[0][0].Title)
	assert.JSONEq(t, `{"answers":{}}`, string(s.batches[0][1].Payload))
}

func TestResultWorker_FlushesFullBatchImmediately(t *testing.T) {
	q, s := &fakeQueue{}, &fakeStore{}
	for range 3 {
		q.push(t, result("x"))
	}
	w := newTestWorker(q, s)
	w.batchSize = 2
	w.batchTimeout = time.Hour

	stop := run(w)
	assert.Eventually(t, func() bool { return s.persisted() == 2 }, time.Second, 5*time.Millisecond)

	// The third waits for shutdown.
	stop()
	assert.Equal(t, 3, s.persisted())
}

func TestResultWorker_FallbackAndRequeue(t *testing.T) {
	bad := result("bad")
	q := &fakeQueue{}
	s := &fakeStore{bulkErr: errors.New("batch failed"), failIDs: map[uuid.UUID]bool{bad.SessionID: true}}
	q.push(t, result("good"))
	q.push(t, bad)

	stop := run(newTestWorker(q, s))
	assert.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.requeued) == 1
	}, time.Second, 5*time.Millisecond)
	stop()

	s.mu.Lock()
	require.Len(t, s.singles, 1)
	assert.Equal(t, "good", s.singles[0].Title)
	s.mu.Unlock()

	var back model.StoredResult
	require.NoError(t, json.Unmarshal(q.requeued[0], &back))
	assert.Equal(t, bad.SessionID, back.SessionID)
}

func TestResultWorker_SkipsMalformedPayloads(t *testing.T) {
	q, s := &fakeQueue{}, &fakeStore{}
	q.items = append(q.items, []byte("{not json"))
	q.push(t, result("ok"))

	stop := run(newTestWorker(q, s))
	assert.Eventually(t, func() bool { return s.persisted() == 1 }, time.Second, 5*time.Millisecond)
	stop()
}
