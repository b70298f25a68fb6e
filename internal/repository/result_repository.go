package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// ResultRepository persists completed attempts to quiz_results.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// BulkInsert writes a batch in one statement using UNNEST. Rows whose
// session_id already exists are skipped so a requeued payload is harmless.
func (r *ResultRepository) BulkInsert(ctx context.Context, batch []model.StoredResult) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, n)
	sessionIDs := make([]uuid.UUID, n)
	titles := make([]string, n)
	corrects := make([]int, n)
	totals := make([]int, n)
	percentages := make([]int, n)
	spent := make([]int, n)
	completedAts := make([]time.Time, n)
	payloads := make([]string, n)

	for i, res := range batch {
		ids[i] = res.ID
		sessionIDs[i] = res.SessionID
		titles[i] = res.Title
		corrects[i] = res.Correct
		totals[i] = res.Total
		percentages[i] = res.Percentage
		spent[i] = res.TimeSpentSeconds
		completedAts[i] = res.CompletedAt
		payloads[i] = string(res.Payload)
	}

	query := `
		INSERT INTO quiz_results
			(id, session_id, title, correct, total, percentage, time_spent_seconds, completed_at, payload)
		SELECT u.id, u.session_id, u.title, u.correct, u.total, u.percentage,
		       u.time_spent_seconds, u.completed_at, u.payload::jsonb
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::int[],
			$8::timestamptz[],
			$9::text[]
		) AS u (id, session_id, title, correct, total, percentage, time_spent_seconds, completed_at, payload)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		ids, sessionIDs, titles, corrects, totals, percentages, spent, completedAts, payloads)
	return err
}

// Insert writes one result; used as the fallback when a batch fails.
func (r *ResultRepository) Insert(ctx context.Context, res model.StoredResult) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO quiz_results
			(id, session_id, title, correct, total, percentage, time_spent_seconds, completed_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.ID, res.SessionID, res.Title, res.Correct, res.Total, res.Percentage,
		res.TimeSpentSeconds, res.CompletedAt, string(res.Payload),
	)
	return err
}

// ListRecent returns the latest results without their payloads.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]model.StoredResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, title, correct, total, percentage, time_spent_seconds, completed_at
		 FROM quiz_results
		 ORDER BY completed_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StoredResult
	for rows.Next() {
		var res model.StoredResult
		if err := rows.Scan(&res.ID, &res.SessionID, &res.Title, &res.Correct, &res.Total,
			&res.Percentage, &res.TimeSpentSeconds, &res.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
