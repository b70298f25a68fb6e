package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Result is the frozen record of a completed session. Answers are keyed by
// position in Questions, the order the taker actually saw.
type Result struct {
	Questions        []Question  `json:"questions"`
	Answers          map[int]int `json:"answers"`
	TimeSpentSeconds int         `json:"timeSpent"`
	CompletedAt      time.Time   `json:"completedAt"`
}

// ScoreSummary is derived from a Result on demand.
type ScoreSummary struct {
	Correct    int `json:"correct"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// ReviewRow is the verdict for one presented question.
type ReviewRow struct {
	Position    int      `json:"position"`
	Question    Question `json:"question"`
	UserAnswer  *int     `json:"user_answer"`
	IsCorrect   bool     `json:"is_correct"`
	WasAnswered bool     `json:"was_answered"`
}

// StoredResult is a completed attempt persisted to PostgreSQL.
type StoredResult struct {
	ID               uuid.UUID       `json:"id"`
	SessionID        uuid.UUID       `json:"session_id"`
	Title            string          `json:"title"`
	Correct          int             `json:"correct"`
	Total            int             `json:"total"`
	Percentage       int             `json:"percentage"`
	TimeSpentSeconds int             `json:"time_spent_seconds"`
	CompletedAt      time.Time       `json:"completed_at"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}
