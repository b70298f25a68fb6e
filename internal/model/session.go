package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates quiz session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// SessionView is the observable state of a session, rendered by clients.
type SessionView struct {
	ID               uuid.UUID        `json:"id"`
	Title            string           `json:"title"`
	Status           SessionStatus    `json:"status"`
	Position         int              `json:"position"`
	Total            int              `json:"total"`
	Current          QuestionForTaker `json:"current"`
	SelectedOption   *int             `json:"selected_option"`
	Flagged          bool             `json:"flagged"`
	Answers          map[int]int      `json:"answers"`
	Flags            []int            `json:"flags"`
	ProgressPercent  float64          `json:"progress_percent"`
	AnsweredCount    int              `json:"answered_count"`
	UnansweredCount  int              `json:"unanswered_count"`
	IsLastQuestion   bool             `json:"is_last_question"`
	FirstUnanswered  *int             `json:"first_unanswered"`
	FirstFlagged     *int             `json:"first_flagged"`
	Timed            bool             `json:"timed"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
	SecondsRemaining int              `json:"seconds_remaining"`
	StartedAt        time.Time        `json:"started_at"`
}

// CreateSessionRequest starts a session either from an inline question set
// (validated by the quiz validator) or from the saved one.
type CreateSessionRequest struct {
	QuestionSet json.RawMessage `json:"question_set"`
	UseSaved    bool            `json:"use_saved"`
}

// CreateSessionResponse carries the new session and its access token.
type CreateSessionResponse struct {
	Session SessionView `json:"session"`
	Token   string      `json:"token"`
}

// SelectAnswerRequest records an answer for the current question.
type SelectAnswerRequest struct {
	OptionIndex *int `json:"option_index" binding:"required,min=0"`
}

// GoToRequest jumps to a position.
type GoToRequest struct {
	Position *int `json:"position" binding:"required,min=0"`
}

// ToggleFlagRequest flips the flag of a position; the current one when omitted.
type ToggleFlagRequest struct {
	Position *int `json:"position" binding:"omitempty,min=0"`
}
