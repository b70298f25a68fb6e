package websocket

import (
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/report"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionGoTo     Action = "goto"
	ActionFlag     Action = "flag"
	ActionComplete Action = "complete"
	ActionPing     Action = "ping"
)

// RequestPayload carries every client action. Option is used by answer,
// Position by goto and optionally by flag.
type RequestPayload struct {
	Action   Action `json:"action"`
	Option   *int   `json:"option_index,omitempty"`
	Position *int   `json:"position,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventTick      Event = "tick"
	EventCompleted Event = "completed"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse is sent on connect and after every accepted action.
type StateResponse struct {
	Event   Event             `json:"event"`
	Session model.SessionView `json:"session"`
}

// TickResponse reports the countdown once per second for timed sessions.
type TickResponse struct {
	Event            Event `json:"event"`
	SecondsRemaining int   `json:"seconds_remaining"`
}

// CompletedResponse carries the final report, whether completion was
// requested or caused by the timer.
type CompletedResponse struct {
	Event  Event          `json:"event"`
	Report *report.Report `json:"report"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
