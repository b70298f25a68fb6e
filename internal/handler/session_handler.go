package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// SessionHandler exposes the quiz session intents over HTTP. Every route
// except CreateSession sits behind middleware.RequireSessionToken.
type SessionHandler struct {
	sessions     *service.SessionService
	questionSets *service.QuestionSetService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, questionSets *service.QuestionSetService) *SessionHandler {
	return &SessionHandler{sessions: sessions, questionSets: questionSets}
}

// CreateSession godoc
// POST /api/v1/sessions
// Starts a session from an inline question set or the saved one and returns
// the token that unlocks it.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx := c.Request.Context()
	var (
		res *model.CreateSessionResponse
		err error
	)
	switch {
	case req.UseSaved:
		res, err = h.sessions.CreateFromSaved(ctx)
	case len(req.QuestionSet) == 0 || string(req.QuestionSet) == "null":
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"question_set": "question_set is required unless use_saved is true",
		})
		return
	default:
		set, verr := h.questionSets.Validate(req.QuestionSet)
		if verr != nil {
			failSession(c, verr)
			return
		}
		res, err = h.sessions.Create(ctx, set)
	}
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// GetSession godoc
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	h.respond(c, func(id uuid.UUID) (model.SessionView, error) { return h.sessions.Get(id) })
}

// Answer godoc
// POST /api/v1/sessions/:id/answer
func (h *SessionHandler) Answer(c *gin.Context) {
	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c, func(id uuid.UUID) (model.SessionView, error) { return h.sessions.Answer(id, *req.OptionIndex) })
}

// Next godoc
// POST /api/v1/sessions/:id/next
func (h *SessionHandler) Next(c *gin.Context) {
	h.respond(c, h.sessions.Next)
}

// Previous godoc
// POST /api/v1/sessions/:id/previous
func (h *SessionHandler) Previous(c *gin.Context) {
	h.respond(c, h.sessions.Previous)
}

// GoTo godoc
// POST /api/v1/sessions/:id/goto
func (h *SessionHandler) GoTo(c *gin.Context) {
	var req model.GoToRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c, func(id uuid.UUID) (model.SessionView, error) { return h.sessions.GoTo(id, *req.Position) })
}

// ToggleFlag godoc
// POST /api/v1/sessions/:id/flag
// Flags the current question, or the one at "position" when given.
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	var req model.ToggleFlagRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	h.respond(c, func(id uuid.UUID) (model.SessionView, error) { return h.sessions.ToggleFlag(id, req.Position) })
}

// Complete godoc
// POST /api/v1/sessions/:id/complete
func (h *SessionHandler) Complete(c *gin.Context) {
	h.respond(c, h.sessions.Complete)
}

// Restart godoc
// POST /api/v1/sessions/:id/restart
// Discards the session and starts a new one on the same question set. The
// old token stops working.
func (h *SessionHandler) Restart(c *gin.Context) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	res, err := h.sessions.Restart(c.Request.Context(), id)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// GetResult godoc
// GET /api/v1/sessions/:id/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rep, err := h.sessions.Result(id)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, rep)
}

// ExportResult godoc
// GET /api/v1/sessions/:id/result/export?format=json|xlsx
func (h *SessionHandler) ExportResult(c *gin.Context) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	export, err := h.sessions.Export(id, c.DefaultQuery("format", "json"))
	if err != nil {
		failSession(c, err)
		return
	}
	response.Attachment(c, export.Filename, export.ContentType, export.Data)
}

func (h *SessionHandler) respond(c *gin.Context, intent func(uuid.UUID) (model.SessionView, error)) {
	id, ok := middleware.GetSessionID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	view, err := intent(id)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}
