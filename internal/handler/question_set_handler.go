package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// QuestionSetHandler serves the question sources: upload validation, the
// sample, AI generation and the saved set.
type QuestionSetHandler struct {
	questionSets *service.QuestionSetService
	prefs        *service.PreferenceService
}

// NewQuestionSetHandler creates a new QuestionSetHandler.
func NewQuestionSetHandler(questionSets *service.QuestionSetService, prefs *service.PreferenceService) *QuestionSetHandler {
	return &QuestionSetHandler{questionSets: questionSets, prefs: prefs}
}

// GetSample godoc
// GET /api/v1/question-sets/sample
// Returns the built-in sample. With ?download=true it is sent as a file
// showing the upload format.
func (h *QuestionSetHandler) GetSample(c *gin.Context) {
	set := h.questionSets.Sample()
	if c.Query("download") != "true" {
		response.Success(c, http.StatusOK, set)
		return
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Attachment(c, "sample-questions.json", "application/json", data)
}

// Validate godoc
// POST /api/v1/question-sets/validate
// Accepts a raw question-set document, as uploaded or pasted.
func (h *QuestionSetHandler) Validate(c *gin.Context) {
	set, ok := h.readQuestionSet(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, set)
}

// Upload godoc
// POST /api/v1/question-sets/upload
// Accepts a .json question-set file as multipart field "file".
func (h *QuestionSetHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	set, err := h.questionSets.ValidateUpload(file, header)
	if err != nil {
		var verr *quiz.ValidationError
		switch {
		case errors.As(err, &verr):
			failQuestionSet(c, http.StatusUnprocessableEntity, response.ErrInvalidQuestions, verr)
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, set)
}

// Generate godoc
// POST /api/v1/question-sets/generate
func (h *QuestionSetHandler) Generate(c *gin.Context) {
	var req model.GenerateQuestionSetRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	set, err := h.questionSets.Generate(c.Request.Context(), req.Topic)
	if err != nil {
		failGeneration(c, err)
		return
	}
	response.Success(c, http.StatusOK, set)
}

// GetSaved godoc
// GET /api/v1/question-sets/saved
func (h *QuestionSetHandler) GetSaved(c *gin.Context) {
	set, err := h.prefs.SavedQuestionSet(c.Request.Context())
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, set)
}

// PutSaved godoc
// PUT /api/v1/question-sets/saved
func (h *QuestionSetHandler) PutSaved(c *gin.Context) {
	set, ok := h.readQuestionSet(c)
	if !ok {
		return
	}
	if err := h.prefs.SaveQuestionSet(c.Request.Context(), set); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, set)
}

// DeleteSaved godoc
// DELETE /api/v1/question-sets/saved
func (h *QuestionSetHandler) DeleteSaved(c *gin.Context) {
	if err := h.prefs.ClearSavedQuestionSet(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "saved question set cleared"})
}

// readQuestionSet validates the raw request body and writes the failure
// response itself.
func (h *QuestionSetHandler) readQuestionSet(c *gin.Context) (*model.QuestionSet, bool) {
	data, err := c.GetRawData()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return nil, false
	}

	set, err := h.questionSets.Validate(data)
	if err != nil {
		var verr *quiz.ValidationError
		if errors.As(err, &verr) {
			failQuestionSet(c, http.StatusUnprocessableEntity, response.ErrInvalidQuestions, verr)
			return nil, false
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return nil, false
	}
	return set, true
}
