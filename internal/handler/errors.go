package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/generator"
	"github.com/stemsi/exstem-quiz/internal/quiz"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// failQuestionSet reports a rejected question set with the validator's
// message, e.g. "Question 3: Invalid correct answer index".
func failQuestionSet(c *gin.Context, status int, code response.ErrCode, verr *quiz.ValidationError) {
	fields := map[string]string{"reason": verr.Reason}
	if verr.Question > 0 {
		fields["question"] = strconv.Itoa(verr.Question)
	}
	response.FailWithMessage(c, status, code, verr.Error(), fields)
}

// failSession maps session service errors onto the response envelope.
func failSession(c *gin.Context, err error) {
	var verr *quiz.ValidationError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionMissing)
	case errors.Is(err, service.ErrSessionNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrNotCompleted)
	case errors.Is(err, service.ErrInvalidOption):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidOption)
	case errors.Is(err, service.ErrInvalidPosition):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrInvalidPosition)
	case errors.Is(err, service.ErrUnknownExportFormat):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFormat)
	case errors.Is(err, service.ErrNoSavedQuestionSet):
		response.Fail(c, http.StatusNotFound, response.ErrNoSavedQuestions)
	case errors.As(err, &verr):
		failQuestionSet(c, http.StatusUnprocessableEntity, response.ErrInvalidQuestions, verr)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// failGeneration maps generator failures; upstream problems are 502.
func failGeneration(c *gin.Context, err error) {
	var gerr *generator.GenerationError
	var verr *quiz.ValidationError
	switch {
	case errors.As(err, &gerr) && (gerr.Kind == generator.KindDecode || gerr.Kind == generator.KindInvalid):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrGenerationInvalid, gerr.Error(), nil)
	case errors.As(err, &gerr):
		response.FailWithMessage(c, http.StatusBadGateway, response.ErrGenerationFailed, gerr.Error(), nil)
	case errors.As(err, &verr):
		failQuestionSet(c, http.StatusBadGateway, response.ErrGenerationInvalid, verr)
	default:
		response.Fail(c, http.StatusBadGateway, response.ErrGenerationFailed)
	}
}
