package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// ResultLister reads persisted attempts.
type ResultLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.StoredResult, error)
}

// ResultHandler serves the history of completed attempts. It is only
// functional when results are persisted to PostgreSQL.
type ResultHandler struct {
	results ResultLister
	log     zerolog.Logger
}

// NewResultHandler creates a ResultHandler; results may be nil.
func NewResultHandler(results ResultLister, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		log:     log.With().Str("component", "result_handler").Logger(),
	}
}

// ListResults godoc
// GET /api/v1/results?limit=20
func (h *ResultHandler) ListResults(c *gin.Context) {
	if h.results == nil {
		response.Fail(c, http.StatusNotImplemented, response.ErrFeatureUnavailable)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"limit": "limit must be a positive number",
		})
		return
	}
	limit = min(limit, 100)

	results, err := h.results.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list results failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []model.StoredResult{}
	}
	response.Success(c, http.StatusOK, gin.H{"results": results})
}
