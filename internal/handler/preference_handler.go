package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

type PreferenceHandler struct {
	prefs *service.PreferenceService
}

func NewPreferenceHandler(prefs *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// GetPreferences godoc
// GET /api/v1/preferences
func (h *PreferenceHandler) GetPreferences(c *gin.Context) {
	prefs, err := h.prefs.GetPreferences(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, prefs)
}

// UpdatePreferences godoc
// PUT /api/v1/preferences
func (h *PreferenceHandler) UpdatePreferences(c *gin.Context) {
	var req model.UpdatePreferencesRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.prefs.SetDarkMode(c.Request.Context(), *req.DarkMode); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, model.Preferences{DarkMode: *req.DarkMode})
}
