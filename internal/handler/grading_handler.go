package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type gradingConfigService interface {
	Tables() models.GradingTables
	ReplaceGradeTable(ctx context.Context, level models.EducationLevel, req service.GradeTableRequest) (*service.TableReplaceResult, error)
	ReplaceDivisionTable(ctx context.Context, level models.EducationLevel, req service.DivisionTableRequest) (*service.TableReplaceResult, error)
}

// GradingHandler exposes the grade and division tables.
type GradingHandler struct {
	service gradingConfigService
}

// NewGradingHandler builds a new handler.
func NewGradingHandler(service gradingConfigService) *GradingHandler {
	return &GradingHandler{service: service}
}

// Tables godoc
// @Summary Active grading tables
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grading/tables [get]
func (h *GradingHandler) Tables(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Tables(), nil)
}

// ReplaceGrades godoc
// @Summary Replace the grade table of a level
// @Tags Grading
// @Accept json
// @Produce json
// @Param level path string true "O_LEVEL or A_LEVEL"
// @Param payload body service.GradeTableRequest true "Grade bands"
// @Success 200 {object} response.Envelope
// @Router /grading/tables/{level}/grades [put]
func (h *GradingHandler) ReplaceGrades(c *gin.Context) {
	level, ok := levelParam(c)
	if !ok {
		return
	}
	var req service.GradeTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade table payload"))
		return
	}
	result, err := h.service.ReplaceGradeTable(c.Request.Context(), level, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReplaceDivisions godoc
// @Summary Replace the division table of a level
// @Tags Grading
// @Accept json
// @Produce json
// @Param level path string true "O_LEVEL or A_LEVEL"
// @Param payload body service.DivisionTableRequest true "Division bands"
// @Success 200 {object} response.Envelope
// @Router /grading/tables/{level}/divisions [put]
func (h *GradingHandler) ReplaceDivisions(c *gin.Context) {
	level, ok := levelParam(c)
	if !ok {
		return
	}
	var req service.DivisionTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid division table payload"))
		return
	}
	result, err := h.service.ReplaceDivisionTable(c.Request.Context(), level, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func levelParam(c *gin.Context) (models.EducationLevel, bool) {
	level := models.EducationLevel(strings.ToUpper(strings.TrimSpace(c.Param("level"))))
	if !level.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "education level must be O_LEVEL or A_LEVEL"))
		return "", false
	}
	return level, true
}
