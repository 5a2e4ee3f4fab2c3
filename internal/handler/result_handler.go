package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type resultService interface {
	ListResults(ctx context.Context, req service.ListResultsRequest) ([]models.SubjectResult, *models.Pagination, error)
	ComputeSubjectResult(ctx context.Context, req service.ComputeRequest) (*models.Derivation, error)
	RecordMarks(ctx context.Context, req service.RecordMarksRequest) (*models.SubjectResult, error)
	CorrectMarks(ctx context.Context, id string, req service.CorrectMarksRequest) (*models.SubjectResult, error)
	DeleteResult(ctx context.Context, id string) error
}

// ResultHandler exposes marks entry endpoints.
type ResultHandler struct {
	service resultService
}

// NewResultHandler builds a new handler.
func NewResultHandler(service resultService) *ResultHandler {
	return &ResultHandler{service: service}
}

// Compute godoc
// @Summary Derive grade and points for marks
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body service.ComputeRequest true "Marks and education level"
// @Success 200 {object} response.Envelope
// @Router /grading/compute [post]
func (h *ResultHandler) Compute(c *gin.Context) {
	var req service.ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid compute payload"))
		return
	}
	derived, err := h.service.ComputeSubjectResult(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, derived, nil)
}

// List godoc
// @Summary List recorded results
// @Tags Results
// @Produce json
// @Param student_id query string false "Student ID"
// @Param exam_id query string false "Exam ID"
// @Param subject_id query string false "Subject ID"
// @Param education_level query string false "O_LEVEL or A_LEVEL"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	req := service.ListResultsRequest{
		StudentID:      c.Query("student_id"),
		ExamID:         c.Query("exam_id"),
		SubjectID:      c.Query("subject_id"),
		EducationLevel: models.EducationLevel(c.Query("education_level")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		req.PageSize = size
	}
	results, pagination, err := h.service.ListResults(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, pagination)
}

// Record godoc
// @Summary Record marks for a subject
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.RecordMarksRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Record(c *gin.Context) {
	var req service.RecordMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid result payload"))
		return
	}
	result, err := h.service.RecordMarks(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Correct godoc
// @Summary Correct the marks of a result
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Result ID"
// @Param payload body service.CorrectMarksRequest true "Corrected marks"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/marks [put]
func (h *ResultHandler) Correct(c *gin.Context) {
	var req service.CorrectMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid correction payload"))
		return
	}
	result, err := h.service.CorrectMarks(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a result
// @Tags Results
// @Param id path string true "Result ID"
// @Success 204
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteResult(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
