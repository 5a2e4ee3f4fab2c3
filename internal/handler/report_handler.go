package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type reportService interface {
	BuildStudentReport(ctx context.Context, studentID, examID string) (*models.StudentReport, error)
	BuildClassReport(ctx context.Context, classID, examID string) (*models.ClassReport, error)
}

// ReportHandler serves student and class result reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler builds a new handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Student godoc
// @Summary Student result report
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param exam_id query string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{studentId} [get]
func (h *ReportHandler) Student(c *gin.Context) {
	examID := c.Query("exam_id")
	if examID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_id is required"))
		return
	}
	report, err := h.service.BuildStudentReport(c.Request.Context(), c.Param("studentId"), examID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Class godoc
// @Summary Class result report
// @Tags Reports
// @Produce json
// @Param classId path string true "Class ID"
// @Param exam_id query string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /reports/classes/{classId} [get]
func (h *ReportHandler) Class(c *gin.Context) {
	examID := c.Query("exam_id")
	if examID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exam_id is required"))
		return
	}
	report, err := h.service.BuildClassReport(c.Request.Context(), c.Param("classId"), examID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}
