package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Results     *ResultHandler
	Reports     *ReportHandler
	Consistency *ConsistencyHandler
	Grading     *GradingHandler
	Metrics     *MetricsHandler
}

// RegisterRoutes mounts the API under prefix and the health checks at the root.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	grading := api.Group("/grading")
	grading.POST("/compute", h.Results.Compute)
	grading.GET("/tables", h.Grading.Tables)
	grading.PUT("/tables/:level/grades", h.Grading.ReplaceGrades)
	grading.PUT("/tables/:level/divisions", h.Grading.ReplaceDivisions)

	results := api.Group("/results")
	results.GET("", h.Results.List)
	results.POST("", h.Results.Record)
	results.PUT("/:id/marks", h.Results.Correct)
	results.DELETE("/:id", h.Results.Delete)

	reports := api.Group("/reports")
	reports.GET("/students/:studentId", h.Reports.Student)
	reports.GET("/classes/:classId", h.Reports.Class)

	consistency := api.Group("/consistency")
	consistency.POST("/checks", h.Consistency.RunChecks)
	consistency.GET("/checks/latest", h.Consistency.Latest)
	consistency.POST("/checks/:kind", h.Consistency.Check)
	consistency.POST("/repair", h.Consistency.Repair)
}
