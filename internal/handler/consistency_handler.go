package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
)

type consistencyService interface {
	RunChecks(ctx context.Context) (*models.ConsistencyReport, error)
	LastReport(ctx context.Context) (*models.ConsistencyReport, error)
	CheckDuplicates(ctx context.Context) (*models.DuplicateCheck, error)
	CheckDerivations(ctx context.Context) (*models.DerivationCheck, error)
	CheckMissingFields(ctx context.Context) (*models.MissingFieldsCheck, error)
	CheckOrphans(ctx context.Context) (*models.OrphanCheck, error)
	Repair(ctx context.Context, opts service.RepairOptions) (*models.RepairReport, error)
}

// ConsistencyHandler exposes the data consistency monitor and repairer.
type ConsistencyHandler struct {
	service consistencyService
}

// NewConsistencyHandler builds a new handler.
func NewConsistencyHandler(service consistencyService) *ConsistencyHandler {
	return &ConsistencyHandler{service: service}
}

// RunChecks godoc
// @Summary Run every consistency check
// @Tags Consistency
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /consistency/checks [post]
func (h *ConsistencyHandler) RunChecks(c *gin.Context) {
	report, err := h.service.RunChecks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Latest godoc
// @Summary Most recent consistency report
// @Tags Consistency
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /consistency/checks/latest [get]
func (h *ConsistencyHandler) Latest(c *gin.Context) {
	report, err := h.service.LastReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, true)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Check godoc
// @Summary Run a single consistency check
// @Tags Consistency
// @Produce json
// @Param kind path string true "duplicates, derivations, missing-fields or orphans"
// @Success 200 {object} response.Envelope
// @Router /consistency/checks/{kind} [post]
func (h *ConsistencyHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		result interface{}
		err    error
	)
	switch c.Param("kind") {
	case "duplicates":
		result, err = h.service.CheckDuplicates(ctx)
	case "derivations":
		result, err = h.service.CheckDerivations(ctx)
	case "missing-fields":
		result, err = h.service.CheckMissingFields(ctx)
	case "orphans":
		result, err = h.service.CheckOrphans(ctx)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown consistency check"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Repair godoc
// @Summary Repair duplicates, derivations and orphans
// @Tags Consistency
// @Produce json
// @Param dry_run query bool false "Report what would change without writing"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /consistency/repair [post]
func (h *ConsistencyHandler) Repair(c *gin.Context) {
	dryRun := false
	if raw := c.Query("dry_run"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dry_run must be a boolean"))
			return
		}
		dryRun = parsed
	}
	report, err := h.service.Repair(c.Request.Context(), service.RepairOptions{DryRun: dryRun})
	if err != nil {
		if report != nil {
			response.Partial(c, report, err)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
