package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/service"
)

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, pingerStub{}, &gradingServiceStub{})

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","grading_version":3}`, w.Body.String())
}

func TestMetricsHandlerReadyWithoutDatabase(t *testing.T) {
	handler := NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")}, nil)

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordWarning("MISSING_MARKS")
	handler := NewMetricsHandler(metrics, nil, nil)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `results_report_warnings_total{code="MISSING_MARKS"} 1`)
}

func TestMetricsHandlerPrometheusDisabled(t *testing.T) {
	handler := NewMetricsHandler(nil, nil, nil)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
