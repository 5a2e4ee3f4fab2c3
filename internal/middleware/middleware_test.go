package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
)

type fixedVersion int64

func (v fixedVersion) Version() int64 { return int64(v) }

type observation struct {
	method string
	path   string
	status int
}

type observerStub struct {
	seen []observation
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.seen = append(o.seen, observation{method: method, path: path, status: status})
}

func TestWithResponseMetaStampsVersionAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta(fixedVersion(7)))

	var meta map[string]interface{}
	r.GET("/reports", func(c *gin.Context) {
		SetCacheHit(c, false)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/reports", nil)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, meta)
	assert.Equal(t, int64(7), meta["grading_version"])
	assert.Equal(t, "req-1", meta["request_id"])
	assert.Equal(t, false, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))

	SetCacheHit(c, true)
	assert.Equal(t, true, ExtractMeta(c)[cacheHitKey])
}

func TestMetricsUsesRouteTemplateAndSkipsHealthChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/reports/students/:studentId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, target := range []string{"/reports/students/s1", "/health", "/nowhere/123"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{method: http.MethodGet, path: "/reports/students/:studentId", status: http.StatusOK}, observer.seen[0])
	assert.Equal(t, observation{method: http.MethodGet, path: "unmatched", status: http.StatusNotFound}, observer.seen[1])
}
