package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return seen, w.Header().Get(headerKey)
}

func TestMiddlewareReusesCallerID(t *testing.T) {
	seen, echoed := serve(t, "batch-42.retry_1")
	assert.Equal(t, "batch-42.retry_1", seen)
	assert.Equal(t, seen, echoed)
}

func TestMiddlewareReplacesUnsafeIDs(t *testing.T) {
	for _, header := range []string{"", "bad id\nforged=1", strings.Repeat("a", maxLength+1)} {
		seen, echoed := serve(t, header)
		_, err := uuid.Parse(seen)
		require.NoError(t, err, "header %q", header)
		assert.Equal(t, seen, echoed)
	}
}
