package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func request(origins []string, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/reports", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, "/reports", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAllowListedOriginGetsCredentials(t *testing.T) {
	w := request([]string{"https://school.example/"}, http.MethodGet, "https://School.example")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://School.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestUnknownOriginIsNotEchoed(t *testing.T) {
	w := request([]string{"https://school.example"}, http.MethodGet, "https://evil.example")

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestOpenPolicyUsesWildcardWithoutCredentials(t *testing.T) {
	w := request(nil, http.MethodOptions, "https://anyone.example")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}
