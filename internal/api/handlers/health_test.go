package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) HealthCheck(context.Context) error {
	return s.err
}

type stubReporter struct{}

func (stubReporter) GetSystemInfo() map[string]interface{} {
	return map[string]interface{}{"max_workers": 4}
}

func newHealthRouter(db, redis Pinger, system SystemReporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", NewHealthHandler(db, redis, system, "1.2.3").HealthCheck)
	return router
}

func TestHealthCheckAllHealthy(t *testing.T) {
	router := newHealthRouter(&stubPinger{}, &stubPinger{}, stubReporter{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	services := body["services"].(map[string]interface{})
	assert.Equal(t, "healthy", services["database"])
	assert.Equal(t, "healthy", services["redis"])

	system := body["system"].(map[string]interface{})
	assert.Equal(t, float64(4), system["max_workers"])
}

func TestHealthCheckDegradedDatabase(t *testing.T) {
	router := newHealthRouter(&stubPinger{err: errors.New("no connection")}, &stubPinger{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestHealthCheckUnconfiguredDependencies(t *testing.T) {
	router := newHealthRouter(nil, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	services := body["services"].(map[string]interface{})
	assert.Equal(t, "not configured", services["database"])
}
