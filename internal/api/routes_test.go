package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/retailpulse/retailpulse-go/internal/api/handlers"
	"github.com/retailpulse/retailpulse-go/internal/logging"
)

// The handlers reject malformed requests before touching their dependencies,
// so route registration can be exercised with nil-backed handlers.
func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.NewStandardLogger("error", "development")

	router := gin.New()
	SetupRoutes(router,
		handlers.NewAnalyticsHandler(nil, nil, logger),
		handlers.NewRecordsHandler(nil, nil, logger),
		handlers.NewHealthHandler(nil, nil, nil, "test"),
	)
	return router
}

func TestRoutesAreRegistered(t *testing.T) {
	router := newRouter()

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/analytics/forecast", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/analytics/pricing", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/analytics/trend", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/analytics/rankings/forecast", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/analytics/rankings/trend", http.StatusBadRequest},
		{http.MethodPost, "/api/v1/records", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}
