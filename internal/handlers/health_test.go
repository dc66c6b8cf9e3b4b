package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moverap/backend/internal/handlers"
	"github.com/stretchr/testify/assert"
)

func TestHealth(t *testing.T) {
	handler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": &handlers.MockHealthChecker{},
	}, handlers.DiscardLogger())

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest("GET", "/health", nil))

	var resp handlers.HealthResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
}

func TestHealth_Degraded(t *testing.T) {
	handler := handlers.NewHealthHandler(map[string]handlers.HealthChecker{
		"database": &handlers.MockHealthChecker{},
		"redis":    &handlers.MockHealthChecker{Err: errors.New("connection refused")},
	}, handlers.DiscardLogger())

	w := httptest.NewRecorder()
	handler.Health(w, httptest.NewRequest("GET", "/health", nil))

	var resp handlers.HealthResponse
	handlers.AssertJSONResponse(t, w, http.StatusServiceUnavailable, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Checks["redis"])
	assert.NotContains(t, w.Body.String(), "connection refused")
}
