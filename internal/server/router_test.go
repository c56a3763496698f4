package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"calculations-service/internal/auth"
	"calculations-service/internal/storage"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := storage.New(":memory:")
	require.NoError(t, err)
	tokens := auth.NewManager([]byte("test-secret"), time.Hour, 24*time.Hour, auth.NewMemoryBlacklist())
	return NewRouter(db, tokens, zap.NewNop())
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/users/me"},
		{http.MethodPut, "/users/me/profile"},
		{http.MethodPut, "/users/me/password"},
		{http.MethodGet, "/api/calculations"},
		{http.MethodPost, "/api/calculations"},
		{http.MethodGet, "/api/calculations/some-id"},
		{http.MethodDelete, "/api/calculations/some-id"},
		{http.MethodPost, "/api/calculate"},
		{http.MethodPost, "/auth/logout"},
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}
}
