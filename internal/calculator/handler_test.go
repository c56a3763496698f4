package calculator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"calculations-service/internal/auth"
	"calculations-service/internal/models"
	"calculations-service/internal/storage"
)

// testRouter mounts the calculation routes behind a stub auth middleware
// that pins the current user.
func testRouter(t *testing.T, userID string) (http.Handler, *storage.Calculations) {
	t.Helper()
	db, err := storage.New(":memory:")
	require.NoError(t, err)
	repo := storage.NewCalculations(db)
	logger := zap.NewNop()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithUserID(req.Context(), userID)))
		})
	})
	r.Post("/api/calculate", EvaluateHandler(logger))
	r.Route("/api/calculations", func(r chi.Router) {
		r.Get("/", BrowseHandler(repo))
		r.Post("/", CreateHandler(repo, logger))
		r.Get("/{id}", ReadHandler(repo))
		r.Put("/{id}", EditHandler(repo, logger))
		r.Patch("/{id}", EditHandler(repo, logger))
		r.Delete("/{id}", DeleteHandler(repo, logger))
	})
	return r, repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestCreate(t *testing.T) {
	router, _ := testRouter(t, "user-1")

	w := do(t, router, http.MethodPost, "/api/calculations/", `{"type":"ADDITION","inputs":[1,2,3]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "addition", resp.Type)
	assert.Equal(t, []float64{1, 2, 3}, resp.Inputs)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, "user-1", *resp.UserID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 6.0, *resp.Result)
}

func TestCreate_Division(t *testing.T) {
	router, _ := testRouter(t, "user-1")

	w := do(t, router, http.MethodPost, "/api/calculations/", `{"type":"division","inputs":[10,2]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 5.0, *resp.Result)
}

func TestCreate_ValidationErrors(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	cases := []struct {
		name string
		body string
		want string
	}{
		{"division by zero", `{"type":"division","inputs":[10,0]}`, "divide by zero"},
		{"too few inputs", `{"type":"addition","inputs":[5]}`, "at least 2 inputs"},
		{"unknown type", `{"type":"modulo","inputs":[1,2]}`, "unknown calculation type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/calculations/", tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}

	// Nothing was persisted.
	records, err := repo.ByUser("user-1", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBrowse(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	userID := "user-1"
	otherID := "user-2"
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&models.Calculation{
			Type:   "addition",
			Inputs: models.Float64Slice{float64(i), 1},
			UserID: &userID,
		}))
	}
	require.NoError(t, repo.Create(&models.Calculation{
		Type:   "addition",
		Inputs: models.Float64Slice{1, 2},
		UserID: &otherID,
	}))

	w := do(t, router, http.MethodGet, "/api/calculations/", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Len(t, out, 3)
	for _, resp := range out {
		require.NotNil(t, resp.Result)
	}

	w = do(t, router, http.MethodGet, "/api/calculations/?skip=1&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	out = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Len(t, out, 1)
}

func TestRead(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	userID := "user-1"
	c := &models.Calculation{Type: "multiplication", Inputs: models.Float64Slice{2, 3, 4}, UserID: &userID}
	require.NoError(t, repo.Create(c))

	w := do(t, router, http.MethodGet, "/api/calculations/"+c.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, c.ID, resp.ID)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 24.0, *resp.Result)
}

func TestRead_NotFoundAndForbidden(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	w := do(t, router, http.MethodGet, "/api/calculations/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	otherID := "user-2"
	c := &models.Calculation{Type: "addition", Inputs: models.Float64Slice{1, 2}, UserID: &otherID}
	require.NoError(t, repo.Create(c))

	w = do(t, router, http.MethodGet, "/api/calculations/"+c.ID, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEdit(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	userID := "user-1"
	c := &models.Calculation{Type: "addition", Inputs: models.Float64Slice{1, 2}, UserID: &userID}
	require.NoError(t, repo.Create(c))

	w := do(t, router, http.MethodPut, "/api/calculations/"+c.ID, `{"type":"multiplication","inputs":[3,4]}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, "multiplication", resp.Type)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 12.0, *resp.Result)

	// id and user_id survive the update.
	assert.Equal(t, c.ID, resp.ID)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, userID, *resp.UserID)
}

func TestEdit_PatchAlias(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	userID := "user-1"
	c := &models.Calculation{Type: "addition", Inputs: models.Float64Slice{1, 2}, UserID: &userID}
	require.NoError(t, repo.Create(c))

	w := do(t, router, http.MethodPatch, "/api/calculations/"+c.ID, `{"inputs":[7,8]}`)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w)
	assert.Equal(t, "addition", resp.Type)
	assert.Equal(t, []float64{7, 8}, resp.Inputs)
}

func TestEdit_InvalidPatchLeavesStoredRecordUnchanged(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	userID := "user-1"
	c := &models.Calculation{Type: "division", Inputs: models.Float64Slice{10, 2}, UserID: &userID}
	require.NoError(t, repo.Create(c))

	w := do(t, router, http.MethodPut, "/api/calculations/"+c.ID, `{"inputs":[10,0]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "divide by zero")

	stored, err := repo.ByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Float64Slice{10, 2}, stored.Inputs)
	assert.Equal(t, "division", stored.Type)
}

func TestDelete(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	userID := "user-1"
	c := &models.Calculation{Type: "addition", Inputs: models.Float64Slice{1, 2}, UserID: &userID}
	require.NoError(t, repo.Create(c))

	w := do(t, router, http.MethodDelete, "/api/calculations/"+c.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := repo.ByID(c.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	w = do(t, router, http.MethodDelete, "/api/calculations/"+c.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvaluate(t *testing.T) {
	router, _ := testRouter(t, "user-1")

	w := do(t, router, http.MethodPost, "/api/calculate", `{"expression":"2+3*4"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp EvaluateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 14.0, resp.Result)

	w = do(t, router, http.MethodPost, "/api/calculate", `{"expression":"2+"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoundTrip(t *testing.T) {
	router, repo := testRouter(t, "user-1")

	w := do(t, router, http.MethodPost, "/api/calculations/", `{"type":"subtraction","inputs":[10,3,2]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeResponse(t, w)

	stored, err := repo.ByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Type, stored.Type)
	assert.Equal(t, models.Float64Slice(created.Inputs), stored.Inputs)

	// Reading back recomputes an identical result.
	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/calculations/%s", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	read := decodeResponse(t, w)
	require.NotNil(t, read.Result)
	assert.Equal(t, *created.Result, *read.Result)
}
