package directory

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/pkg/middleware"
	"github.com/fkhayef/splitdraft/pkg/response"
)

type envelope struct {
	Success bool               `json:"success"`
	Data    json.RawMessage    `json:"data"`
	Error   *response.APIError `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	h := NewHandler(newTestService(t))
	r := chi.NewRouter()
	r.Use(middleware.DevUserMiddleware)
	r.Mount("/users", h.UserRoutes())
	r.Mount("/groups", h.GroupRoutes())
	return r
}

func call(t *testing.T, router http.Handler, method, path, userID string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(middleware.DevUserHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func createUser(t *testing.T, router http.Handler, name, email string) UserResponse {
	t.Helper()
	status, env := call(t, router, http.MethodPost, "/users", "", map[string]string{"name": name, "email": email})
	require.Equal(t, http.StatusCreated, status)
	var u UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &u))
	return u
}

func TestHandler_Users(t *testing.T) {
	router := newTestRouter(t)
	asha := createUser(t, router, "Asha", "asha@example.com")

	status, env := call(t, router, http.MethodPost, "/users", "", map[string]string{"name": "Dup", "email": "asha@example.com"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	status, env = call(t, router, http.MethodGet, "/users/me", asha.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var me UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Asha", me.Name)

	status, _ = call(t, router, http.MethodGet, "/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, router, http.MethodGet, "/users/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandler_Groups(t *testing.T) {
	router := newTestRouter(t)
	asha := createUser(t, router, "Asha", "asha@example.com")
	bilal := createUser(t, router, "Bilal", "bilal@example.com")

	status, env := call(t, router, http.MethodPost, "/groups", asha.ID, map[string]any{
		"name":       "Trip",
		"member_ids": []string{bilal.ID},
	})
	require.Equal(t, http.StatusCreated, status)
	var group GroupResponse
	require.NoError(t, json.Unmarshal(env.Data, &group))
	require.Len(t, group.Members, 2)
	assert.Equal(t, asha.ID, group.Members[0].ID)

	status, env = call(t, router, http.MethodGet, "/groups/"+group.ID+"/participants", asha.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var participants []split.Participant
	require.NoError(t, json.Unmarshal(env.Data, &participants))
	assert.Equal(t, "Bilal", participants[1].Name)

	status, _ = call(t, router, http.MethodGet, "/groups/missing", asha.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, router, http.MethodPost, "/groups", asha.ID, map[string]any{"name": "X", "member_ids": []string{"ghost"}})
	assert.Equal(t, http.StatusNotFound, status)
}
