package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/identity"
	"github.com/prdforge/prdforge/internal/llm"
	"github.com/prdforge/prdforge/internal/project"
	"github.com/prdforge/prdforge/internal/storage"
)

// scriptedHandler replays fixed text chunks for any generation call.
type scriptedHandler struct {
	chunks []string
	err    error
}

func (h *scriptedHandler) CreateMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (llm.ApiStream, error) {
	if h.err != nil {
		return nil, h.err
	}
	ch := make(chan llm.ApiStreamChunk, len(h.chunks))
	for _, text := range h.chunks {
		ch <- llm.ApiStreamTextChunk{Text: text}
	}
	close(ch)
	return ch, nil
}

func (h *scriptedHandler) ModelID() string { return "scripted" }

func newTestServer(t *testing.T, handler llm.ApiHandler) (*Server, storage.ProjectStore) {
	t.Helper()
	if handler == nil {
		handler = &scriptedHandler{chunks: []string{"ok"}}
	}
	cfg := &config.Config{Port: 0}
	store := storage.NewMemoryProjectStore()
	idp := identity.NewTokenProvider(map[string]string{
		"tok-alice": "alice",
		"tok-bob":   "bob",
	})
	server := NewServer(cfg, gateway.New(handler), store, idp, log.New(io.Discard))
	return server, store
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProjectCRUD(t *testing.T) {
	server, _ := newTestServer(t, nil)
	h := server.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/projects", "tok-alice", project.Project{
		Name:        "Todo App",
		Requirement: "a simple todo list",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	rec = doJSON(t, h, "GET", "/api/v1/projects/"+created.ID, "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "PATCH", "/api/v1/projects/"+created.ID, "tok-alice",
		map[string]string{"name": "Todo App v2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Todo App v2", updated.Name)

	rec = doJSON(t, h, "GET", "/api/v1/projects", "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Projects []project.Project `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Len(t, listing.Projects, 1)

	rec = doJSON(t, h, "DELETE", "/api/v1/projects/"+created.ID, "tok-alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "GET", "/api/v1/projects/"+created.ID, "tok-alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectAccessControl(t *testing.T) {
	server, _ := newTestServer(t, nil)
	h := server.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/projects", "tok-alice", project.Project{Name: "Private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created project.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	t.Run("anonymous create rejected", func(t *testing.T) {
		rec := doJSON(t, h, "POST", "/api/v1/projects", "", project.Project{Name: "Sneaky"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anonymous item read rejected", func(t *testing.T) {
		rec := doJSON(t, h, "GET", "/api/v1/projects/"+created.ID, "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("other owner rejected", func(t *testing.T) {
		rec := doJSON(t, h, "GET", "/api/v1/projects/"+created.ID, "tok-bob", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = doJSON(t, h, "DELETE", "/api/v1/projects/"+created.ID, "tok-bob", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("anonymous collection read allowed", func(t *testing.T) {
		rec := doJSON(t, h, "GET", "/api/v1/projects", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		rec := doJSON(t, h, "GET", "/api/v1/projects", "tok-mallory", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGenerateBuffered(t *testing.T) {
	server, _ := newTestServer(t, &scriptedHandler{chunks: []string{"# PRD", " body"}})
	h := server.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/generate", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "a todo app"}},
		"mode":     "generateInitialPRD",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "# PRD body", body.Message)
}

func TestGenerateStreamed(t *testing.T) {
	server, _ := newTestServer(t, &scriptedHandler{chunks: []string{"one ", "two ", "three"}})
	h := server.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/generate", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "a todo app"}},
		"mode":     "generateInitialPRD",
		"stream":   true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, "one two three", rec.Body.String())
}

func TestGenerateUnknownMode(t *testing.T) {
	server, _ := newTestServer(t, nil)
	h := server.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/generate", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
		"mode":     "summarizeEverything",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateMissingMessages(t *testing.T) {
	server, _ := newTestServer(t, nil)
	h := server.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/generate", "", map[string]any{
		"mode": "generateInitialPRD",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, nil)
	rec := doJSON(t, server.Handler(), "GET", "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
