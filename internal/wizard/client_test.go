package wizard

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdforge/prdforge/internal/api"
	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/gateway/prompt"
	"github.com/prdforge/prdforge/internal/identity"
	"github.com/prdforge/prdforge/internal/llm"
	"github.com/prdforge/prdforge/internal/project"
	"github.com/prdforge/prdforge/internal/storage"
)

// chunkedHandler replays fixed text chunks for any generation call.
type chunkedHandler struct {
	chunks []string
}

func (h *chunkedHandler) CreateMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (llm.ApiStream, error) {
	ch := make(chan llm.ApiStreamChunk, len(h.chunks))
	for _, text := range h.chunks {
		ch <- llm.ApiStreamTextChunk{Text: text}
	}
	close(ch)
	return ch, nil
}

func (h *chunkedHandler) ModelID() string { return "chunked" }

// failingChunkedHandler emits its chunks and then a provider failure.
type failingChunkedHandler struct {
	chunks []string
}

func (h *failingChunkedHandler) CreateMessage(ctx context.Context, systemPrompt string, messages []llm.Message) (llm.ApiStream, error) {
	ch := make(chan llm.ApiStreamChunk, len(h.chunks)+1)
	for _, text := range h.chunks {
		ch <- llm.ApiStreamTextChunk{Text: text}
	}
	ch <- llm.ApiStreamErrorChunk{Err: errors.New("rate limited")}
	close(ch)
	return ch, nil
}

func (h *failingChunkedHandler) ModelID() string { return "failing" }

func newRemoteClient(t *testing.T, handler llm.ApiHandler) *Client {
	t.Helper()
	server := api.NewServer(
		&config.Config{Port: 0},
		gateway.New(handler),
		storage.NewMemoryProjectStore(),
		identity.NewTokenProvider(map[string]string{"tok-alice": "alice"}),
		log.New(io.Discard),
	)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, "tok-alice", ts.Client())
}

func TestClientComplete(t *testing.T) {
	client := newRemoteClient(t, &chunkedHandler{chunks: []string{"# Draft", " body"}})

	text, err := client.Complete(context.Background(), gateway.Request{
		Messages: []llm.Message{{Role: "user", Content: "a todo app"}},
		Mode:     prompt.ModeGenerateInitialPRD,
	})
	require.NoError(t, err)
	assert.Equal(t, "# Draft body", text)
}

func TestClientStream(t *testing.T) {
	client := newRemoteClient(t, &chunkedHandler{chunks: []string{"one ", "two ", "three"}})

	fragments, err := client.Stream(context.Background(), gateway.Request{
		Messages: []llm.Message{{Role: "user", Content: "a todo app"}},
		Mode:     prompt.ModeGenerateInitialPRD,
	})
	require.NoError(t, err)

	var full string
	for frag := range fragments {
		require.NoError(t, frag.Err)
		full += frag.Text
	}
	assert.Equal(t, "one two three", full)
}

func TestClientProjectRoundTrip(t *testing.T) {
	client := newRemoteClient(t, &chunkedHandler{chunks: []string{"ok"}})
	ctx := context.Background()

	created, err := client.Create(ctx, &project.Project{
		Name:        "Todo App",
		Requirement: "a todo app",
		Answers: map[string]project.Answer{
			"q1": {Value: "個人"},
			"q2": {Values: []string{"Web"}, Multi: true},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := client.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Todo App", got.Name)
	assert.Equal(t, "個人", got.Answers["q1"].Value)
	assert.True(t, got.Answers["q2"].Multi)

	name := "Renamed"
	updated, err := client.Update(ctx, created.ID, &project.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	require.NoError(t, client.Delete(ctx, created.ID))
	_, err = client.Get(ctx, created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestClientStreamProviderFailure(t *testing.T) {
	client := newRemoteClient(t, &failingChunkedHandler{chunks: []string{"# Partial draft"}})

	fragments, err := client.Stream(context.Background(), gateway.Request{
		Messages: []llm.Message{{Role: "user", Content: "a todo app"}},
		Mode:     prompt.ModeGenerateInitialPRD,
	})
	require.NoError(t, err)

	// The server aborts the connection on the provider error, so the
	// fragment stream must end with an error, never a clean close after
	// only partial text.
	var sawErr bool
	for frag := range fragments {
		if frag.Err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr, "partial stream ended without an error fragment")
}

func TestRemoteStreamFailureRevertsStage(t *testing.T) {
	client := newRemoteClient(t, &failingChunkedHandler{chunks: []string{"# Partial draft"}})

	w := New(Options{Generator: client, Autosave: quietAutosave})
	t.Cleanup(w.Close)

	require.NoError(t, w.Start("a todo app"))
	err := w.GenerateInitialPRD(context.Background(), nil)

	// A provider failure partway through the draft must not be stored as
	// a successful generation.
	require.Error(t, err)
	assert.Equal(t, StageInitial, w.Session().Stage)
	assert.Empty(t, w.Session().InitialPRD)
}

func TestClientUnauthorizedMapsToForbidden(t *testing.T) {
	client := newRemoteClient(t, &chunkedHandler{chunks: []string{"ok"}})
	client.token = ""

	_, err := client.Create(context.Background(), &project.Project{Name: "Sneaky"})
	assert.ErrorIs(t, err, storage.ErrForbidden)
}
