package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prdforge/prdforge/internal/project"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjectStore()

	p := &project.Project{
		OwnerKey:    "alice",
		Name:        "Todo App",
		Requirement: "a simple todo list",
	}
	require.NoError(t, store.Create(ctx, p))
	require.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := store.Get(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Todo App", got.Name)

	name := "Todo App v2"
	updated, err := store.Update(ctx, p.ID, "alice", project.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Todo App v2", updated.Name)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	require.NoError(t, store.Delete(ctx, p.ID, "alice"))
	_, err = store.Get(ctx, p.ID, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOwnerEnforcement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjectStore()

	p := &project.Project{OwnerKey: "alice", Name: "Private"}
	require.NoError(t, store.Create(ctx, p))

	_, err := store.Get(ctx, p.ID, "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	name := "Hijacked"
	_, err = store.Update(ctx, p.ID, "bob", project.Patch{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	err = store.Delete(ctx, p.ID, "bob")
	assert.ErrorIs(t, err, ErrForbidden)

	// Owner still sees the untouched record.
	got, err := store.Get(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Name)
}

func TestMemoryStoreMissingProject(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjectStore()

	_, err := store.Get(ctx, "nope", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Delete(ctx, "nope", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjectStore()

	first := &project.Project{OwnerKey: "alice", Name: "first"}
	require.NoError(t, store.Create(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := &project.Project{OwnerKey: "alice", Name: "second"}
	require.NoError(t, store.Create(ctx, second))
	other := &project.Project{OwnerKey: "bob", Name: "not mine"}
	require.NoError(t, store.Create(ctx, other))

	projects, err := store.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "second", projects[0].Name)
	assert.Equal(t, "first", projects[1].Name)
}

func TestMemoryStoreAnswersRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProjectStore()

	p := &project.Project{
		OwnerKey: "alice",
		Answers: map[string]project.Answer{
			"q1": {Value: "professionals"},
			"q2": {Values: []string{"web", "mobile"}, Multi: true},
		},
		ChatHistories: map[string][]project.ChatMessage{
			"initial": {
				{Role: "user", Content: "shorter please"},
				{Role: "assistant", Content: "# Draft"},
			},
		},
	}
	require.NoError(t, store.Create(ctx, p))

	got, err := store.Get(ctx, p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "professionals", got.Answers["q1"].Value)
	assert.Equal(t, []string{"web", "mobile"}, got.Answers["q2"].Values)
	assert.True(t, got.Answers["q2"].Multi)
	assert.Len(t, got.ChatHistories["initial"], 2)

	histories := map[string][]project.ChatMessage{
		"initial": {
			{Role: "user", Content: "shorter please"},
			{Role: "assistant", Content: "# Draft"},
			{Role: "user", Content: "add offline mode"},
			{Role: "assistant", Content: "# Draft v2"},
		},
	}
	updated, err := store.Update(ctx, p.ID, "alice", project.Patch{ChatHistories: &histories})
	require.NoError(t, err)
	assert.Len(t, updated.ChatHistories["initial"], 4)
}
