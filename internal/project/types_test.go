package project

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerWireShape(t *testing.T) {
	// Single answers travel as strings, multi-select as arrays; both come
	// back with the same distinction.
	answers := map[string]Answer{
		"q1": {Value: "personal"},
		"q2": {Values: []string{"web", "mobile"}, Multi: true},
	}

	data, err := json.Marshal(answers)
	require.NoError(t, err)
	assert.JSONEq(t, `{"q1": "personal", "q2": ["web", "mobile"]}`, string(data))

	var decoded map[string]Answer
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "personal", decoded["q1"].Value)
	assert.False(t, decoded["q1"].Multi)
	assert.Equal(t, []string{"web", "mobile"}, decoded["q2"].Values)
	assert.True(t, decoded["q2"].Multi)

	var bad Answer
	assert.Error(t, json.Unmarshal([]byte(`{"nested": true}`), &bad))
}

func TestAnswerEmpty(t *testing.T) {
	assert.True(t, Answer{}.Empty())
	assert.True(t, Answer{Multi: true}.Empty())
	assert.False(t, Answer{Value: "x"}.Empty())
	assert.False(t, Answer{Values: []string{"x"}, Multi: true}.Empty())
}

func TestPatchApply(t *testing.T) {
	p := &Project{Name: "old", Requirement: "keep me"}

	name := "new"
	pages := []Page{{ID: "p1", Name: "Home"}}
	(Patch{Name: &name, Pages: &pages}).Apply(p)

	assert.Equal(t, "new", p.Name)
	assert.Equal(t, "keep me", p.Requirement)
	assert.Len(t, p.Pages, 1)
}

func TestActiveAndDeletedPages(t *testing.T) {
	p := &Project{Pages: []Page{
		{ID: "p1", Name: "Home"},
		{ID: "p2", Name: "Settings", Deleted: true, DeleteReason: "duplicate"},
		{ID: "p3", Name: "Profile"},
	}}

	active := p.ActivePages()
	require.Len(t, active, 2)
	assert.Equal(t, "p1", active[0].ID)

	deleted := p.DeletedPages()
	require.Len(t, deleted, 1)
	assert.Equal(t, "duplicate", deleted[0].DeleteReason)
}
