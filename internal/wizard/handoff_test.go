package wizard

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandoffReadOnce(t *testing.T) {
	var h Handoff
	h.Put("幫我做一個待辦事項應用")

	got, ok := h.Take(url.Values{})
	assert.True(t, ok)
	assert.Equal(t, "幫我做一個待辦事項應用", got)

	// The slot is spent after one read.
	_, ok = h.Take(url.Values{})
	assert.False(t, ok)
}

func TestHandoffQueryFallback(t *testing.T) {
	var h Handoff

	query := url.Values{"requirement": []string{"a recipe organizer"}}
	got, ok := h.Take(query)
	assert.True(t, ok)
	assert.Equal(t, "a recipe organizer", got)

	// The stored value wins over the query string.
	h.Put("stored")
	got, ok = h.Take(query)
	assert.True(t, ok)
	assert.Equal(t, "stored", got)
}
