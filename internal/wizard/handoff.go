package wizard

import (
	"net/url"
	"sync"
)

// Handoff carries the requirement text from the entry surface to the wizard.
// The stored value is consumed on first read; a later read falls back to the
// request's query string so deep links keep working after the slot is spent.
type Handoff struct {
	mu    sync.Mutex
	value string
	set   bool
}

// Put stores a requirement for the next Take.
func (h *Handoff) Put(requirement string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.value = requirement
	h.set = true
}

// Take returns the stored requirement and clears the slot. If the slot is
// empty it reads the "requirement" query parameter instead.
func (h *Handoff) Take(query url.Values) (string, bool) {
	h.mu.Lock()
	if h.set {
		v := h.value
		h.value = ""
		h.set = false
		h.mu.Unlock()
		return v, true
	}
	h.mu.Unlock()

	if v := query.Get("requirement"); v != "" {
		return v, true
	}
	return "", false
}
