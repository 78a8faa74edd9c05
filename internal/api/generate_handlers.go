package api

import (
	"encoding/json"
	"net/http"

	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/gateway/prompt"
	"github.com/prdforge/prdforge/internal/llm"
)

// generateRequest is the wire shape of a generation call. Mode arrives as a
// string and is validated against the closed mode set before any work starts.
type generateRequest struct {
	Messages  []llm.Message     `json:"messages"`
	Mode      string            `json:"mode"`
	TechStack *prompt.TechStack `json:"techStack,omitempty"`
	PRDMode   string            `json:"prdMode,omitempty"`
	Stream    bool              `json:"stream,omitempty"`
}

// handleGenerate runs one generation call, either buffered or as a chunked
// text stream.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Messages) == 0 {
		s.writeError(w, "messages is required", http.StatusBadRequest)
		return
	}

	mode, err := prompt.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	gwReq := gateway.Request{
		Messages:  req.Messages,
		Mode:      mode,
		TechStack: req.TechStack,
		PRDMode:   prompt.PRDMode(req.PRDMode),
	}

	if !req.Stream {
		text, err := s.gateway.Complete(r.Context(), gwReq)
		if err != nil {
			s.logger.Error("generation failed", "mode", mode, "err", err)
			s.writeError(w, "Generation failed", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, map[string]string{"message": text})
		return
	}

	fragments, err := s.gateway.Stream(r.Context(), gwReq)
	if err != nil {
		s.logger.Error("generation failed", "mode", mode, "err", err)
		s.writeError(w, "Generation failed", http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Raw text fragments, flushed as they arrive. The consumer treats end
	// of transport as end of message, so a provider error after the first
	// byte must abort the connection; returning normally would present a
	// truncated document as complete.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for frag := range fragments {
		if frag.Err != nil {
			s.logger.Error("stream interrupted", "mode", mode, "err", frag.Err)
			panic(http.ErrAbortHandler)
		}
		if _, err := w.Write([]byte(frag.Text)); err != nil {
			return
		}
		flusher.Flush()
	}
}
