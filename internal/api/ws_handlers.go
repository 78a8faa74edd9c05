package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/gateway/prompt"
)

// wsEvent is one frame sent to a websocket client during generation.
type wsEvent struct {
	Type    string `json:"type"` // "chunk", "done", "error"
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleGenerateWS runs a generation call over a websocket. The client sends
// one request frame and receives chunk frames until a done or error frame.
func (s *Server) handleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var req generateRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(wsEvent{Type: "error", Error: "invalid request frame"})
		return
	}

	mode, err := prompt.ParseMode(req.Mode)
	if err != nil {
		conn.WriteJSON(wsEvent{Type: "error", Error: err.Error()})
		return
	}

	fragments, err := s.gateway.Stream(r.Context(), gateway.Request{
		Messages:  req.Messages,
		Mode:      mode,
		TechStack: req.TechStack,
		PRDMode:   prompt.PRDMode(req.PRDMode),
	})
	if err != nil {
		s.logger.Error("generation failed", "mode", mode, "err", err)
		conn.WriteJSON(wsEvent{Type: "error", Error: "generation failed"})
		return
	}

	for frag := range fragments {
		if frag.Err != nil {
			s.logger.Error("stream interrupted", "mode", mode, "err", frag.Err)
			conn.WriteJSON(wsEvent{Type: "error", Error: frag.Err.Error()})
			return
		}
		if err := conn.WriteJSON(wsEvent{Type: "chunk", Content: frag.Text}); err != nil {
			return
		}
	}

	conn.WriteJSON(wsEvent{Type: "done"})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}
