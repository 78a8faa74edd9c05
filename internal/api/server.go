// Package api exposes the generation gateway and project store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prdforge/prdforge/internal/config"
	"github.com/prdforge/prdforge/internal/gateway"
	"github.com/prdforge/prdforge/internal/identity"
	"github.com/prdforge/prdforge/internal/storage"
)

// Server wires the gateway, project store, and identity provider into an
// HTTP API.
type Server struct {
	config     *config.Config
	gateway    *gateway.Gateway
	store      storage.ProjectStore
	idp        identity.Provider
	logger     *log.Logger
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg *config.Config, gw *gateway.Gateway, store storage.ProjectStore, idp identity.Provider, logger *log.Logger) *Server {
	s := &Server{
		config:  cfg,
		gateway: gw,
		store:   store,
		idp:     idp,
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.originAllowed(r.Header.Get("Origin"))
		},
	}
	return s
}

// Start starts the API server and blocks until it stops.
func (s *Server) Start() error {
	router := s.setupRoutes()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting API server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the configured router; used by tests.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.corsMiddleware)
	router.Use(s.identityMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/generate", s.handleGenerate).Methods("POST")
	api.HandleFunc("/generate/ws", s.handleGenerateWS)

	api.HandleFunc("/projects", s.handleListProjects).Methods("GET")
	api.HandleFunc("/projects", s.handleCreateProject).Methods("POST")
	api.HandleFunc("/projects/{id}", s.handleGetProject).Methods("GET")
	api.HandleFunc("/projects/{id}", s.handleUpdateProject).Methods("PATCH")
	api.HandleFunc("/projects/{id}", s.handleDeleteProject).Methods("DELETE")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	return router
}

// identityMiddleware resolves the caller once per request and stores the
// result in the request context. Handlers never consult auth state directly.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.idp.Resolve(r)
		if err != nil {
			s.writeError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
	})
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.originAllowed(origin) && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return strings.HasPrefix(origin, "http://localhost:") ||
		strings.HasPrefix(origin, "http://127.0.0.1:") ||
		strings.HasPrefix(origin, "http://[::1]:")
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeStoreError maps store sentinel errors to HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == storage.ErrNotFound:
		s.writeError(w, "Project not found", http.StatusNotFound)
	case err == storage.ErrForbidden:
		s.writeError(w, "Unauthorized", http.StatusForbidden)
	default:
		s.logger.Error("store operation failed", "err", err)
		s.writeError(w, "Internal error", http.StatusInternalServerError)
	}
}

// Health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]any{
		"status": "healthy",
	})
}
