package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prdforge/prdforge/internal/identity"
	"github.com/prdforge/prdforge/internal/project"
)

// handleListProjects returns the caller's projects, newest first. Anonymous
// callers see the shared anonymous bucket.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())

	projects, err := s.store.List(r.Context(), id.Key)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, map[string]any{"projects": projects})
}

// handleCreateProject creates a project owned by the caller. Anonymous
// callers may not create projects.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	if id.Anonymous {
		s.writeError(w, "Unauthorized", http.StatusForbidden)
		return
	}

	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.OwnerKey = id.Key

	if err := s.store.Create(r.Context(), &p); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, &p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	if id.Anonymous {
		s.writeError(w, "Unauthorized", http.StatusForbidden)
		return
	}

	p, err := s.store.Get(r.Context(), mux.Vars(r)["id"], id.Key)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	if id.Anonymous {
		s.writeError(w, "Unauthorized", http.StatusForbidden)
		return
	}

	var patch project.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := s.store.Update(r.Context(), mux.Vars(r)["id"], id.Key, patch)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, _ := identity.FromContext(r.Context())
	if id.Anonymous {
		s.writeError(w, "Unauthorized", http.StatusForbidden)
		return
	}

	if err := s.store.Delete(r.Context(), mux.Vars(r)["id"], id.Key); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, map[string]bool{"success": true})
}
