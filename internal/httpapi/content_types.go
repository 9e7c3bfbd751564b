package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type createTypeRequest struct {
	scopeRef
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	ref, err := queryScope(r)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	projectID, err := s.enter(r.Context(), ref, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	list, err := s.Registry.ListTypes(r.Context(), projectID)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var req createTypeRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	projectID, err := s.enter(r.Context(), req.scopeRef, scope.WriteSchema)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	ct, err := s.Registry.CreateType(r.Context(), projectID, req.Name, req.Slug, req.Description)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, ct)
}

// loadType fetches the type named in the path and authorizes action on it.
func (s *Server) loadType(r *http.Request, action scope.Action) (*types.ContentType, error) {
	ct, err := s.Registry.GetType(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	if err := s.enterType(r.Context(), ct, action); err != nil {
		return nil, err
	}
	return ct, nil
}

func (s *Server) handleGetType(w http.ResponseWriter, r *http.Request) {
	ct, err := s.loadType(r, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, ct)
}

func (s *Server) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	var u types.ContentTypeUpdate
	if err := decode(w, r, &u); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	ct, err := s.loadType(r, scope.WriteSchema)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	out, err := s.Registry.UpdateType(r.Context(), ct.ID, &u)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	ct, err := s.loadType(r, scope.WriteSchema)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	if err := s.Registry.DeleteType(r.Context(), ct.ID); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}
