package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type itemRequest struct {
	scopeRef
	types.ItemWrite
}

// itemScope enters the scope named by the query, or by the request body
// when the query names none.
func (s *Server) itemScope(r *http.Request, body scopeRef, action scope.Action) (string, error) {
	ref, err := queryScope(r)
	if err != nil {
		return "", err
	}
	return s.enter(r.Context(), ref.or(body), action)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	var published bool
	if v := r.URL.Query().Get("published"); v != "" {
		if published, err = strconv.ParseBool(v); err != nil {
			s.fail(w, r, types.ErrInvalidQuery, slugAsConflict)
			return
		}
	}
	list, err := s.Items.ListItems(r.Context(), projectID, mux.Vars(r)["typeSlug"], published)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	projectID, err := s.itemScope(r, req.scopeRef, scope.WriteContent)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	item, err := s.Items.CreateItem(r.Context(), projectID, mux.Vars(r)["typeSlug"], &req.ItemWrite)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	vars := mux.Vars(r)
	item, err := s.Items.GetItem(r.Context(), projectID, vars["typeSlug"], vars["id"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	projectID, err := s.itemScope(r, req.scopeRef, scope.WriteContent)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	vars := mux.Vars(r)
	item, err := s.Items.UpdateItem(r.Context(), projectID, vars["typeSlug"], vars["id"], &req.ItemWrite)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.WriteContent)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	vars := mux.Vars(r)
	if err := s.Items.DeleteItem(r.Context(), projectID, vars["typeSlug"], vars["id"]); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}
