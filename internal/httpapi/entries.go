package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/pantry/internal/auth"
	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type postRequest struct {
	scopeRef
	types.Post
}

type blogRequest struct {
	scopeRef
	types.Blog
}

type page[T any] struct {
	Data       []T              `json:"data"`
	Pagination types.Pagination `json:"pagination"`
}

func parseBool(q url.Values, key string) (*bool, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, types.ErrInvalidQuery
	}
	return &b, nil
}

func parseInt(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, types.ErrInvalidQuery
	}
	return n, nil
}

// splitTags flattens comma separated tag parameters, dropping blanks.
func splitTags(params ...[]string) []string {
	var tags []string
	for _, values := range params {
		for _, v := range values {
			for _, tag := range strings.Split(v, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					tags = append(tags, tag)
				}
			}
		}
	}
	return tags
}

// entryFilter reads listing filters from the query string.
func entryFilter(r *http.Request, projectID string) (types.EntryFilter, error) {
	q := r.URL.Query()
	f := types.EntryFilter{
		ProjectID: projectID,
		Search:    strings.TrimSpace(q.Get("search")),
		Tags:      splitTags(q["tag"], q["tags"]),
		Category:  strings.TrimSpace(q.Get("category")),
	}
	var err error
	if f.Published, err = parseBool(q, "published"); err != nil {
		return f, err
	}
	if f.Featured, err = parseBool(q, "featured"); err != nil {
		return f, err
	}
	if f.Limit, err = parseInt(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = parseInt(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	f, err := entryFilter(r, projectID)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	list, pg, err := s.Entries.ListPosts(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, page[*types.Post]{Data: list, Pagination: pg})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	projectID, err := s.itemScope(r, req.scopeRef, scope.WriteEntries)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	p, err := s.Entries.CreatePost(r.Context(), projectID, auth.UserFrom(r.Context()), &req.Post)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	p, err := s.Entries.GetPost(r.Context(), projectID, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	projectID, err := s.itemScope(r, req.scopeRef, scope.WriteEntries)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	p, err := s.Entries.UpdatePost(r.Context(), projectID, mux.Vars(r)["id"], &req.Post)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.WriteEntries)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	if err := s.Entries.DeletePost(r.Context(), projectID, mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleListBlogs(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	f, err := entryFilter(r, projectID)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	list, pg, err := s.Entries.ListBlogs(r.Context(), f)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, page[*types.Blog]{Data: list, Pagination: pg})
}

func (s *Server) handleCreateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	projectID, err := s.itemScope(r, req.scopeRef, scope.WriteEntries)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	b, err := s.Entries.CreateBlog(r.Context(), projectID, auth.UserFrom(r.Context()), &req.Blog)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetBlog(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.ReadProject)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	b, err := s.Entries.GetBlog(r.Context(), projectID, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	var req blogRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	projectID, err := s.itemScope(r, req.scopeRef, scope.WriteEntries)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	b, err := s.Entries.UpdateBlog(r.Context(), projectID, mux.Vars(r)["id"], &req.Blog)
	if err != nil {
		s.fail(w, r, err, slugAsBadRequest)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.itemScope(r, scopeRef{}, scope.WriteEntries)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	if err := s.Entries.DeleteBlog(r.Context(), projectID, mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}
