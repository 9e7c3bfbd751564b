package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

type health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, health{Status: "ok", Timestamp: s.now().UTC(), Version: s.Version})
}

// publicProject returns the project named by the orgSlug and projectSlug
// query parameters, or the global scope when neither is given.
func (s *Server) publicProject(r *http.Request) (string, error) {
	q := r.URL.Query()
	org, project := q.Get("orgSlug"), q.Get("projectSlug")
	if org == "" && project == "" {
		return "", nil
	}
	p, err := s.Resolver.ResolveProject(r.Context(), org, project)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// publicFilter is entryFilter restricted to published entries.
func (s *Server) publicFilter(r *http.Request) (types.EntryFilter, error) {
	projectID, err := s.publicProject(r)
	if err != nil {
		return types.EntryFilter{}, err
	}
	f, err := entryFilter(r, projectID)
	if err != nil {
		return f, err
	}
	published := true
	f.Published = &published
	return f, nil
}

func (s *Server) handlePublicPosts(w http.ResponseWriter, r *http.Request) {
	f, err := s.publicFilter(r)
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

func (s *Server) handlePublicPost(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.publicProject(r)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	p, err := s.Entries.PublishedPost(r.Context(), projectID, mux.Vars(r)["slug"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handlePublicBlogs(w http.ResponseWriter, r *http.Request) {
	f, err := s.publicFilter(r)
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

func (s *Server) handlePublicBlog(w http.ResponseWriter, r *http.Request) {
	projectID, err := s.publicProject(r)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	b, err := s.Entries.PublishedBlog(r.Context(), projectID, mux.Vars(r)["slug"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, b)
}
