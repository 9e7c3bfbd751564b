package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/pantry/internal/auth"
)

type organizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type projectRequest struct {
	OrganizationID string `json:"organizationId"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
}

type memberRequest struct {
	MemberID string `json:"memberId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Role     string `json:"role"`
}

func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	list, err := s.Tenancy.ListOrganizations(r.Context(), auth.UserFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	org, err := s.Tenancy.CreateOrganization(r.Context(), auth.UserFrom(r.Context()), req.Name, req.Slug)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, org)
}

func (s *Server) handleDeleteOrganization(w http.ResponseWriter, r *http.Request) {
	if err := s.Tenancy.DeleteOrganization(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := s.Tenancy.ListProjects(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	p, err := s.Tenancy.CreateProject(r.Context(), auth.UserFrom(r.Context()), req.OrganizationID, req.Name, req.Slug, req.Description)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.Tenancy.DeleteProject(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	list, err := s.Tenancy.ListMembers(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	m, err := s.Tenancy.AddMember(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"], req.UserID, req.Role)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	m, err := s.Tenancy.UpdateMemberRole(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"], req.MemberID, req.Role)
	if err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	memberID := r.URL.Query().Get("memberId")
	if err := s.Tenancy.RemoveMember(r.Context(), auth.UserFrom(r.Context()), mux.Vars(r)["id"], memberID); err != nil {
		s.fail(w, r, err, slugAsConflict)
		return
	}
	respondJSON(w, http.StatusOK, deleted)
}
