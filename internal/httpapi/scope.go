package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mesh-intelligence/pantry/internal/auth"
	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// scopeRef names the project a request works in. Global with no slugs
// selects the global scope.
type scopeRef struct {
	OrgSlug     string `json:"orgSlug,omitempty"`
	ProjectSlug string `json:"projectSlug,omitempty"`
	Global      bool   `json:"global,omitempty"`
}

func (ref scopeRef) global() bool {
	return ref.Global && ref.OrgSlug == "" && ref.ProjectSlug == ""
}

// or fills missing parts of ref from fallback.
func (ref scopeRef) or(fallback scopeRef) scopeRef {
	if ref.OrgSlug == "" && ref.ProjectSlug == "" && !ref.Global {
		return fallback
	}
	return ref
}

func queryScope(r *http.Request) (scopeRef, error) {
	q := r.URL.Query()
	ref := scopeRef{OrgSlug: q.Get("orgSlug"), ProjectSlug: q.Get("projectSlug")}
	if v := q.Get("global"); v != "" {
		g, err := strconv.ParseBool(v)
		if err != nil {
			return ref, types.ErrInvalidQuery
		}
		ref.Global = g
	}
	return ref, nil
}

// enter resolves ref for the caller and authorizes action. It returns the
// project id, empty for the global scope.
func (s *Server) enter(ctx context.Context, ref scopeRef, action scope.Action) (string, error) {
	user := auth.UserFrom(ctx)
	if user == "" {
		return "", types.ErrUnauthorized
	}
	if ref.global() {
		return "", nil
	}
	sc, err := s.Resolver.Enter(ctx, ref.OrgSlug, ref.ProjectSlug, user, action)
	if err != nil {
		return "", err
	}
	return sc.Project.ID, nil
}

// enterType authorizes action on the project owning ct.
func (s *Server) enterType(ctx context.Context, ct *types.ContentType, action scope.Action) error {
	user := auth.UserFrom(ctx)
	if user == "" {
		return types.ErrUnauthorized
	}
	if ct.Global() {
		return nil
	}
	_, err := s.Resolver.EnterProject(ctx, ct.ProjectID, user, action)
	return err
}
