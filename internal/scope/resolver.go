// Package scope resolves the (organization, project) pair a request works in
// and authorizes the caller against it. Every call reads storage afresh, so a
// role change applies to the next request.
package scope

import (
	"context"
	"strings"

	"github.com/casbin/casbin/v2"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Resolver resolves scope and checks membership and role policy.
type Resolver struct {
	tables   types.Tables
	enforcer *casbin.SyncedEnforcer
}

// Option configures a Resolver.
type Option func(*config)

type config struct {
	policy string
}

// WithPolicy replaces DefaultPolicy with policy lines in casbin CSV form.
func WithPolicy(policy string) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// New returns a Resolver reading from tables.
func New(tables types.Tables, opts ...Option) (*Resolver, error) {
	cfg := config{policy: DefaultPolicy}
	for _, opt := range opts {
		opt(&cfg)
	}
	e, err := newEnforcer(cfg.policy)
	if err != nil {
		return nil, err
	}
	return &Resolver{tables: tables, enforcer: e}, nil
}

// With returns a Resolver sharing r's policy that reads from tables, for use
// inside a transaction.
func (r *Resolver) With(tables types.Tables) *Resolver {
	return &Resolver{tables: tables, enforcer: r.enforcer}
}

// ResolveProject returns the project named by projectSlug inside the
// organization named by orgSlug.
func (r *Resolver) ResolveProject(ctx context.Context, orgSlug, projectSlug string) (*types.Project, error) {
	orgSlug, projectSlug = strings.TrimSpace(orgSlug), strings.TrimSpace(projectSlug)
	if orgSlug == "" || projectSlug == "" {
		return nil, types.ErrMissingScope
	}
	org, err := r.tables.Organizations().GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, types.NewStorageError("resolve organization", types.ReplaceNotFound(err, types.ErrOrganizationNotFound))
	}
	p, err := r.tables.Projects().GetBySlug(ctx, projectSlug)
	if err != nil {
		return nil, types.NewStorageError("resolve project", types.ReplaceNotFound(err, types.ErrProjectNotFound))
	}
	if p.OrganizationID != org.ID {
		return nil, types.ErrProjectNotFound
	}
	return p, nil
}

// ProjectByID returns the project with the given id.
func (r *Resolver) ProjectByID(ctx context.Context, id string) (*types.Project, error) {
	p, err := r.tables.Projects().Get(ctx, id)
	if err != nil {
		return nil, types.NewStorageError("resolve project", types.ReplaceNotFound(err, types.ErrProjectNotFound))
	}
	return p, nil
}

// RequireMembership returns the user's membership in the organization.
func (r *Resolver) RequireMembership(ctx context.Context, orgID, userID string) (*types.Membership, error) {
	if userID == "" {
		return nil, types.ErrUnauthorized
	}
	m, err := r.tables.Memberships().Find(ctx, orgID, userID)
	if err == types.ErrNotFound {
		return nil, types.ErrNotMember
	}
	if err != nil {
		return nil, types.NewStorageError("check membership", err)
	}
	return m, nil
}

// RequireRole fails with ErrRoleDenied unless m's role is one of allowed.
func RequireRole(m *types.Membership, allowed ...string) error {
	if m == nil {
		return types.ErrNotMember
	}
	if !m.HasRole(allowed...) {
		return types.ErrRoleDenied
	}
	return nil
}

// Can reports whether m's role permits action.
func (r *Resolver) Can(m *types.Membership, action Action) (bool, error) {
	if m == nil {
		return false, nil
	}
	ok, err := r.enforcer.Enforce(Subject(m.Role), action.Object, action.Verb)
	if err != nil {
		return false, types.NewStorageError("evaluate policy", err)
	}
	return ok, nil
}

// RequireAction fails with ErrRoleDenied unless m's role permits action.
func (r *Resolver) RequireAction(m *types.Membership, action Action) error {
	if m == nil {
		return types.ErrNotMember
	}
	ok, err := r.Can(m, action)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrRoleDenied
	}
	return nil
}

// Authorize checks that userID belongs to the organization and may perform
// action there.
func (r *Resolver) Authorize(ctx context.Context, orgID, userID string, action Action) (*types.Membership, error) {
	m, err := r.RequireMembership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if err := r.RequireAction(m, action); err != nil {
		return nil, err
	}
	return m, nil
}

// Scope is a resolved project together with the caller's membership.
type Scope struct {
	Project    *types.Project
	Membership *types.Membership
}

// Enter resolves the project by slugs and authorizes userID for action.
func (r *Resolver) Enter(ctx context.Context, orgSlug, projectSlug, userID string, action Action) (*Scope, error) {
	p, err := r.ResolveProject(ctx, orgSlug, projectSlug)
	if err != nil {
		return nil, err
	}
	m, err := r.Authorize(ctx, p.OrganizationID, userID, action)
	if err != nil {
		return nil, err
	}
	return &Scope{Project: p, Membership: m}, nil
}

// EnterProject is Enter for a project already identified by id.
func (r *Resolver) EnterProject(ctx context.Context, projectID, userID string, action Action) (*Scope, error) {
	p, err := r.ProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	m, err := r.Authorize(ctx, p.OrganizationID, userID, action)
	if err != nil {
		return nil, err
	}
	return &Scope{Project: p, Membership: m}, nil
}
