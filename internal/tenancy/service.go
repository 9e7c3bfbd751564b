// Package tenancy manages organizations, their projects and memberships.
// Authorization goes through the scope resolver; every mutation runs in one
// transaction so the policy check and the write see the same state.
package tenancy

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Minimum name lengths.
const (
	minOrganizationName = 2
	minProjectName      = 2
)

// Service manages tenancy.
type Service struct {
	store    types.Cupboard
	resolver *scope.Resolver
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// New returns a Service. The resolver supplies the role policy; it is
// rebound to each transaction.
func New(store types.Cupboard, resolver *scope.Resolver, opts ...Option) *Service {
	s := &Service{store: store, resolver: resolver, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrganization creates an organization with actor as its owner.
func (s *Service) CreateOrganization(ctx context.Context, actor, name, slug string) (*types.Organization, error) {
	if actor == "" {
		return nil, types.ErrUnauthorized
	}
	name = strings.TrimSpace(name)
	if err := types.ValidateName(name, minOrganizationName); err != nil {
		return nil, err
	}
	if err := types.ValidateSlug(slug); err != nil {
		return nil, err
	}
	org := &types.Organization{Name: name, Slug: slug}
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := tx.Organizations().GetBySlug(ctx, slug); err == nil {
			return types.ErrDuplicateSlug
		} else if err != types.ErrNotFound {
			return err
		}
		if err := tx.Organizations().Create(ctx, org); err != nil {
			return err
		}
		return tx.Memberships().Create(ctx, &types.Membership{
			OrganizationID: org.ID,
			UserID:         actor,
			Role:           types.RoleOwner,
		})
	})
	if err != nil {
		return nil, types.NewStorageError("create organization", err)
	}
	s.log.Info().Str("organization", org.ID).Str("slug", slug).Str("owner", actor).Msg("organization created")
	return org, nil
}

// ListOrganizations returns the organizations actor belongs to.
func (s *Service) ListOrganizations(ctx context.Context, actor string) ([]*types.Organization, error) {
	if actor == "" {
		return nil, types.ErrUnauthorized
	}
	list, err := s.store.Organizations().ListForUser(ctx, actor)
	if err != nil {
		return nil, types.NewStorageError("fetch organizations", err)
	}
	if list == nil {
		list = []*types.Organization{}
	}
	return list, nil
}

// DeleteOrganization removes the organization and everything it owns.
func (s *Service) DeleteOrganization(ctx context.Context, actor, orgID string) error {
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := tx.Organizations().Get(ctx, orgID); err != nil {
			return types.ReplaceNotFound(err, types.ErrOrganizationNotFound)
		}
		if _, err := s.resolver.With(tx).Authorize(ctx, orgID, actor, scope.DeleteOrganization); err != nil {
			return err
		}
		return tx.Organizations().Delete(ctx, orgID)
	})
	if err != nil {
		return types.NewStorageError("delete organization", err)
	}
	s.log.Info().Str("organization", orgID).Str("actor", actor).Msg("organization deleted")
	return nil
}

// CreateProject creates a project in the organization. Project slugs are
// unique across all organizations.
func (s *Service) CreateProject(ctx context.Context, actor, orgID, name, slug, description string) (*types.Project, error) {
	name = strings.TrimSpace(name)
	if err := types.ValidateName(name, minProjectName); err != nil {
		return nil, err
	}
	if err := types.ValidateSlug(slug); err != nil {
		return nil, err
	}
	p := &types.Project{
		Name:           name,
		Slug:           slug,
		OrganizationID: orgID,
		Description:    strings.TrimSpace(description),
	}
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := tx.Organizations().Get(ctx, orgID); err != nil {
			return types.ReplaceNotFound(err, types.ErrOrganizationNotFound)
		}
		if _, err := s.resolver.With(tx).Authorize(ctx, orgID, actor, scope.CreateProject); err != nil {
			return err
		}
		if _, err := tx.Projects().GetBySlug(ctx, slug); err == nil {
			return types.ErrDuplicateSlug
		} else if err != types.ErrNotFound {
			return err
		}
		return tx.Projects().Create(ctx, p)
	})
	if err != nil {
		return nil, types.NewStorageError("create project", err)
	}
	s.log.Info().Str("project", p.ID).Str("slug", slug).Str("organization", orgID).Msg("project created")
	return p, nil
}

// ListProjects returns the organization's projects newest first.
func (s *Service) ListProjects(ctx context.Context, actor, orgID string) ([]*types.Project, error) {
	if _, err := s.resolver.Authorize(ctx, orgID, actor, scope.ReadProject); err != nil {
		return nil, err
	}
	list, err := s.store.Projects().ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, types.NewStorageError("fetch projects", err)
	}
	if list == nil {
		list = []*types.Project{}
	}
	return list, nil
}

// DeleteProject removes the project and its content.
func (s *Service) DeleteProject(ctx context.Context, actor, projectID string) error {
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := s.resolver.With(tx).EnterProject(ctx, projectID, actor, scope.DeleteProject); err != nil {
			return err
		}
		return tx.Projects().Delete(ctx, projectID)
	})
	if err != nil {
		return types.NewStorageError("delete project", err)
	}
	s.log.Info().Str("project", projectID).Str("actor", actor).Msg("project deleted")
	return nil
}

// ListMembers returns the organization's memberships.
func (s *Service) ListMembers(ctx context.Context, actor, orgID string) ([]*types.Membership, error) {
	if _, err := s.resolver.RequireMembership(ctx, orgID, actor); err != nil {
		return nil, err
	}
	list, err := s.store.Memberships().ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, types.NewStorageError("fetch members", err)
	}
	if list == nil {
		list = []*types.Membership{}
	}
	return list, nil
}

// checkOwnerGrant fails with ErrRoleDenied when a non-owner changes the owner
// role on either side of a grant.
func checkOwnerGrant(actor *types.Membership, from, to string) error {
	if (from == types.RoleOwner || to == types.RoleOwner) && actor.Role != types.RoleOwner {
		return types.ErrRoleDenied
	}
	return nil
}

// AddMember adds userID to the organization with role.
func (s *Service) AddMember(ctx context.Context, actor, orgID, userID, role string) (*types.Membership, error) {
	if role == "" {
		role = types.RoleMember
	}
	role, ok := types.NormalizeRole(role)
	if !ok {
		return nil, types.ErrInvalidRole
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, types.ErrInvalidID
	}
	m := &types.Membership{OrganizationID: orgID, UserID: userID, Role: role}
	err := s.store.Update(ctx, func(tx types.Tables) error {
		caller, err := s.resolver.With(tx).Authorize(ctx, orgID, actor, scope.ManageMembers)
		if err != nil {
			return err
		}
		if err := checkOwnerGrant(caller, "", role); err != nil {
			return err
		}
		if _, err := tx.Memberships().Find(ctx, orgID, userID); err == nil {
			return types.ErrDuplicateMember
		} else if err != types.ErrNotFound {
			return err
		}
		return tx.Memberships().Create(ctx, m)
	})
	if err != nil {
		return nil, types.NewStorageError("add member", err)
	}
	s.log.Info().Str("organization", orgID).Str("user", userID).Str("role", role).Msg("member added")
	return m, nil
}

// member loads a membership by id and checks it belongs to orgID.
func member(ctx context.Context, tx types.Tables, orgID, memberID string) (*types.Membership, error) {
	m, err := tx.Memberships().Get(ctx, memberID)
	if err != nil {
		return nil, types.ReplaceNotFound(err, types.ErrMemberNotFound)
	}
	if m.OrganizationID != orgID {
		return nil, types.ErrMemberNotFound
	}
	return m, nil
}

// lastOwner reports whether m is the organization's only owner.
func lastOwner(ctx context.Context, tx types.Tables, m *types.Membership) (bool, error) {
	if m.Role != types.RoleOwner {
		return false, nil
	}
	n, err := tx.Memberships().CountRole(ctx, m.OrganizationID, types.RoleOwner)
	if err != nil {
		return false, err
	}
	return n <= 1, nil
}

// UpdateMemberRole changes a membership's role. The last owner cannot be
// demoted.
func (s *Service) UpdateMemberRole(ctx context.Context, actor, orgID, memberID, role string) (*types.Membership, error) {
	role, ok := types.NormalizeRole(role)
	if !ok {
		return nil, types.ErrInvalidRole
	}
	var out *types.Membership
	err := s.store.Update(ctx, func(tx types.Tables) error {
		caller, err := s.resolver.With(tx).Authorize(ctx, orgID, actor, scope.ManageMembers)
		if err != nil {
			return err
		}
		m, err := member(ctx, tx, orgID, memberID)
		if err != nil {
			return err
		}
		if err := checkOwnerGrant(caller, m.Role, role); err != nil {
			return err
		}
		if role != types.RoleOwner {
			last, err := lastOwner(ctx, tx, m)
			if err != nil {
				return err
			}
			if last {
				return types.ErrLastOwner
			}
		}
		if err := tx.Memberships().UpdateRole(ctx, m.ID, role); err != nil {
			return types.ReplaceNotFound(err, types.ErrMemberNotFound)
		}
		m.Role = role
		out = m
		return nil
	})
	if err != nil {
		return nil, types.NewStorageError("update member", err)
	}
	s.log.Info().Str("organization", orgID).Str("member", memberID).Str("role", role).Msg("member role changed")
	return out, nil
}

// RemoveMember deletes a membership. The last owner cannot be removed.
func (s *Service) RemoveMember(ctx context.Context, actor, orgID, memberID string) error {
	err := s.store.Update(ctx, func(tx types.Tables) error {
		caller, err := s.resolver.With(tx).Authorize(ctx, orgID, actor, scope.ManageMembers)
		if err != nil {
			return err
		}
		m, err := member(ctx, tx, orgID, memberID)
		if err != nil {
			return err
		}
		if err := checkOwnerGrant(caller, m.Role, ""); err != nil {
			return err
		}
		last, err := lastOwner(ctx, tx, m)
		if err != nil {
			return err
		}
		if last {
			return types.ErrLastOwner
		}
		return types.ReplaceNotFound(tx.Memberships().Delete(ctx, m.ID), types.ErrMemberNotFound)
	})
	if err != nil {
		return types.NewStorageError("remove member", err)
	}
	s.log.Info().Str("organization", orgID).Str("member", memberID).Msg("member removed")
	return nil
}
