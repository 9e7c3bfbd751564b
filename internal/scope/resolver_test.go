package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

type world struct {
	store    *sqlstore.Backend
	resolver *Resolver
	acme     *types.Organization
	globex   *types.Organization
	demo     *types.Project
	other    *types.Project
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	store := sqlstore.NewBackend()
	require.NoError(t, store.Attach(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })

	w := &world{store: store}
	w.acme = &types.Organization{Name: "Acme", Slug: "acme"}
	w.globex = &types.Organization{Name: "Globex", Slug: "globex"}
	require.NoError(t, store.Organizations().Create(ctx, w.acme))
	require.NoError(t, store.Organizations().Create(ctx, w.globex))
	w.demo = &types.Project{Name: "Demo", Slug: "demo", OrganizationID: w.acme.ID}
	w.other = &types.Project{Name: "Other", Slug: "other", OrganizationID: w.globex.ID}
	require.NoError(t, store.Projects().Create(ctx, w.demo))
	require.NoError(t, store.Projects().Create(ctx, w.other))
	for user, role := range map[string]string{"olive": types.RoleOwner, "adam": types.RoleAdmin, "mia": types.RoleMember} {
		require.NoError(t, store.Memberships().Create(ctx, &types.Membership{OrganizationID: w.acme.ID, UserID: user, Role: role}))
	}

	r, err := New(store)
	require.NoError(t, err)
	w.resolver = r
	return w
}

func TestResolveProject(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	tests := []struct {
		name        string
		org, proj   string
		wantErr     error
		wantProject string
	}{
		{"resolves", "acme", "demo", nil, "demo"},
		{"missing org slug", "", "demo", types.ErrMissingScope, ""},
		{"missing project slug", "acme", " ", types.ErrMissingScope, ""},
		{"unknown org", "initech", "demo", types.ErrOrganizationNotFound, ""},
		{"unknown project", "acme", "nope", types.ErrProjectNotFound, ""},
		{"project of another org", "acme", "other", types.ErrProjectNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := w.resolver.ResolveProject(ctx, tt.org, tt.proj)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProject, p.Slug)
		})
	}

	_, err := w.resolver.ResolveProject(ctx, "acme", "other")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRequireMembership(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	m, err := w.resolver.RequireMembership(ctx, w.acme.ID, "mia")
	require.NoError(t, err)
	assert.Equal(t, types.RoleMember, m.Role)

	_, err = w.resolver.RequireMembership(ctx, w.globex.ID, "mia")
	assert.ErrorIs(t, err, types.ErrNotMember)
	assert.ErrorIs(t, err, types.ErrForbidden)

	_, err = w.resolver.RequireMembership(ctx, w.acme.ID, "")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestRequireRole(t *testing.T) {
	m := &types.Membership{Role: types.RoleAdmin}
	assert.NoError(t, RequireRole(m, types.RoleOwner, types.RoleAdmin))
	assert.ErrorIs(t, RequireRole(m, types.RoleOwner), types.ErrRoleDenied)
	assert.ErrorIs(t, RequireRole(nil, types.RoleOwner), types.ErrForbidden)
}

func TestPolicy(t *testing.T) {
	w := newWorld(t)
	actions := []Action{DeleteOrganization, DeleteProject, ManageMembers, CreateProject, WriteSchema, WriteContent, WriteEntries, ReadProject}
	want := map[string]map[Action]bool{
		types.RoleOwner:  {DeleteOrganization: true, DeleteProject: true, ManageMembers: true, CreateProject: true, WriteSchema: true, WriteContent: true, WriteEntries: true, ReadProject: true},
		types.RoleAdmin:  {DeleteProject: true, ManageMembers: true, CreateProject: true, WriteSchema: true, WriteContent: true, WriteEntries: true, ReadProject: true},
		types.RoleMember: {CreateProject: true, WriteSchema: true, WriteContent: true, WriteEntries: true, ReadProject: true},
	}
	for role, allowed := range want {
		for _, a := range actions {
			t.Run(role+" "+a.String(), func(t *testing.T) {
				m := &types.Membership{Role: role}
				ok, err := w.resolver.Can(m, a)
				require.NoError(t, err)
				assert.Equal(t, allowed[a], ok)
				if !allowed[a] {
					assert.ErrorIs(t, w.resolver.RequireAction(m, a), types.ErrRoleDenied)
				}
			})
		}
	}

	ok, err := w.resolver.Can(&types.Membership{Role: "GUEST"}, ReadProject)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnterReadsFreshRoles(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.resolver.Enter(ctx, "acme", "demo", "mia", DeleteProject)
	assert.ErrorIs(t, err, types.ErrRoleDenied)

	m, err := w.store.Memberships().Find(ctx, w.acme.ID, "mia")
	require.NoError(t, err)
	require.NoError(t, w.store.Memberships().UpdateRole(ctx, m.ID, types.RoleAdmin))

	s, err := w.resolver.Enter(ctx, "acme", "demo", "mia", DeleteProject)
	require.NoError(t, err)
	assert.Equal(t, w.demo.ID, s.Project.ID)
	assert.Equal(t, types.RoleAdmin, s.Membership.Role)

	_, err = w.resolver.EnterProject(ctx, w.other.ID, "mia", ReadProject)
	assert.ErrorIs(t, err, types.ErrNotMember)
}

func TestCustomPolicy(t *testing.T) {
	w := newWorld(t)
	r, err := New(w.store, WithPolicy("p, role:owner, schema, write\n"))
	require.NoError(t, err)

	ok, err := r.Can(&types.Membership{Role: types.RoleMember}, WriteSchema)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.Can(&types.Membership{Role: types.RoleOwner}, WriteSchema)
	require.NoError(t, err)
	assert.True(t, ok)
}
