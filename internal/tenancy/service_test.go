package tenancy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newService(t *testing.T) (*Service, *sqlstore.Backend) {
	t.Helper()
	store := sqlstore.NewBackend()
	require.NoError(t, store.Attach(context.Background(), types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })
	resolver, err := scope.New(store)
	require.NoError(t, err)
	return New(store, resolver), store
}

func TestCreateOrganization(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)

	org, err := s.CreateOrganization(ctx, "olive", "Acme", "acme")
	require.NoError(t, err)
	m, err := store.Memberships().Find(ctx, org.ID, "olive")
	require.NoError(t, err)
	assert.Equal(t, types.RoleOwner, m.Role, "the creator owns the organization")

	tests := []struct {
		name    string
		actor   string
		orgName string
		slug    string
		wantErr error
	}{
		{"anonymous", "", "Other", "other", types.ErrUnauthorized},
		{"short name", "olive", "A", "other", types.ErrInvalidName},
		{"bad slug", "olive", "Other", "Other Co", types.ErrInvalidSlug},
		{"taken slug", "adam", "Acme Two", "acme", types.ErrDuplicateSlug},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateOrganization(ctx, tt.actor, tt.orgName, tt.slug)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	mine, err := s.ListOrganizations(ctx, "olive")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "acme", mine[0].Slug)

	none, err := s.ListOrganizations(ctx, "stranger")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	acme, err := s.CreateOrganization(ctx, "olive", "Acme", "acme")
	require.NoError(t, err)
	globex, err := s.CreateOrganization(ctx, "gail", "Globex", "globex")
	require.NoError(t, err)
	_, err = s.AddMember(ctx, "olive", acme.ID, "mia", types.RoleMember)
	require.NoError(t, err)

	demo, err := s.CreateProject(ctx, "mia", acme.ID, "Demo", "demo", " first ")
	require.NoError(t, err, "members may create projects")
	assert.Equal(t, "first", demo.Description)

	_, err = s.CreateProject(ctx, "gail", globex.ID, "Demo", "demo", "")
	assert.ErrorIs(t, err, types.ErrDuplicateSlug, "project slugs are global")
	_, err = s.CreateProject(ctx, "gail", acme.ID, "Sneaky", "sneaky", "")
	assert.ErrorIs(t, err, types.ErrNotMember)
	_, err = s.CreateProject(ctx, "olive", "missing", "Lost", "lost", "")
	assert.ErrorIs(t, err, types.ErrOrganizationNotFound)

	list, err := s.ListProjects(ctx, "mia", acme.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = s.ListProjects(ctx, "gail", acme.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)

	assert.ErrorIs(t, s.DeleteProject(ctx, "mia", demo.ID), types.ErrRoleDenied)
	require.NoError(t, s.DeleteProject(ctx, "olive", demo.ID))
	assert.ErrorIs(t, s.DeleteProject(ctx, "olive", demo.ID), types.ErrProjectNotFound)
}

func TestDeleteOrganizationCascades(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)
	acme, err := s.CreateOrganization(ctx, "olive", "Acme", "acme")
	require.NoError(t, err)
	_, err = s.AddMember(ctx, "olive", acme.ID, "adam", types.RoleAdmin)
	require.NoError(t, err)
	demo, err := s.CreateProject(ctx, "olive", acme.ID, "Demo", "demo", "")
	require.NoError(t, err)
	ct := &types.ContentType{Name: "Product", Slug: "products", ProjectID: demo.ID}
	require.NoError(t, store.ContentTypes().Create(ctx, ct))

	assert.ErrorIs(t, s.DeleteOrganization(ctx, "adam", acme.ID), types.ErrRoleDenied, "only owners delete organizations")
	require.NoError(t, s.DeleteOrganization(ctx, "olive", acme.ID))

	_, err = store.Projects().Get(ctx, demo.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = store.ContentTypes().Get(ctx, ct.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = store.Memberships().Find(ctx, acme.ID, "adam")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, s.DeleteOrganization(ctx, "olive", acme.ID), types.ErrOrganizationNotFound)
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	acme, err := s.CreateOrganization(ctx, "olive", "Acme", "acme")
	require.NoError(t, err)

	adam, err := s.AddMember(ctx, "olive", acme.ID, "adam", "admin")
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, adam.Role, "roles are normalized")
	mia, err := s.AddMember(ctx, "adam", acme.ID, "mia", "")
	require.NoError(t, err)
	assert.Equal(t, types.RoleMember, mia.Role)

	_, err = s.AddMember(ctx, "adam", acme.ID, "mia", types.RoleMember)
	assert.ErrorIs(t, err, types.ErrDuplicateMember)
	_, err = s.AddMember(ctx, "olive", acme.ID, "zed", "superuser")
	assert.ErrorIs(t, err, types.ErrInvalidRole)
	_, err = s.AddMember(ctx, "mia", acme.ID, "zed", types.RoleMember)
	assert.ErrorIs(t, err, types.ErrRoleDenied)
	_, err = s.AddMember(ctx, "adam", acme.ID, "zed", types.RoleOwner)
	assert.ErrorIs(t, err, types.ErrRoleDenied, "admins cannot mint owners")

	members, err := s.ListMembers(ctx, "mia", acme.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	owners, err := s.ListMembers(ctx, "olive", acme.ID)
	require.NoError(t, err)
	var olive *types.Membership
	for _, m := range owners {
		if m.UserID == "olive" {
			olive = m
		}
	}
	require.NotNil(t, olive)

	t.Run("last owner is kept", func(t *testing.T) {
		_, err := s.UpdateMemberRole(ctx, "olive", acme.ID, olive.ID, types.RoleAdmin)
		assert.ErrorIs(t, err, types.ErrLastOwner)
		assert.ErrorIs(t, s.RemoveMember(ctx, "olive", acme.ID, olive.ID), types.ErrLastOwner)
	})

	t.Run("role changes apply immediately", func(t *testing.T) {
		promoted, err := s.UpdateMemberRole(ctx, "adam", acme.ID, mia.ID, types.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, types.RoleAdmin, promoted.Role)
		_, err = s.AddMember(ctx, "mia", acme.ID, "zed", types.RoleMember)
		assert.NoError(t, err)
	})

	t.Run("second owner unlocks demotion", func(t *testing.T) {
		_, err := s.UpdateMemberRole(ctx, "olive", acme.ID, adam.ID, types.RoleOwner)
		require.NoError(t, err)
		_, err = s.UpdateMemberRole(ctx, "adam", acme.ID, olive.ID, types.RoleMember)
		require.NoError(t, err)
	})

	t.Run("foreign member ids are not found", func(t *testing.T) {
		other, err := s.CreateOrganization(ctx, "gail", "Globex", "globex")
		require.NoError(t, err)
		assert.ErrorIs(t, s.RemoveMember(ctx, "gail", other.ID, mia.ID), types.ErrMemberNotFound)
	})

	require.NoError(t, s.RemoveMember(ctx, "adam", acme.ID, mia.ID))
	assert.ErrorIs(t, s.RemoveMember(ctx, "adam", acme.ID, mia.ID), types.ErrMemberNotFound)
}
