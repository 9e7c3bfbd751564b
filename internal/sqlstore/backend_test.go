package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackendLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	_, err := b.Organizations().GetBySlug(ctx, "acme")
	assert.ErrorIs(t, err, types.ErrCupboardDetached, "operations before Attach")

	require.NoError(t, b.Attach(ctx, cfg))
	assert.ErrorIs(t, b.Attach(ctx, cfg), types.ErrAlreadyAttached)

	org := &types.Organization{Name: "Acme", Slug: "acme"}
	require.NoError(t, b.Organizations().Create(ctx, org))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "Detach is idempotent")
	_, err = b.Organizations().Get(ctx, org.ID)
	assert.ErrorIs(t, err, types.ErrCupboardDetached)
	assert.ErrorIs(t, b.Update(ctx, func(types.Tables) error { return nil }), types.ErrCupboardDetached)

	// Reattaching keeps data and does not reapply migrations.
	require.NoError(t, b.Attach(ctx, cfg))
	defer b.Detach()
	got, err := b.Organizations().GetBySlug(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, org.ID, got.ID)
	assert.Equal(t, org.CreatedAt, got.CreatedAt)
}

func TestBackendAttachRejectsBadConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(context.Background(), types.Config{Backend: "oracle"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)
	boom := errors.New("boom")

	err := b.Update(ctx, func(tx types.Tables) error {
		require.NoError(t, tx.Organizations().Create(ctx, &types.Organization{Name: "Acme", Slug: "acme"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = b.Organizations().GetBySlug(ctx, "acme")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateRollsBackOnCancel(t *testing.T) {
	b := newTestBackend(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := b.Update(ctx, func(tx types.Tables) error {
		if err := tx.Organizations().Create(ctx, &types.Organization{Name: "Acme", Slug: "acme"}); err != nil {
			return err
		}
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = b.Organizations().GetBySlug(context.Background(), "acme")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRebind(t *testing.T) {
	q := "SELECT 1 FROM t WHERE a = ? AND b IN (SELECT c FROM u WHERE d = ?)"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t,
		"SELECT 1 FROM t WHERE a = $1 AND b IN (SELECT c FROM u WHERE d = $2)",
		postgresDialect.rebind(q))
}

func TestMigrationSections(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (x TEXT);\nCREATE INDEX i ON a (x);\n-- +migrate Down\nDROP TABLE a;\n"
	stmts := statements(upSection(content))
	assert.Equal(t, []string{"CREATE TABLE a (x TEXT)", "CREATE INDEX i ON a (x)"}, stmts)
	assert.Equal(t, []string{"SELECT 1"}, statements(upSection("SELECT 1;")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, sqliteDialect.isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: organizations.slug (2067)")))
	assert.False(t, sqliteDialect.isUniqueViolation(errors.New("no such table")))
	assert.False(t, sqliteDialect.isUniqueViolation(nil))
}
