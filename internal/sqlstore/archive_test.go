package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestBackend(t)
	org, p := fixture(t, src, "acme", "demo")
	require.NoError(t, src.Memberships().Create(ctx, &types.Membership{OrganizationID: org.ID, UserID: "u1", Role: types.RoleOwner}))
	ct := &types.ContentType{Name: "Product", Slug: "products", ProjectID: p.ID}
	require.NoError(t, src.ContentTypes().Create(ctx, ct))
	field := &types.ContentField{ContentTypeID: ct.ID, Name: "Title", Key: "title", Type: types.FieldTypeText, Required: true}
	require.NoError(t, src.ContentFields().Upsert(ctx, field))
	item := &types.ContentItem{ContentTypeID: ct.ID, RawData: []byte(`{"price":19.990,"title":"Widget"}`), Published: true}
	require.NoError(t, src.ContentItems().Create(ctx, item))
	post := &types.Post{ProjectID: p.ID, Title: "Hi", Slug: "hi", Content: "c", AuthorID: "u1", Tags: []string{"a"}}
	post.Publish(true, time.Now().UTC())
	require.NoError(t, src.Posts().Create(ctx, post))

	dir := t.TempDir()
	require.NoError(t, src.Export(ctx, dir))
	for _, at := range archiveTables {
		_, err := os.Stat(filepath.Join(dir, at.file()))
		assert.NoError(t, err, at.file())
	}

	dst := newTestBackend(t)
	require.NoError(t, dst.Import(ctx, dir))

	gotItem, err := dst.ContentItems().Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, string(item.RawData), string(gotItem.RawData))
	assert.True(t, gotItem.Published)
	assert.Equal(t, item.CreatedAt, gotItem.CreatedAt)

	fields, err := dst.ContentFields().List(ctx, ct.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Required)

	gotPost, err := dst.Posts().Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, gotPost.Tags)
	assert.True(t, gotPost.Published)

	m, err := dst.Memberships().Find(ctx, org.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, types.RoleOwner, m.Role)

	// A second import collides and leaves the store unchanged.
	err = dst.Import(ctx, dir)
	assert.ErrorIs(t, err, types.ErrConflict)
	list, err := dst.ContentItems().List(ctx, ct.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImportRejectsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "organizations.jsonl"), []byte("{not json}\n"), 0o644))
	b := newTestBackend(t)
	assert.Error(t, b.Import(context.Background(), dir))
}
