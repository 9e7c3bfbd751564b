package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/internal/auth"
	"github.com/mesh-intelligence/pantry/internal/content"
	"github.com/mesh-intelligence/pantry/internal/fixed"
	"github.com/mesh-intelligence/pantry/internal/registry"
	"github.com/mesh-intelligence/pantry/internal/scope"
	"github.com/mesh-intelligence/pantry/internal/sqlstore"
	"github.com/mesh-intelligence/pantry/internal/tenancy"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

var tokens = auth.StaticTokens{
	"tok-alice": "alice",
	"tok-bob":   "bob",
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	store := sqlstore.NewBackend()
	require.NoError(t, store.Attach(ctx, types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { store.Detach() })

	resolver, err := scope.New(store)
	require.NoError(t, err)
	reg := registry.New(store)
	srv := New(Deps{
		Resolver: resolver,
		Registry: reg,
		Items:    content.New(store, reg),
		Entries:  fixed.New(store),
		Tenancy:  tenancy.New(store, resolver),
		Verifier: tokens,
		Logger:   zerolog.Nop(),
		Version:  "test",
	})
	return srv.Handler()
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c client) as(token string) client {
	c.token = token
	return c
}

func (c client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

// call performs the request, asserts the status and decodes the response
// into out when out is non-nil.
func (c client) call(method, path string, body any, want int, out any) {
	c.t.Helper()
	rec := c.do(method, path, body)
	require.Equal(c.t, want, rec.Code, "%s %s: %s", method, path, rec.Body.String())
	if out != nil {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
}

// setup creates organization acme owned by alice with projects demo and demo2.
func setup(t *testing.T) client {
	c := client{t: t, handler: newServer(t), token: "tok-alice"}
	var org types.Organization
	c.call("POST", "/organizations", map[string]string{"name": "Acme", "slug": "acme"}, http.StatusOK, &org)
	for _, slug := range []string{"demo", "demo2"} {
		c.call("POST", "/projects", map[string]string{"organizationId": org.ID, "name": "Project " + slug, "slug": slug}, http.StatusOK, nil)
	}
	return c
}

func createProductType(c client, project string) *types.ContentType {
	var ct types.ContentType
	c.call("POST", "/content-types", map[string]any{
		"orgSlug": "acme", "projectSlug": project, "name": "Product", "slug": "product",
	}, http.StatusOK, &ct)
	c.call("PUT", "/content-types/"+ct.ID, map[string]any{
		"version": ct.Version,
		"fields": []map[string]any{
			{"id": "temp-1", "name": "Title", "key": "title", "type": "text", "required": true},
			{"id": "temp-2", "name": "Price", "key": "price", "type": "number"},
		},
	}, http.StatusOK, &ct)
	return &ct
}

func TestAuthentication(t *testing.T) {
	c := client{t: t, handler: newServer(t)}

	c.call("GET", "/organizations", nil, http.StatusUnauthorized, nil)
	c.as("tok-nobody").call("GET", "/organizations", nil, http.StatusUnauthorized, nil)

	var orgs []types.Organization
	c.as("tok-alice").call("GET", "/organizations", nil, http.StatusOK, &orgs)
	assert.Empty(t, orgs)

	var h map[string]any
	c.call("GET", "/v1/health", nil, http.StatusOK, &h)
	assert.Equal(t, "ok", h["status"])
	assert.Equal(t, "test", h["version"])
}

func TestContentScenario(t *testing.T) {
	c := setup(t)

	ct := createProductType(c, "demo")
	require.Len(t, ct.Fields, 2)
	assert.Equal(t, "title", ct.Fields[0].Key)
	assert.Equal(t, int64(2), ct.Version)

	var listed []types.ContentType
	c.call("GET", "/content-types?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, &listed)
	require.Len(t, listed, 1)

	// Duplicate slug in the same project is a bad request.
	c.call("POST", "/content-types", map[string]any{
		"orgSlug": "acme", "projectSlug": "demo", "name": "Product", "slug": "product",
	}, http.StatusBadRequest, nil)

	var item struct {
		ID        string         `json:"id"`
		Data      map[string]any `json:"data"`
		Published bool           `json:"published"`
		Version   int64          `json:"version"`
	}
	items := "/content-items/product?orgSlug=acme&projectSlug=demo"
	c.call("POST", items, map[string]any{"data": map[string]any{"title": "Widget", "price": 9.5}}, http.StatusOK, &item)
	assert.False(t, item.Published)
	assert.Equal(t, "Widget", item.Data["title"])
	assert.Equal(t, 9.5, item.Data["price"])

	var invalid struct {
		Fields map[string]string `json:"fields"`
	}
	c.call("POST", items, map[string]any{"data": map[string]any{"price": "cheap"}}, http.StatusBadRequest, &invalid)
	assert.Contains(t, invalid.Fields, "title")
	assert.Contains(t, invalid.Fields, "price")

	one := "/content-items/product/" + item.ID + "?orgSlug=acme&projectSlug=demo"
	c.call("PUT", one, map[string]any{"data": map[string]any{"title": "Gadget"}, "published": true}, http.StatusBadRequest, nil)
	item.Data = nil // json.Unmarshal merges into an existing map; decode the response fresh
	c.call("PUT", one, map[string]any{"data": map[string]any{"title": "Gadget"}, "published": true, "version": item.Version}, http.StatusOK, &item)
	assert.True(t, item.Published)
	assert.NotContains(t, item.Data, "price")
	c.call("PUT", one, map[string]any{"data": map[string]any{"title": "Late"}, "version": 1}, http.StatusConflict, nil)

	var published []map[string]any
	c.call("GET", items+"&published=true", nil, http.StatusOK, &published)
	assert.Len(t, published, 1)

	// The same slug in another project names a different type.
	createProductType(c, "demo2")
	c.call("GET", "/content-items/product/"+item.ID+"?orgSlug=acme&projectSlug=demo2", nil, http.StatusBadRequest, nil)

	// Non-members are forbidden.
	c.as("tok-bob").call("GET", items, nil, http.StatusForbidden, nil)
	c.call("GET", "/content-items/product", nil, http.StatusBadRequest, nil)
	c.call("GET", "/content-items/missing?orgSlug=acme&projectSlug=demo", nil, http.StatusNotFound, nil)

	var done map[string]bool
	c.call("DELETE", one, nil, http.StatusOK, &done)
	assert.True(t, done["success"])
	c.call("GET", one, nil, http.StatusNotFound, nil)

	c.call("DELETE", "/content-types/"+ct.ID, nil, http.StatusOK, nil)
	c.call("GET", "/content-types/"+ct.ID, nil, http.StatusNotFound, nil)
}

func TestGlobalContentTypes(t *testing.T) {
	c := client{t: t, handler: newServer(t), token: "tok-alice"}

	var ct types.ContentType
	c.call("POST", "/content-types", map[string]any{"global": true, "name": "Page", "slug": "page"}, http.StatusOK, &ct)
	assert.Empty(t, ct.ProjectID)
	c.call("POST", "/content-types", map[string]any{"name": "Page", "slug": "page"}, http.StatusBadRequest, nil)

	var listed []types.ContentType
	c.call("GET", "/content-types?global=true", nil, http.StatusOK, &listed)
	require.Len(t, listed, 1)
	c.call("GET", "/content-types?global=maybe", nil, http.StatusBadRequest, nil)
}

func TestMembers(t *testing.T) {
	c := setup(t)
	var orgs []types.Organization
	c.call("GET", "/organizations", nil, http.StatusOK, &orgs)
	require.Len(t, orgs, 1)
	members := "/organizations/" + orgs[0].ID + "/members"

	var bob types.Membership
	c.call("POST", members, map[string]string{"userId": "bob"}, http.StatusOK, &bob)
	assert.Equal(t, types.RoleMember, bob.Role)
	c.call("POST", members, map[string]string{"userId": "bob"}, http.StatusConflict, nil)

	var projects []types.Project
	c.as("tok-bob").call("GET", "/organizations/"+orgs[0].ID+"/projects", nil, http.StatusOK, &projects)
	assert.Len(t, projects, 2)
	c.as("tok-bob").call("DELETE", "/projects/"+projects[0].ID, nil, http.StatusForbidden, nil)

	c.call("PATCH", members, map[string]string{"memberId": bob.ID, "role": "ADMIN"}, http.StatusOK, &bob)
	assert.Equal(t, types.RoleAdmin, bob.Role)
	c.as("tok-bob").call("DELETE", "/projects/"+projects[0].ID, nil, http.StatusOK, nil)

	c.call("DELETE", members+"?memberId="+bob.ID, nil, http.StatusOK, nil)
	c.as("tok-bob").call("GET", "/organizations/"+orgs[0].ID+"/projects", nil, http.StatusForbidden, nil)

	c.call("DELETE", "/organizations/"+orgs[0].ID, nil, http.StatusOK, nil)
	c.call("GET", "/organizations", nil, http.StatusOK, &orgs)
	assert.Empty(t, orgs)
}

func TestPosts(t *testing.T) {
	c := setup(t)
	posts := "/posts?orgSlug=acme&projectSlug=demo"

	var draft, live types.Post
	c.call("POST", posts, map[string]any{"title": "Draft", "slug": "draft", "content": "wip"}, http.StatusOK, &draft)
	c.call("POST", posts, map[string]any{"title": "Hello", "slug": "hello", "content": "hi", "published": true, "tags": []string{"go"}}, http.StatusOK, &live)
	assert.Equal(t, "alice", live.AuthorID)
	require.NotNil(t, live.PublishedAt)
	c.call("POST", posts, map[string]any{"title": "Again", "slug": "hello", "content": "hi"}, http.StatusBadRequest, nil)

	var pg page[types.Post]
	c.call("GET", posts+"&limit=1", nil, http.StatusOK, &pg)
	assert.Len(t, pg.Data, 1)
	assert.Equal(t, 2, pg.Pagination.Total)
	assert.True(t, pg.Pagination.HasMore)
	c.call("GET", posts+"&limit=x", nil, http.StatusBadRequest, nil)

	public := client{t: t, handler: c.handler}
	public.call("GET", "/v1/posts?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, &pg)
	require.Len(t, pg.Data, 1)
	assert.Equal(t, "hello", pg.Data[0].Slug)
	public.call("GET", "/v1/posts/hello?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, nil)
	public.call("GET", "/v1/posts/draft?orgSlug=acme&projectSlug=demo", nil, http.StatusNotFound, nil)
	public.call("GET", "/v1/posts/hello", nil, http.StatusNotFound, nil)
	public.call("GET", "/v1/posts?orgSlug=acme&projectSlug=nope", nil, http.StatusNotFound, nil)

	t.Run("tags match any listed tag", func(t *testing.T) {
		c.call("POST", posts, map[string]any{"title": "Notes", "slug": "notes", "content": "n", "tags": []string{"news"}}, http.StatusOK, nil)
		var pg page[types.Post]
		c.call("GET", posts+"&tags=go,news", nil, http.StatusOK, &pg)
		assert.Equal(t, 2, pg.Pagination.Total)
		c.call("GET", posts+"&tags=rust,%20,go", nil, http.StatusOK, &pg)
		require.Len(t, pg.Data, 1)
		assert.Equal(t, "hello", pg.Data[0].Slug)
		c.call("GET", posts+"&tag=news", nil, http.StatusOK, &pg)
		require.Len(t, pg.Data, 1)
		assert.Equal(t, "notes", pg.Data[0].Slug)
	})

	c.call("PUT", "/posts/"+draft.ID+"?orgSlug=acme&projectSlug=demo", map[string]any{"title": "Draft", "slug": "hello", "content": "wip"}, http.StatusBadRequest, nil)
	c.call("DELETE", "/posts/"+draft.ID+"?orgSlug=acme&projectSlug=demo2", nil, http.StatusNotFound, nil)
	c.call("DELETE", "/posts/"+draft.ID+"?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, nil)
}

func TestBlogs(t *testing.T) {
	c := setup(t)
	blogs := "/blogs?orgSlug=acme&projectSlug=demo"

	var b types.Blog
	c.call("POST", blogs, map[string]any{
		"title": "Guide", "slug": "guide", "content": "text", "published": true,
		"category": "howto", "faqs": []map[string]string{{"q": "why", "a": "because"}},
	}, http.StatusOK, &b)
	assert.Equal(t, "howto", b.Category)
	assert.JSONEq(t, `[{"q":"why","a":"because"}]`, string(b.FAQs))

	var pg page[types.Blog]
	client{t: t, handler: c.handler}.call("GET", "/v1/blogs?orgSlug=acme&projectSlug=demo&category=howto", nil, http.StatusOK, &pg)
	assert.Len(t, pg.Data, 1)
	client{t: t, handler: c.handler}.call("GET", "/v1/blogs/guide?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, nil)

	c.call("GET", "/blogs/"+b.ID+"?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, nil)
	c.call("DELETE", "/blogs/"+b.ID+"?orgSlug=acme&projectSlug=demo", nil, http.StatusOK, nil)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err   error
		slugs slugConflicts
		want  int
	}{
		{auth.ErrNoCredential, slugAsConflict, http.StatusUnauthorized},
		{types.ErrRoleDenied, slugAsConflict, http.StatusForbidden},
		{types.ErrItemNotFound, slugAsConflict, http.StatusNotFound},
		{types.ErrDuplicateSlug, slugAsConflict, http.StatusConflict},
		{types.ErrDuplicateSlug, slugAsBadRequest, http.StatusBadRequest},
		{types.ErrStaleVersion, slugAsBadRequest, http.StatusConflict},
		{types.ErrTypeMismatch, slugAsConflict, http.StatusBadRequest},
		{&types.FieldError{Problems: map[string]string{"a": "required"}}, slugAsConflict, http.StatusBadRequest},
		{types.NewStorageError("fetch items", errors.New("disk full")), slugAsConflict, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, status(tt.err, tt.slugs))
		})
	}
}

func TestStorageFailureIsOpaque(t *testing.T) {
	var logs bytes.Buffer
	s := New(Deps{Logger: zerolog.New(&logs)})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/content-types", nil)

	s.fail(rec, req, types.NewStorageError("fetch content types", errors.New("database is locked")), slugAsConflict)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch content types"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "database is locked")
}

func TestServeShutsDown(t *testing.T) {
	s := New(Deps{Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0", time.Second) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
