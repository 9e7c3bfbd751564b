package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// entryTable holds what posts and blogs share: the post columns, slug
// scoping, and filtered paging.
type entryTable struct {
	c     *conn
	table string
}

const (
	postColumns = "id, project_id, title, slug, content, excerpt, published, featured, tags, image, " +
		"author_id, published_at, created_at, updated_at"
	blogColumns = postColumns + ", category, seo_title, seo_description, faqs"
)

func hydratePost(row rowScanner, extra ...any) (*types.Post, error) {
	var (
		p                types.Post
		tags             string
		published        sql.NullString
		created, updated string
	)
	dest := append([]any{
		&p.ID, &p.ProjectID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.Published, &p.Featured,
		&tags, &p.Image, &p.AuthorID, &published, &created, &updated,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	var err error
	if p.PublishedAt, err = parseNullTime(published); err != nil {
		return nil, fmt.Errorf("parsing published_at: %w", err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}

func hydrateBlog(row rowScanner) (*types.Blog, error) {
	var (
		b    types.Blog
		faqs sql.NullString
	)
	p, err := hydratePost(row, &b.Category, &b.SEOTitle, &b.SEODescription, &faqs)
	if err != nil {
		return nil, err
	}
	b.Post = *p
	if faqs.Valid && faqs.String != "" {
		b.FAQs = json.RawMessage(faqs.String)
	}
	return &b, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// postArgs returns p's values in postColumns order.
func postArgs(p *types.Post) ([]any, error) {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return nil, err
	}
	return []any{
		p.ID, p.ProjectID, p.Title, p.Slug, p.Content, p.Excerpt, p.Published, p.Featured,
		tags, p.Image, p.AuthorID, formatNullTime(p.PublishedAt),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	}, nil
}

func stampNew(p *types.Post) {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	p.UpdatedAt = p.CreatedAt
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (t entryTable) insert(ctx context.Context, columns string, args []any) error {
	_, err := t.c.exec(ctx,
		"INSERT INTO "+t.table+" ("+columns+") VALUES ("+placeholders(len(args))+")",
		args...,
	)
	return t.c.insertErr(err, types.ErrDuplicateSlug, strings.TrimSuffix(t.table, "s"))
}

func (t entryTable) update(ctx context.Context, p *types.Post, set string, extra ...any) error {
	tags, err := encodeTags(p.Tags)
	if err != nil {
		return err
	}
	p.UpdatedAt = now()
	args := append([]any{
		p.Title, p.Slug, p.Content, p.Excerpt, p.Published, p.Featured, tags, p.Image,
		formatNullTime(p.PublishedAt), formatTime(p.UpdatedAt),
	}, extra...)
	args = append(args, p.ID)
	_, err = t.c.exec(ctx,
		"UPDATE "+t.table+" SET title = ?, slug = ?, content = ?, excerpt = ?, published = ?, "+
			"featured = ?, tags = ?, image = ?, published_at = ?, updated_at = ?"+set+" WHERE id = ?",
		args...,
	)
	if err != nil {
		if t.c.d.isUniqueViolation(err) {
			return types.ErrDuplicateSlug
		}
		return fmt.Errorf("updating %s: %w", t.table, err)
	}
	return nil
}

func (t entryTable) SlugTaken(ctx context.Context, projectID, slug, excludeID string) (bool, error) {
	ok, err := t.c.exists(ctx,
		"SELECT 1 FROM "+t.table+" WHERE project_id = ? AND slug = ? AND id <> ?",
		projectID, slug, excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("checking %s slug: %w", t.table, err)
	}
	return ok, nil
}

func (t entryTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	err := t.c.execOne(ctx, "DELETE FROM "+t.table+" WHERE id = ?", id)
	if err != nil && err != types.ErrNotFound {
		return fmt.Errorf("deleting %s: %w", t.table, err)
	}
	return err
}

// likeEscaper protects the LIKE wildcards in user input; patterns built from
// it need ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// where builds the filter clause shared by the count and page queries.
func (t entryTable) where(f types.EntryFilter) (string, []any, error) {
	clauses := []string{"project_id = ?"}
	args := []any{f.ProjectID}
	if f.Published != nil {
		clauses = append(clauses, "published = ?")
		args = append(args, *f.Published)
	}
	if f.Featured != nil {
		clauses = append(clauses, "featured = ?")
		args = append(args, *f.Featured)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := contains(strings.ToLower(s))
		clauses = append(clauses, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\' OR LOWER(excerpt) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	var tags []string
	for _, tag := range f.Tags {
		if tag == "" {
			continue
		}
		// Tags are stored as a JSON array, so match the quoted element.
		quoted, err := json.Marshal(tag)
		if err != nil {
			return "", nil, fmt.Errorf("encoding tag filter: %w", err)
		}
		tags = append(tags, `tags LIKE ? ESCAPE '\'`)
		args = append(args, contains(string(quoted)))
	}
	if len(tags) > 0 {
		clauses = append(clauses, "("+strings.Join(tags, " OR ")+")")
	}
	if f.Category != "" && t.table == "blogs" {
		clauses = append(clauses, "category = ?")
		args = append(args, f.Category)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// order sorts published listings by publication time, newest first; other
// listings follow creation time.
func (t entryTable) order(f types.EntryFilter) string {
	if f.Published != nil && *f.Published {
		return " ORDER BY published_at DESC, created_at DESC, id DESC"
	}
	return " ORDER BY created_at DESC, id DESC"
}

// page runs the count and the page query; scan is called per row.
func (t entryTable) page(ctx context.Context, columns string, f types.EntryFilter, scan func(*sql.Rows) error) (int, error) {
	f.Normalize()
	where, args, err := t.where(f)
	if err != nil {
		return 0, err
	}

	var total int
	if err := t.c.queryRow(ctx, "SELECT COUNT(*) FROM "+t.table+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.table, err)
	}

	rows, err := t.c.query(ctx,
		"SELECT "+columns+" FROM "+t.table+where+t.order(f)+" LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", t.table, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, fmt.Errorf("scanning %s: %w", t.table, err)
		}
	}
	return total, rows.Err()
}

type postsTable struct {
	entryTable
}

func (t *postsTable) Create(ctx context.Context, p *types.Post) error {
	stampNew(p)
	args, err := postArgs(p)
	if err != nil {
		return err
	}
	return t.insert(ctx, postColumns, args)
}

func (t *postsTable) one(ctx context.Context, where string, args ...any) (*types.Post, error) {
	p, err := hydratePost(t.c.queryRow(ctx, "SELECT "+postColumns+" FROM posts WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting post: %w", err)
	}
	return p, nil
}

func (t *postsTable) Get(ctx context.Context, id string) (*types.Post, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return t.one(ctx, "id = ?", id)
}

func (t *postsTable) GetBySlug(ctx context.Context, projectID, slug string) (*types.Post, error) {
	return t.one(ctx, "project_id = ? AND slug = ?", projectID, slug)
}

func (t *postsTable) List(ctx context.Context, f types.EntryFilter) ([]*types.Post, int, error) {
	var out []*types.Post
	total, err := t.page(ctx, postColumns, f, func(rows *sql.Rows) error {
		p, err := hydratePost(rows)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (t *postsTable) Update(ctx context.Context, p *types.Post) error {
	if _, err := t.Get(ctx, p.ID); err != nil {
		return err
	}
	return t.update(ctx, p, "")
}

type blogsTable struct {
	entryTable
}

func blogArgs(b *types.Blog) ([]any, error) {
	args, err := postArgs(&b.Post)
	if err != nil {
		return nil, err
	}
	return append(args, b.Category, b.SEOTitle, b.SEODescription, nullBytes(b.FAQs)), nil
}

func (t *blogsTable) Create(ctx context.Context, b *types.Blog) error {
	stampNew(&b.Post)
	args, err := blogArgs(b)
	if err != nil {
		return err
	}
	return t.insert(ctx, blogColumns, args)
}

func (t *blogsTable) one(ctx context.Context, where string, args ...any) (*types.Blog, error) {
	b, err := hydrateBlog(t.c.queryRow(ctx, "SELECT "+blogColumns+" FROM blogs WHERE "+where, args...))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting blog: %w", err)
	}
	return b, nil
}

func (t *blogsTable) Get(ctx context.Context, id string) (*types.Blog, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	return t.one(ctx, "id = ?", id)
}

func (t *blogsTable) GetBySlug(ctx context.Context, projectID, slug string) (*types.Blog, error) {
	return t.one(ctx, "project_id = ? AND slug = ?", projectID, slug)
}

func (t *blogsTable) List(ctx context.Context, f types.EntryFilter) ([]*types.Blog, int, error) {
	var out []*types.Blog
	total, err := t.page(ctx, blogColumns, f, func(rows *sql.Rows) error {
		b, err := hydrateBlog(rows)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (t *blogsTable) Update(ctx context.Context, b *types.Blog) error {
	if _, err := t.Get(ctx, b.ID); err != nil {
		return err
	}
	return t.update(ctx, &b.Post,
		", category = ?, seo_title = ?, seo_description = ?, faqs = ?",
		b.Category, b.SEOTitle, b.SEODescription, nullBytes(b.FAQs),
	)
}
