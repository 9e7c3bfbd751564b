package fixed

import (
	"context"
	"strings"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func applyBlog(dst, in *types.Blog) {
	dst.Category = strings.TrimSpace(in.Category)
	dst.SEOTitle = strings.TrimSpace(in.SEOTitle)
	dst.SEODescription = strings.TrimSpace(in.SEODescription)
	dst.FAQs = in.FAQs
}

// CreateBlog stores a new blog in projectID written by authorID.
func (s *Store) CreateBlog(ctx context.Context, projectID, authorID string, in *types.Blog) (*types.Blog, error) {
	normalize(&in.Post)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b := &types.Blog{Post: types.Post{ProjectID: projectID, AuthorID: authorID}}
	apply(&b.Post, &in.Post, s.now())
	applyBlog(b, in)

	err := s.store.Update(ctx, func(tx types.Tables) error {
		taken, err := tx.Blogs().SlugTaken(ctx, projectID, b.Slug, "")
		if err != nil {
			return err
		}
		if taken {
			return types.ErrDuplicateSlug
		}
		return tx.Blogs().Create(ctx, b)
	})
	if err != nil {
		return nil, types.NewStorageError("create blog", err)
	}
	s.log.Info().Str("blog", b.ID).Str("slug", b.Slug).Str("project", projectID).Msg("blog created")
	return b, nil
}

func (s *Store) blog(ctx context.Context, tables types.Tables, projectID, id, op string) (*types.Blog, error) {
	b, err := tables.Blogs().Get(ctx, id)
	if err != nil {
		return nil, types.NewStorageError(op, types.ReplaceNotFound(err, types.ErrBlogNotFound))
	}
	if b.ProjectID != projectID {
		return nil, types.ErrBlogNotFound
	}
	return b, nil
}

// GetBlog returns the blog with id in projectID.
func (s *Store) GetBlog(ctx context.Context, projectID, id string) (*types.Blog, error) {
	return s.blog(ctx, s.store, projectID, id, "fetch blog")
}

// UpdateBlog replaces the blog's editable fields with those of in.
func (s *Store) UpdateBlog(ctx context.Context, projectID, id string, in *types.Blog) (*types.Blog, error) {
	normalize(&in.Post)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *types.Blog
	err := s.store.Update(ctx, func(tx types.Tables) error {
		b, err := s.blog(ctx, tx, projectID, id, "update blog")
		if err != nil {
			return err
		}
		taken, err := tx.Blogs().SlugTaken(ctx, projectID, in.Slug, id)
		if err != nil {
			return err
		}
		if taken {
			return types.ErrDuplicateSlug
		}
		apply(&b.Post, &in.Post, s.now())
		applyBlog(b, in)
		if err := tx.Blogs().Update(ctx, b); err != nil {
			return types.ReplaceNotFound(err, types.ErrBlogNotFound)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, types.NewStorageError("update blog", err)
	}
	s.log.Info().Str("blog", id).Msg("blog updated")
	return out, nil
}

// DeleteBlog removes the blog.
func (s *Store) DeleteBlog(ctx context.Context, projectID, id string) error {
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := s.blog(ctx, tx, projectID, id, "delete blog"); err != nil {
			return err
		}
		return types.ReplaceNotFound(tx.Blogs().Delete(ctx, id), types.ErrBlogNotFound)
	})
	if err != nil {
		return types.NewStorageError("delete blog", err)
	}
	s.log.Info().Str("blog", id).Msg("blog deleted")
	return nil
}

// ListBlogs returns one page of blogs matching f, newest first.
func (s *Store) ListBlogs(ctx context.Context, f types.EntryFilter) ([]*types.Blog, types.Pagination, error) {
	f.Normalize()
	list, total, err := s.store.Blogs().List(ctx, f)
	if err != nil {
		return nil, types.Pagination{}, types.NewStorageError("fetch blogs", err)
	}
	if list == nil {
		list = []*types.Blog{}
	}
	return list, types.NewPagination(total, f), nil
}

// PublishedBlog returns the published blog with slug.
func (s *Store) PublishedBlog(ctx context.Context, projectID, slug string) (*types.Blog, error) {
	b, err := s.store.Blogs().GetBySlug(ctx, projectID, slug)
	if err != nil {
		return nil, types.NewStorageError("fetch blog", types.ReplaceNotFound(err, types.ErrBlogNotFound))
	}
	if !b.Published {
		return nil, types.ErrBlogNotFound
	}
	return b, nil
}
