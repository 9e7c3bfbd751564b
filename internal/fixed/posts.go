package fixed

import (
	"context"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// CreatePost stores a new post in projectID written by authorID.
func (s *Store) CreatePost(ctx context.Context, projectID, authorID string, in *types.Post) (*types.Post, error) {
	normalize(in)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &types.Post{ProjectID: projectID, AuthorID: authorID}
	apply(p, in, s.now())

	err := s.store.Update(ctx, func(tx types.Tables) error {
		taken, err := tx.Posts().SlugTaken(ctx, projectID, p.Slug, "")
		if err != nil {
			return err
		}
		if taken {
			return types.ErrDuplicateSlug
		}
		return tx.Posts().Create(ctx, p)
	})
	if err != nil {
		return nil, types.NewStorageError("create post", err)
	}
	s.log.Info().Str("post", p.ID).Str("slug", p.Slug).Str("project", projectID).Msg("post created")
	return p, nil
}

func (s *Store) post(ctx context.Context, tables types.Tables, projectID, id, op string) (*types.Post, error) {
	p, err := tables.Posts().Get(ctx, id)
	if err != nil {
		return nil, types.NewStorageError(op, types.ReplaceNotFound(err, types.ErrPostNotFound))
	}
	if p.ProjectID != projectID {
		return nil, types.ErrPostNotFound
	}
	return p, nil
}

// GetPost returns the post with id in projectID.
func (s *Store) GetPost(ctx context.Context, projectID, id string) (*types.Post, error) {
	return s.post(ctx, s.store, projectID, id, "fetch post")
}

// UpdatePost replaces the post's editable fields with those of in.
func (s *Store) UpdatePost(ctx context.Context, projectID, id string, in *types.Post) (*types.Post, error) {
	normalize(in)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *types.Post
	err := s.store.Update(ctx, func(tx types.Tables) error {
		p, err := s.post(ctx, tx, projectID, id, "update post")
		if err != nil {
			return err
		}
		taken, err := tx.Posts().SlugTaken(ctx, projectID, in.Slug, id)
		if err != nil {
			return err
		}
		if taken {
			return types.ErrDuplicateSlug
		}
		apply(p, in, s.now())
		if err := tx.Posts().Update(ctx, p); err != nil {
			return types.ReplaceNotFound(err, types.ErrPostNotFound)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, types.NewStorageError("update post", err)
	}
	s.log.Info().Str("post", id).Msg("post updated")
	return out, nil
}

// DeletePost removes the post.
func (s *Store) DeletePost(ctx context.Context, projectID, id string) error {
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := s.post(ctx, tx, projectID, id, "delete post"); err != nil {
			return err
		}
		return types.ReplaceNotFound(tx.Posts().Delete(ctx, id), types.ErrPostNotFound)
	})
	if err != nil {
		return types.NewStorageError("delete post", err)
	}
	s.log.Info().Str("post", id).Msg("post deleted")
	return nil
}

// ListPosts returns one page of posts matching f, newest first.
func (s *Store) ListPosts(ctx context.Context, f types.EntryFilter) ([]*types.Post, types.Pagination, error) {
	f.Normalize()
	list, total, err := s.store.Posts().List(ctx, f)
	if err != nil {
		return nil, types.Pagination{}, types.NewStorageError("fetch posts", err)
	}
	if list == nil {
		list = []*types.Post{}
	}
	return list, types.NewPagination(total, f), nil
}

// PublishedPost returns the published post with slug. Drafts are reported as
// not found.
func (s *Store) PublishedPost(ctx context.Context, projectID, slug string) (*types.Post, error) {
	p, err := s.store.Posts().GetBySlug(ctx, projectID, slug)
	if err != nil {
		return nil, types.NewStorageError("fetch post", types.ReplaceNotFound(err, types.ErrPostNotFound))
	}
	if !p.Published {
		return nil, types.ErrPostNotFound
	}
	return p, nil
}
