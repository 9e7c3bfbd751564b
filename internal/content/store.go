// Package content stores content item payloads scoped to a content type.
// Payloads are validated against the type's current fields on every write
// and kept in their encoded form at rest.
package content

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/fieldtype"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Schemas looks up content types by slug. An empty projectID selects the
// global scope.
type Schemas interface {
	TypeBySlug(ctx context.Context, projectID, slug string) (*types.ContentType, error)
}

// Store is the content item store.
type Store struct {
	store          types.Cupboard
	schemas        Schemas
	validator      *fieldtype.Validator
	codec          codec.Codec
	requireVersion bool
	log            zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRequireVersion controls whether UpdateItem demands the caller's last
// read version.
func WithRequireVersion(require bool) Option {
	return func(s *Store) { s.requireVersion = require }
}

// WithValidator shares a field validator and its rule cache.
func WithValidator(v *fieldtype.Validator) Option {
	return func(s *Store) { s.validator = v }
}

// WithCodec sets the payload codec.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) { s.codec = c }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New returns a Store that resolves schemas through schemas.
func New(store types.Cupboard, schemas Schemas, opts ...Option) *Store {
	s := &Store{
		store:          store,
		schemas:        schemas,
		validator:      fieldtype.New(),
		codec:          codec.JSON{},
		requireVersion: true,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// decode fills item.Data from its stored encoding.
func (s *Store) decode(item *types.ContentItem) error {
	data, err := s.codec.Decode(item.RawData)
	if err != nil {
		return fmt.Errorf("item %s: %w", item.ID, err)
	}
	item.Data = data
	return nil
}

// ListItems returns the type's items newest first with decoded data.
func (s *Store) ListItems(ctx context.Context, projectID, typeSlug string, publishedOnly bool) ([]*types.ContentItem, error) {
	ct, err := s.schemas.TypeBySlug(ctx, projectID, typeSlug)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ContentItems().List(ctx, ct.ID, publishedOnly)
	if err != nil {
		return nil, types.NewStorageError("fetch content items", err)
	}
	out := make([]*types.ContentItem, 0, len(items))
	for _, item := range items {
		if err := s.decode(item); err != nil {
			return nil, types.NewStorageError("fetch content items", err)
		}
		out = append(out, item)
	}
	return out, nil
}

// owned loads the item and checks it belongs to the type named by typeSlug
// in the given scope.
func (s *Store) owned(ctx context.Context, tables types.Tables, projectID, typeSlug, id, op string) (*types.ContentItem, error) {
	item, err := tables.ContentItems().Get(ctx, id)
	if err != nil {
		return nil, types.NewStorageError(op, types.ReplaceNotFound(err, types.ErrItemNotFound))
	}
	ct, err := tables.ContentTypes().Get(ctx, item.ContentTypeID)
	if err != nil {
		return nil, types.NewStorageError(op, types.ReplaceNotFound(err, types.ErrItemNotFound))
	}
	if ct.Slug != typeSlug || ct.ProjectID != projectID {
		return nil, types.ErrTypeMismatch
	}
	return item, nil
}

// GetItem returns the item with decoded data. An item of a different type
// than typeSlug fails with ErrTypeMismatch.
func (s *Store) GetItem(ctx context.Context, projectID, typeSlug, id string) (*types.ContentItem, error) {
	item, err := s.owned(ctx, s.store, projectID, typeSlug, id, "fetch content item")
	if err != nil {
		return nil, err
	}
	if err := s.decode(item); err != nil {
		return nil, types.NewStorageError("fetch content item", err)
	}
	return item, nil
}

// prepare validates data against the type's fields and returns the payload
// as it will read back together with its encoding.
func (s *Store) prepare(ct *types.ContentType, data map[string]any) (map[string]any, []byte, error) {
	if data == nil {
		data = map[string]any{}
	}
	if err := s.validator.Validate(ct.Fields, data); err != nil {
		return nil, nil, err
	}
	return codec.Canonical(s.codec, data)
}

// CreateItem validates and stores a new item. Published defaults to false.
func (s *Store) CreateItem(ctx context.Context, projectID, typeSlug string, w *types.ItemWrite) (*types.ContentItem, error) {
	if w == nil {
		w = &types.ItemWrite{}
	}
	ct, err := s.schemas.TypeBySlug(ctx, projectID, typeSlug)
	if err != nil {
		return nil, err
	}
	data, raw, err := s.prepare(ct, w.Data)
	if err != nil {
		return nil, err
	}
	item := &types.ContentItem{
		ContentTypeID: ct.ID,
		RawData:       raw,
		Published:     w.Published != nil && *w.Published,
	}
	if err := s.store.ContentItems().Create(ctx, item); err != nil {
		return nil, types.NewStorageError("create content item", err)
	}
	item.Data = data
	s.log.Info().Str("item", item.ID).Str("type", ct.ID).Msg("content item created")
	return item, nil
}

// UpdateItem replaces the item's data wholesale. Published keeps its stored
// value when omitted.
func (s *Store) UpdateItem(ctx context.Context, projectID, typeSlug, id string, w *types.ItemWrite) (*types.ContentItem, error) {
	if w == nil {
		w = &types.ItemWrite{}
	}
	if s.requireVersion && w.Version == nil {
		return nil, types.ErrMissingVersion
	}
	ct, err := s.schemas.TypeBySlug(ctx, projectID, typeSlug)
	if err != nil {
		return nil, err
	}
	data, raw, err := s.prepare(ct, w.Data)
	if err != nil {
		return nil, err
	}

	var out *types.ContentItem
	err = s.store.Update(ctx, func(tx types.Tables) error {
		item, err := s.owned(ctx, tx, projectID, typeSlug, id, "update content item")
		if err != nil {
			return err
		}
		item.RawData = raw
		if w.Published != nil {
			item.Published = *w.Published
		}
		var expected int64
		if w.Version != nil {
			expected = *w.Version
		}
		if err := tx.ContentItems().Update(ctx, item, expected); err != nil {
			return types.ReplaceNotFound(err, types.ErrItemNotFound)
		}
		item.Data = data
		out = item
		return nil
	})
	if err != nil {
		return nil, types.NewStorageError("update content item", err)
	}
	s.log.Info().Str("item", id).Int64("version", out.Version).Msg("content item updated")
	return out, nil
}

// DeleteItem hard-deletes the item.
func (s *Store) DeleteItem(ctx context.Context, projectID, typeSlug, id string) error {
	err := s.store.Update(ctx, func(tx types.Tables) error {
		if _, err := s.owned(ctx, tx, projectID, typeSlug, id, "delete content item"); err != nil {
			return err
		}
		return types.ReplaceNotFound(tx.ContentItems().Delete(ctx, id), types.ErrItemNotFound)
	})
	if err != nil {
		return types.NewStorageError("delete content item", err)
	}
	s.log.Info().Str("item", id).Msg("content item deleted")
	return nil
}
