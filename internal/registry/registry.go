// Package registry owns content type schemas: creation, field edits,
// deletion and listing. Every schema edit commits or rolls back as one
// transaction, so readers never see a partially applied field set.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/internal/codec"
	"github.com/mesh-intelligence/pantry/internal/fieldtype"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Registry is the schema registry.
type Registry struct {
	store          types.Cupboard
	validator      *fieldtype.Validator
	codec          codec.Codec
	requireVersion bool
	log            zerolog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithRequireVersion controls whether UpdateType demands the caller's last
// read version. When off, a missing version means last write wins.
func WithRequireVersion(require bool) Option {
	return func(r *Registry) { r.requireVersion = require }
}

// WithValidator shares a field validator and its rule cache.
func WithValidator(v *fieldtype.Validator) Option {
	return func(r *Registry) { r.validator = v }
}

// WithCodec sets the payload codec used when scrubbing item data.
func WithCodec(c codec.Codec) Option {
	return func(r *Registry) { r.codec = c }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// New returns a Registry over store.
func New(store types.Cupboard, opts ...Option) *Registry {
	r := &Registry{
		store:          store,
		validator:      fieldtype.New(),
		codec:          codec.JSON{},
		requireVersion: true,
		log:            zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateType creates an empty content type. With a projectID the slug must
// be unique within that project; with an empty projectID the type is global
// and its slug must be unique across every content type.
func (r *Registry) CreateType(ctx context.Context, projectID, name, slug, description string) (*types.ContentType, error) {
	name = strings.TrimSpace(name)
	if err := types.ValidateName(name, 1); err != nil {
		return nil, err
	}
	if err := types.ValidateSlug(slug); err != nil {
		return nil, err
	}
	ct := &types.ContentType{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(description),
		ProjectID:   projectID,
	}
	err := r.store.Update(ctx, func(tx types.Tables) error {
		var (
			taken bool
			err   error
		)
		if projectID == "" {
			taken, err = tx.ContentTypes().SlugTakenAnywhere(ctx, slug)
		} else {
			taken, err = tx.ContentTypes().SlugTaken(ctx, projectID, slug)
		}
		if err != nil {
			return err
		}
		if taken {
			return types.ErrDuplicateSlug
		}
		return tx.ContentTypes().Create(ctx, ct)
	})
	if err != nil {
		return nil, types.NewStorageError("create content type", err)
	}
	ct.Fields = []*types.ContentField{}
	r.log.Info().Str("type", ct.ID).Str("slug", slug).Str("project", projectID).Msg("content type created")
	return ct, nil
}

func loadType(ctx context.Context, tx types.Tables, ct *types.ContentType) error {
	fields, err := tx.ContentFields().List(ctx, ct.ID)
	if err != nil {
		return err
	}
	ct.Fields = types.NewFieldSet(fields).Fields()
	return nil
}

// GetType returns the type with its fields in order.
func (r *Registry) GetType(ctx context.Context, id string) (*types.ContentType, error) {
	ct, err := r.store.ContentTypes().Get(ctx, id)
	if err != nil {
		return nil, types.NewStorageError("fetch content type", types.ReplaceNotFound(err, types.ErrContentTypeNotFound))
	}
	if err := loadType(ctx, r.store, ct); err != nil {
		return nil, types.NewStorageError("fetch content type", err)
	}
	return ct, nil
}

// TypeBySlug returns the type with the given slug in a project, or in the
// global scope when projectID is empty, with its fields in order.
func (r *Registry) TypeBySlug(ctx context.Context, projectID, slug string) (*types.ContentType, error) {
	ct, err := r.store.ContentTypes().GetBySlug(ctx, projectID, slug)
	if err != nil {
		return nil, types.NewStorageError("fetch content type", types.ReplaceNotFound(err, types.ErrContentTypeNotFound))
	}
	if err := loadType(ctx, r.store, ct); err != nil {
		return nil, types.NewStorageError("fetch content type", err)
	}
	return ct, nil
}

// ListTypes returns a project's types newest first, without fields, each
// annotated with its item count.
func (r *Registry) ListTypes(ctx context.Context, projectID string) ([]*types.ContentType, error) {
	list, err := r.store.ContentTypes().List(ctx, projectID)
	if err != nil {
		return nil, types.NewStorageError("fetch content types", err)
	}
	if list == nil {
		list = []*types.ContentType{}
	}
	return list, nil
}

// DeleteType removes the type together with its fields and items.
func (r *Registry) DeleteType(ctx context.Context, id string) error {
	err := r.store.Update(ctx, func(tx types.Tables) error {
		return tx.ContentTypes().Delete(ctx, id)
	})
	if err != nil {
		return types.NewStorageError("delete content type", types.ReplaceNotFound(err, types.ErrContentTypeNotFound))
	}
	r.log.Info().Str("type", id).Msg("content type deleted")
	return nil
}

// UpdateType applies u to the type in one transaction and returns the
// updated type with its fields.
//
// Upserts with an empty or temporary id create fields; any other id must
// name a field of this type. Fields named by upserts take the leading
// positions in submitted order, the remaining fields follow in their prior
// order, and moves apply last. Omitted fields are kept. A delete with Scrub
// also removes the field's key from every item payload of the type, unless
// another field in the final set still uses the key.
func (r *Registry) UpdateType(ctx context.Context, id string, u *types.ContentTypeUpdate) (*types.ContentType, error) {
	if u == nil {
		u = &types.ContentTypeUpdate{}
	}
	if r.requireVersion && u.Version == nil {
		return nil, types.ErrMissingVersion
	}
	ops := u.Ops()
	if err := r.checkOps(ops); err != nil {
		return nil, err
	}

	var out *types.ContentType
	err := r.store.Update(ctx, func(tx types.Tables) error {
		ct, err := tx.ContentTypes().Get(ctx, id)
		if err != nil {
			return types.ReplaceNotFound(err, types.ErrContentTypeNotFound)
		}
		stored, err := tx.ContentFields().List(ctx, id)
		if err != nil {
			return err
		}

		plan, err := planEdit(id, stored, ops)
		if err != nil {
			return err
		}
		for _, fid := range plan.deleted {
			if err := tx.ContentFields().Delete(ctx, id, fid); err != nil {
				return err
			}
		}
		final := plan.set.Fields()
		for _, f := range final {
			if err := tx.ContentFields().Upsert(ctx, f); err != nil {
				return err
			}
		}
		if len(plan.scrub) > 0 {
			if err := r.scrub(ctx, tx, id, plan.scrub, plan.set.Keys()); err != nil {
				return err
			}
		}

		if name := strings.TrimSpace(u.Name); name != "" {
			ct.Name = name
		}
		if u.Description != nil {
			ct.Description = strings.TrimSpace(*u.Description)
		}
		var expected int64
		if u.Version != nil {
			expected = *u.Version
		}
		if err := tx.ContentTypes().Update(ctx, ct, expected); err != nil {
			return types.ReplaceNotFound(err, types.ErrContentTypeNotFound)
		}
		ct.Fields = final
		out = ct
		return nil
	})
	if err != nil {
		r.log.Debug().Err(err).Str("type", id).Msg("content type update rolled back")
		return nil, types.NewStorageError("update content type", err)
	}
	r.log.Info().Str("type", id).Int("ops", len(ops)).Int64("version", out.Version).Msg("content type updated")
	return out, nil
}

// checkOps validates every operation before the transaction opens.
func (r *Registry) checkOps(ops []types.FieldOp) error {
	for i, op := range ops {
		switch op.Op {
		case types.FieldOpUpsert:
			if op.Field == nil {
				return fmt.Errorf("operation %d: upsert needs a field: %w", i, types.ErrInvalidOperation)
			}
			if err := r.validator.CheckField(op.Field); err != nil {
				return fmt.Errorf("field %q: %w", op.Field.Key, err)
			}
		case types.FieldOpDelete, types.FieldOpMove:
			if op.FieldID == "" {
				return fmt.Errorf("operation %d: %s needs a fieldId: %w", i, op.Op, types.ErrInvalidOperation)
			}
		default:
			return fmt.Errorf("operation %d: %q: %w", i, op.Op, types.ErrInvalidOperation)
		}
	}
	return nil
}

// edit is the outcome of applying operations to a stored field set.
type edit struct {
	set     *types.FieldSet
	deleted []string
	scrub   []string
}

func planEdit(typeID string, stored []*types.ContentField, ops []types.FieldOp) (*edit, error) {
	e := &edit{set: types.NewFieldSet(stored)}
	var (
		promoted []string
		moves    []types.FieldOp
	)
	// assigned maps temporary ids to the ids of the fields they created, so
	// later operations in the same edit can name a new field.
	assigned := map[string]string{}
	resolve := func(id string) string {
		if real, ok := assigned[id]; ok {
			return real
		}
		return id
	}
	for _, op := range ops {
		switch op.Op {
		case types.FieldOpUpsert:
			f := op.Field.Clone()
			f.Name = strings.TrimSpace(f.Name)
			if real, ok := assigned[f.ID]; ok {
				f.ID = real
			} else if types.IsTemporaryID(f.ID) {
				temp := f.ID
				f.ID = newFieldID()
				if temp != "" {
					assigned[temp] = f.ID
				}
			} else if _, ok := e.set.Get(f.ID); !ok {
				return nil, fmt.Errorf("field %s: %w", f.ID, types.ErrFieldNotFound)
			}
			f.ContentTypeID = typeID
			e.set.Upsert(f)
			promoted = append(promoted, f.ID)
		case types.FieldOpDelete:
			id := resolve(op.FieldID)
			f, ok := e.set.Get(id)
			if !ok {
				return nil, fmt.Errorf("field %s: %w", op.FieldID, types.ErrFieldNotFound)
			}
			e.set.Delete(id)
			if !isNew(stored, id) {
				e.deleted = append(e.deleted, id)
			}
			if op.Scrub {
				e.scrub = append(e.scrub, f.Key)
			}
		case types.FieldOpMove:
			op.FieldID = resolve(op.FieldID)
			moves = append(moves, op)
		}
	}
	e.set.Promote(promoted)
	for _, m := range moves {
		if err := e.set.Move(m.FieldID, m.Position); err != nil {
			return nil, fmt.Errorf("field %s: %w", m.FieldID, err)
		}
	}
	if key, dup := e.set.DuplicateKey(); dup {
		return nil, fmt.Errorf("%q: %w", key, types.ErrDuplicateFieldKey)
	}
	return e, nil
}

func isNew(stored []*types.ContentField, id string) bool {
	for _, f := range stored {
		if f.ID == id {
			return false
		}
	}
	return true
}

func newFieldID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// scrub removes keys from every item payload of the type. Keys still used by
// a field in the final set are kept.
func (r *Registry) scrub(ctx context.Context, tx types.Tables, typeID string, keys []string, live map[string]bool) error {
	var drop []string
	for _, k := range keys {
		if !live[k] {
			drop = append(drop, k)
		}
	}
	if len(drop) == 0 {
		return nil
	}
	items, err := tx.ContentItems().List(ctx, typeID, false)
	if err != nil {
		return err
	}
	for _, item := range items {
		data, err := r.codec.Decode(item.RawData)
		if err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}
		changed := false
		for _, k := range drop {
			if _, ok := data[k]; ok {
				delete(data, k)
				changed = true
			}
		}
		if !changed {
			continue
		}
		if item.RawData, err = r.codec.Encode(data); err != nil {
			return fmt.Errorf("item %s: %w", item.ID, err)
		}
		if err := tx.ContentItems().Update(ctx, item, 0); err != nil {
			return err
		}
	}
	r.log.Info().Str("type", typeID).Strs("keys", drop).Int("items", len(items)).Msg("scrubbed removed field keys")
	return nil
}
