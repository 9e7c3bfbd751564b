// Package fixed stores the built-in content kinds, posts and blogs, whose
// fields are fixed rather than user-defined. Slugs are unique per project,
// or across the global scope when the project is empty.
package fixed

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Store manages posts and blogs.
type Store struct {
	store types.Cupboard
	log   zerolog.Logger
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock sets the clock used to stamp publication times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store over store.
func New(store types.Cupboard, opts ...Option) *Store {
	s := &Store{
		store: store,
		log:   zerolog.Nop(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalize trims text fields and drops blank and repeated tags.
func normalize(p *types.Post) {
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = strings.TrimSpace(p.Slug)
	p.Excerpt = strings.TrimSpace(p.Excerpt)
	p.Image = strings.TrimSpace(p.Image)
	seen := make(map[string]bool, len(p.Tags))
	tags := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	p.Tags = tags
}

// apply copies the editable fields of in onto dst. An explicit PublishedAt
// on in wins over the stamp taken on first publication.
func apply(dst, in *types.Post, now time.Time) {
	dst.Title = in.Title
	dst.Slug = in.Slug
	dst.Content = in.Content
	dst.Excerpt = in.Excerpt
	dst.Featured = in.Featured
	dst.Tags = in.Tags
	dst.Image = in.Image
	dst.Publish(in.Published, now)
	if in.PublishedAt != nil {
		t := in.PublishedAt.UTC()
		dst.PublishedAt = &t
	}
}
