package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Post is a fixed-schema article.
type Post struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId,omitempty"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Published   bool       `json:"published"`
	Featured    bool       `json:"featured"`
	Tags        []string   `json:"tags"`
	Image       string     `json:"image,omitempty"`
	AuthorID    string     `json:"authorId"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Blog is a fixed-schema article with SEO metadata and FAQs.
type Blog struct {
	Post
	Category       string          `json:"category,omitempty"`
	SEOTitle       string          `json:"seoTitle,omitempty"`
	SEODescription string          `json:"seoDescription,omitempty"`
	FAQs           json.RawMessage `json:"faqs,omitempty"`
}

// Validate checks the fields every post must carry.
func (p *Post) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrInvalidTitle
	}
	if strings.TrimSpace(p.Content) == "" {
		return ErrInvalidContent
	}
	return ValidateSlug(p.Slug)
}

// Validate checks the post fields and the FAQ encoding.
func (b *Blog) Validate() error {
	if err := b.Post.Validate(); err != nil {
		return err
	}
	if len(b.FAQs) > 0 && !json.Valid(b.FAQs) {
		return ErrInvalidFAQs
	}
	return nil
}

// Publish sets the published flag, stamping PublishedAt on the first
// transition to published.
func (p *Post) Publish(published bool, now time.Time) {
	if published && !p.Published && p.PublishedAt == nil {
		t := now
		p.PublishedAt = &t
	}
	p.Published = published
}

// EntryFilter narrows a post or blog listing. An entry matches Tags when it
// carries any one of them.
type EntryFilter struct {
	ProjectID string
	Published *bool
	Featured  *bool
	Search    string
	Tags      []string
	Category  string
	Limit     int
	Offset    int
}

// Default and maximum page sizes for entry listings.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize clamps the paging window.
func (f *EntryFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// NewPagination derives HasMore from the window and total.
func NewPagination(total int, f EntryFilter) Pagination {
	return Pagination{
		Total:   total,
		Limit:   f.Limit,
		Offset:  f.Offset,
		HasMore: f.Offset+f.Limit < total,
	}
}
