package types

import "time"

// ContentItem is one record of a content type. Data is the decoded payload;
// RawData is its stored encoding and never leaves the storage boundary.
type ContentItem struct {
	ID            string         `json:"id"`
	ContentTypeID string         `json:"contentTypeId"`
	Data          map[string]any `json:"data"`
	RawData       []byte         `json:"-"`
	Published     bool           `json:"published"`
	Version       int64          `json:"version"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// ItemWrite carries the caller-supplied part of a create or update.
type ItemWrite struct {
	Data      map[string]any `json:"data"`
	Published *bool          `json:"published,omitempty"`
	Version   *int64         `json:"version,omitempty"`
}
