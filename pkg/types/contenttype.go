package types

import "time"

// ContentType is a user-defined schema. ProjectID is empty for types created
// in the legacy global scope, where slugs are unique across all types.
type ContentType struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	ProjectID   string          `json:"projectId,omitempty"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Fields      []*ContentField `json:"fields,omitempty"`
	Count       *TypeCount      `json:"_count,omitempty"`
}

// TypeCount annotates a listed content type with its item count.
type TypeCount struct {
	Items int `json:"items"`
}

// Global reports whether the type lives in the legacy global slug scope.
func (ct *ContentType) Global() bool {
	return ct.ProjectID == ""
}

// ContentTypeUpdate describes one schema edit. Fields is the legacy form:
// every entry is an upsert and omitted fields are kept. Operations is the
// explicit form. Both may be given; Fields apply first.
type ContentTypeUpdate struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Fields      []*ContentField `json:"fields,omitempty"`
	Operations  []FieldOp       `json:"operations,omitempty"`
	Version     *int64          `json:"version,omitempty"`
}

// Ops returns the update as one operation list, legacy fields first.
func (u *ContentTypeUpdate) Ops() []FieldOp {
	ops := make([]FieldOp, 0, len(u.Fields)+len(u.Operations))
	for _, f := range u.Fields {
		ops = append(ops, FieldOp{Op: FieldOpUpsert, Field: f})
	}
	return append(ops, u.Operations...)
}
