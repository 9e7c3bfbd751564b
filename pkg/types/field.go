package types

import (
	"encoding/json"
	"strings"
)

// Field types determine which values a content field accepts.
const (
	FieldTypeText     = "text"
	FieldTypeRichText = "rich-text"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeBoolean  = "boolean"
	FieldTypeImage    = "image"
	FieldTypeFile     = "file"
)

// FieldTypes lists every recognized field type in display order.
var FieldTypes = []string{
	FieldTypeText,
	FieldTypeRichText,
	FieldTypeNumber,
	FieldTypeDate,
	FieldTypeBoolean,
	FieldTypeImage,
	FieldTypeFile,
}

var validFieldTypes = map[string]bool{
	FieldTypeText:     true,
	FieldTypeRichText: true,
	FieldTypeNumber:   true,
	FieldTypeDate:     true,
	FieldTypeBoolean:  true,
	FieldTypeImage:    true,
	FieldTypeFile:     true,
}

// IsValidFieldType reports whether ft is a recognized field type.
func IsValidFieldType(ft string) bool {
	return validFieldTypes[ft]
}

// TempIDPrefix marks field ids generated by editors for fields that have not
// been persisted yet.
const TempIDPrefix = "temp-"

// IsTemporaryID reports whether id names a field that does not exist yet.
func IsTemporaryID(id string) bool {
	return id == "" || strings.HasPrefix(id, TempIDPrefix)
}

// ContentField is one typed slot of a ContentType schema. Order is the dense,
// zero-based position of the field within its type.
type ContentField struct {
	ID            string          `json:"id"`
	ContentTypeID string          `json:"contentTypeId"`
	Name          string          `json:"name"`
	Key           string          `json:"key"`
	Type          string          `json:"type"`
	Required      bool            `json:"required"`
	Options       json.RawMessage `json:"options,omitempty"`
	Order         int             `json:"order"`
}

// Validate checks the definition, not the values it accepts.
func (f *ContentField) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrInvalidName
	}
	if err := ValidateFieldKey(f.Key); err != nil {
		return err
	}
	if !IsValidFieldType(f.Type) {
		return ErrInvalidFieldType
	}
	if len(f.Options) > 0 && !json.Valid(f.Options) {
		return ErrInvalidOptions
	}
	return nil
}

// Clone returns a deep copy of f.
func (f *ContentField) Clone() *ContentField {
	c := *f
	if f.Options != nil {
		c.Options = append(json.RawMessage(nil), f.Options...)
	}
	return &c
}

// Field operations accepted by a schema update.
const (
	FieldOpUpsert = "upsert"
	FieldOpDelete = "delete"
	FieldOpMove   = "move"
)

// FieldOp is one explicit edit of a content type's field set. Upsert carries
// Field; Delete and Move carry FieldID. Scrub on a delete also removes the
// field's key from every stored item payload of the type.
type FieldOp struct {
	Op       string        `json:"op"`
	Field    *ContentField `json:"field,omitempty"`
	FieldID  string        `json:"fieldId,omitempty"`
	Position int           `json:"position,omitempty"`
	Scrub    bool          `json:"scrub,omitempty"`
}
