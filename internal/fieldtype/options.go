package fieldtype

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Options are the recognized keys of a field's options blob. Other keys are
// kept in storage for clients and ignored here.
type Options struct {
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Choices   []string `json:"choices,omitempty"`
	Rule      string   `json:"rule,omitempty"`
}

// ParseOptions reads the recognized keys from raw. Options that are not a
// JSON object are opaque to validation and yield zero Options, as do empty
// input and a JSON null. A recognized key holding a value of the wrong shape
// is an error.
func ParseOptions(raw json.RawMessage) (Options, error) {
	var opts Options
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return opts, nil
	}
	if !json.Valid(trimmed) {
		return opts, types.ErrInvalidOptions
	}
	if trimmed[0] != '{' {
		return opts, nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return opts, fmt.Errorf("%w: %v", types.ErrInvalidOptions, err)
	}
	for _, k := range []struct {
		name string
		dst  any
		want string
	}{
		{"maxLength", &opts.MaxLength, "an integer"},
		{"min", &opts.Min, "a number"},
		{"max", &opts.Max, "a number"},
		{"choices", &opts.Choices, "a list of strings"},
		{"rule", &opts.Rule, "a string"},
	} {
		v, ok := keys[k.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, k.dst); err != nil {
			return opts, fmt.Errorf("%w: %s must be %s", types.ErrInvalidOptions, k.name, k.want)
		}
	}
	return opts, nil
}

func (o Options) check(kind string) error {
	if o.MaxLength != nil {
		if !textual(kind) {
			return fmt.Errorf("%w: maxLength applies to text fields only", types.ErrInvalidOptions)
		}
		if *o.MaxLength < 0 {
			return fmt.Errorf("%w: maxLength must not be negative", types.ErrInvalidOptions)
		}
	}
	if o.Min != nil || o.Max != nil {
		if kind != types.FieldTypeNumber {
			return fmt.Errorf("%w: min and max apply to number fields only", types.ErrInvalidOptions)
		}
		if o.Min != nil && o.Max != nil && *o.Min > *o.Max {
			return fmt.Errorf("%w: min is greater than max", types.ErrInvalidOptions)
		}
	}
	if len(o.Choices) > 0 && !textual(kind) {
		return fmt.Errorf("%w: choices apply to text fields only", types.ErrInvalidOptions)
	}
	return nil
}

func textual(kind string) bool {
	switch kind {
	case types.FieldTypeText, types.FieldTypeRichText, types.FieldTypeImage, types.FieldTypeFile:
		return true
	}
	return false
}
