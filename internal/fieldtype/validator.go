// Package fieldtype validates content item payloads against a content
// type's fields. Each field type is a variant with its own decode and option
// checks; an optional CEL rule in the field options runs last.
package fieldtype

import (
	"fmt"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Validator checks field definitions and item payloads. It is safe for
// concurrent use; compiled rules are cached for its lifetime.
type Validator struct {
	rules ruleCache
}

// New returns a Validator.
func New() *Validator {
	return &Validator{}
}

// CheckField validates a field definition including its options and rule.
func (v *Validator) CheckField(f *types.ContentField) error {
	if err := f.Validate(); err != nil {
		return err
	}
	opts, err := ParseOptions(f.Options)
	if err != nil {
		return err
	}
	if err := opts.check(f.Type); err != nil {
		return err
	}
	if opts.Rule != "" {
		return v.rules.compile(f.Type, opts.Rule)
	}
	return nil
}

// Validate checks data against fields. Keys must name a field, required
// fields must be present and non-empty, and every non-empty value must decode
// as its field's type and satisfy its options. All problems are reported
// together in a *types.FieldError.
func (v *Validator) Validate(fields []*types.ContentField, data map[string]any) error {
	byKey := make(map[string]*types.ContentField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	problems := &types.FieldError{}
	for key := range data {
		if _, ok := byKey[key]; !ok {
			problems.Add(key, "is not a field of this content type")
		}
	}

	for _, f := range fields {
		value, present := data[f.Key]
		if !present || empty(value) {
			if f.Required {
				problems.Add(f.Key, "is required")
			}
			continue
		}
		if msg := v.checkValue(f, value); msg != "" {
			problems.Add(f.Key, msg)
		}
	}
	return problems.OrNil()
}

func (v *Validator) checkValue(f *types.ContentField, value any) string {
	k, ok := kinds[f.Type]
	if !ok {
		return "has unknown field type " + f.Type
	}
	native, err := k.decode(value)
	if err != nil {
		return err.Error()
	}
	opts, err := ParseOptions(f.Options)
	if err != nil {
		return "has unreadable options"
	}
	if msg := k.check(native, opts); msg != "" {
		return msg
	}
	if opts.Rule == "" {
		return ""
	}
	passed, err := v.rules.eval(f.Type, opts.Rule, native)
	if err != nil {
		return fmt.Sprintf("rule %q failed to evaluate: %v", opts.Rule, err)
	}
	if !passed {
		return fmt.Sprintf("does not satisfy rule %q", opts.Rule)
	}
	return ""
}
