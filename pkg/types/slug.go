package types

import (
	"regexp"
	"strings"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9-]+$`)
	fieldKeyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// ValidateSlug returns ErrInvalidSlug unless slug is non-empty and made only of
// lowercase letters, digits, and hyphens.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// ValidateName returns ErrInvalidName when name is shorter than min runes after
// trimming.
func ValidateName(name string, min int) error {
	if min < 1 {
		min = 1
	}
	if len([]rune(strings.TrimSpace(name))) < min {
		return ErrInvalidName
	}
	return nil
}

// ValidateFieldKey returns ErrInvalidFieldKey for keys that are not usable as
// machine identifiers.
func ValidateFieldKey(key string) error {
	if !fieldKeyPattern.MatchString(key) {
		return ErrInvalidFieldKey
	}
	return nil
}
