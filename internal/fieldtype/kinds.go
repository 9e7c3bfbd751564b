package fieldtype

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// kind is one field type variant. decode turns a payload value into the
// native value that options and rules see; check applies the options.
type kind struct {
	decode func(v any) (any, error)
	check  func(native any, opts Options) string
}

var kinds = map[string]kind{
	types.FieldTypeText:     {decode: decodeString, check: checkString},
	types.FieldTypeRichText: {decode: decodeString, check: checkString},
	types.FieldTypeImage:    {decode: decodeString, check: checkString},
	types.FieldTypeFile:     {decode: decodeString, check: checkString},
	types.FieldTypeNumber:   {decode: decodeNumber, check: checkNumber},
	types.FieldTypeBoolean:  {decode: decodeBool, check: noCheck},
	types.FieldTypeDate:     {decode: decodeDate, check: noCheck},
}

var (
	errWantString = errors.New("must be a string")
	errWantNumber = errors.New("must be a number")
	errWantBool   = errors.New("must be a boolean")
	errWantDate   = errors.New("must be a date (RFC 3339 or YYYY-MM-DD)")
)

const dateOnly = "2006-01-02"

func decodeString(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWantString
	}
	return s, nil
}

func decodeNumber(v any) (any, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return nil, errWantNumber
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	default:
		return nil, errWantNumber
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errWantNumber
	}
	return f, nil
}

func decodeBool(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errWantBool
	}
	return b, nil
}

func decodeDate(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, errWantDate
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return nil, errWantDate
}

func checkString(native any, opts Options) string {
	s := native.(string)
	if opts.MaxLength != nil && utf8.RuneCountInString(s) > *opts.MaxLength {
		return fmt.Sprintf("must be at most %d characters", *opts.MaxLength)
	}
	if len(opts.Choices) > 0 {
		for _, c := range opts.Choices {
			if c == s {
				return ""
			}
		}
		return "must be one of: " + strings.Join(opts.Choices, ", ")
	}
	return ""
}

func checkNumber(native any, opts Options) string {
	f := native.(float64)
	if opts.Min != nil && f < *opts.Min {
		return "must be at least " + strconv.FormatFloat(*opts.Min, 'g', -1, 64)
	}
	if opts.Max != nil && f > *opts.Max {
		return "must be at most " + strconv.FormatFloat(*opts.Max, 'g', -1, 64)
	}
	return ""
}

func noCheck(any, Options) string { return "" }

// empty reports whether v counts as missing for a required field.
func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
