package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(id, key string, order int) *ContentField {
	return &ContentField{ID: id, Name: key, Key: key, Type: FieldTypeText, Order: order}
}

func ids(fields []*ContentField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID
	}
	return out
}

func assertDense(t *testing.T, fields []*ContentField) {
	t.Helper()
	for i, f := range fields {
		assert.Equal(t, i, f.Order, "field %s", f.ID)
	}
}

func TestFieldSet(t *testing.T) {
	tests := []struct {
		name  string
		start []*ContentField
		edit  func(t *testing.T, s *FieldSet)
		want  []string
	}{
		{
			name:  "sorts by stored order and re-derives sparse orders",
			start: []*ContentField{field("c", "c", 9), field("a", "a", 2), field("b", "b", 5)},
			edit:  func(t *testing.T, s *FieldSet) {},
			want:  []string{"a", "b", "c"},
		},
		{
			name:  "upsert of a known id replaces in place",
			start: []*ContentField{field("a", "a", 0), field("b", "b", 1)},
			edit: func(t *testing.T, s *FieldSet) {
				assert.False(t, s.Upsert(field("a", "renamed", 7)))
				f, ok := s.Get("a")
				require.True(t, ok)
				assert.Equal(t, "renamed", f.Key)
			},
			want: []string{"a", "b"},
		},
		{
			name:  "upsert of a new id appends",
			start: []*ContentField{field("a", "a", 0)},
			edit: func(t *testing.T, s *FieldSet) {
				assert.True(t, s.Upsert(field("z", "z", 0)))
			},
			want: []string{"a", "z"},
		},
		{
			name:  "delete closes the gap",
			start: []*ContentField{field("a", "a", 0), field("b", "b", 1), field("c", "c", 2)},
			edit: func(t *testing.T, s *FieldSet) {
				assert.True(t, s.Delete("b"))
				assert.False(t, s.Delete("b"))
			},
			want: []string{"a", "c"},
		},
		{
			name:  "move forward and backward",
			start: []*ContentField{field("a", "a", 0), field("b", "b", 1), field("c", "c", 2), field("d", "d", 3)},
			edit: func(t *testing.T, s *FieldSet) {
				require.NoError(t, s.Move("a", 2))
				require.NoError(t, s.Move("d", 0))
			},
			want: []string{"d", "b", "c", "a"},
		},
		{
			name:  "move clamps out of range positions",
			start: []*ContentField{field("a", "a", 0), field("b", "b", 1), field("c", "c", 2)},
			edit: func(t *testing.T, s *FieldSet) {
				require.NoError(t, s.Move("a", 99))
				require.NoError(t, s.Move("c", -4))
			},
			want: []string{"c", "b", "a"},
		},
		{
			name:  "move of unknown id fails",
			start: []*ContentField{field("a", "a", 0)},
			edit: func(t *testing.T, s *FieldSet) {
				err := s.Move("nope", 0)
				assert.ErrorIs(t, err, ErrFieldNotFound)
				assert.ErrorIs(t, err, ErrNotFound)
			},
			want: []string{"a"},
		},
		{
			name:  "promote puts named fields first in sequence",
			start: []*ContentField{field("a", "a", 0), field("b", "b", 1), field("c", "c", 2), field("d", "d", 3)},
			edit: func(t *testing.T, s *FieldSet) {
				s.Promote([]string{"c", "missing", "a", "c"})
			},
			want: []string{"c", "a", "b", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewFieldSet(tt.start)
			tt.edit(t, s)
			got := s.Fields()
			assert.Equal(t, tt.want, ids(got))
			assertDense(t, got)
			for i, f := range got {
				assert.Equal(t, i, s.Position(f.ID))
			}
		})
	}
}

func TestFieldSetDoesNotAliasInput(t *testing.T) {
	in := []*ContentField{field("a", "a", 0)}
	s := NewFieldSet(in)
	out := s.Fields()
	out[0].Key = "changed"
	in[0].Key = "also-changed"

	f, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", f.Key)
}

func TestFieldSetDuplicateKey(t *testing.T) {
	s := NewFieldSet([]*ContentField{field("a", "title", 0), field("b", "body", 1)})
	_, dup := s.DuplicateKey()
	assert.False(t, dup)

	s.Upsert(field("c", "title", 0))
	key, dup := s.DuplicateKey()
	assert.True(t, dup)
	assert.Equal(t, "title", key)
}

func TestIsTemporaryID(t *testing.T) {
	assert.True(t, IsTemporaryID(""))
	assert.True(t, IsTemporaryID("temp-1712345"))
	assert.False(t, IsTemporaryID("0190a0e4-7c1f-7d3a-9c55-2b1f0e8d1a11"))
	assert.False(t, IsTemporaryID("template"))
}

func TestContentFieldValidate(t *testing.T) {
	tests := []struct {
		name    string
		field   ContentField
		wantErr error
	}{
		{"valid", ContentField{Name: "Title", Key: "title", Type: FieldTypeText}, nil},
		{"missing name", ContentField{Key: "title", Type: FieldTypeText}, ErrInvalidName},
		{"missing key", ContentField{Name: "Title", Type: FieldTypeText}, ErrInvalidFieldKey},
		{"key starting with digit", ContentField{Name: "T", Key: "1title", Type: FieldTypeText}, ErrInvalidFieldKey},
		{"unknown type", ContentField{Name: "T", Key: "t", Type: "color"}, ErrInvalidFieldType},
		{"bad options", ContentField{Name: "T", Key: "t", Type: FieldTypeText, Options: []byte("{")}, ErrInvalidOptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestContentTypeUpdateOps(t *testing.T) {
	u := &ContentTypeUpdate{
		Fields:     []*ContentField{field("temp-1", "title", 0)},
		Operations: []FieldOp{{Op: FieldOpDelete, FieldID: "x"}},
	}
	ops := u.Ops()
	require.Len(t, ops, 2)
	assert.Equal(t, FieldOpUpsert, ops[0].Op)
	assert.Equal(t, "temp-1", ops[0].Field.ID)
	assert.Equal(t, FieldOpDelete, ops[1].Op)
}
