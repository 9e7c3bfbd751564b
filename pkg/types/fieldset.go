package types

import "sort"

// FieldSet holds a content type's fields in an ordered arena indexed by id.
// Position in the arena is the only ordering signal; Fields derives each
// field's Order from its position, so the result is always dense 0..n-1.
type FieldSet struct {
	arena []*ContentField
	index map[string]int
}

// NewFieldSet builds a set from stored fields, ordering them by their
// recorded Order. Ties keep their input order.
func NewFieldSet(fields []*ContentField) *FieldSet {
	sorted := make([]*ContentField, 0, len(fields))
	for _, f := range fields {
		sorted = append(sorted, f.Clone())
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Order < sorted[j].Order
	})
	s := &FieldSet{arena: sorted}
	s.reindex()
	return s
}

func (s *FieldSet) reindex() {
	s.index = make(map[string]int, len(s.arena))
	for i, f := range s.arena {
		s.index[f.ID] = i
	}
}

// Len returns the number of fields.
func (s *FieldSet) Len() int {
	return len(s.arena)
}

// Get returns the field with the given id.
func (s *FieldSet) Get(id string) (*ContentField, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.arena[i], true
}

// Position returns the zero-based position of the field, or -1.
func (s *FieldSet) Position(id string) int {
	i, ok := s.index[id]
	if !ok {
		return -1
	}
	return i
}

// Upsert replaces the field with f's id in place, or appends f when the id is
// new. It reports whether f was appended. f must carry an id.
func (s *FieldSet) Upsert(f *ContentField) bool {
	if i, ok := s.index[f.ID]; ok {
		s.arena[i] = f
		return false
	}
	s.arena = append(s.arena, f)
	s.index[f.ID] = len(s.arena) - 1
	return true
}

// Delete removes the field with the given id and reports whether it existed.
func (s *FieldSet) Delete(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.arena = append(s.arena[:i], s.arena[i+1:]...)
	s.reindex()
	return true
}

// Move places the field at pos, shifting the others. Positions past either
// end are clamped.
func (s *FieldSet) Move(id string, pos int) error {
	i, ok := s.index[id]
	if !ok {
		return ErrFieldNotFound
	}
	if pos < 0 {
		pos = 0
	}
	if pos > len(s.arena)-1 {
		pos = len(s.arena) - 1
	}
	if pos == i {
		return nil
	}
	f := s.arena[i]
	s.arena = append(s.arena[:i], s.arena[i+1:]...)
	s.arena = append(s.arena[:pos], append([]*ContentField{f}, s.arena[pos:]...)...)
	s.reindex()
	return nil
}

// Promote moves the named fields to the front in the given sequence. Fields
// not named keep their relative order behind them. Unknown and repeated ids
// are ignored.
func (s *FieldSet) Promote(ids []string) {
	seen := make(map[string]bool, len(ids))
	front := make([]*ContentField, 0, len(ids))
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		front = append(front, s.arena[i])
	}
	rest := make([]*ContentField, 0, len(s.arena)-len(front))
	for _, f := range s.arena {
		if !seen[f.ID] {
			rest = append(rest, f)
		}
	}
	s.arena = append(front, rest...)
	s.reindex()
}

// DuplicateKey returns the first field key used by more than one field.
func (s *FieldSet) DuplicateKey() (string, bool) {
	keys := make(map[string]bool, len(s.arena))
	for _, f := range s.arena {
		if keys[f.Key] {
			return f.Key, true
		}
		keys[f.Key] = true
	}
	return "", false
}

// Fields returns copies of the fields in position order with Order set to
// the position.
func (s *FieldSet) Fields() []*ContentField {
	out := make([]*ContentField, len(s.arena))
	for i, f := range s.arena {
		c := f.Clone()
		c.Order = i
		out[i] = c
	}
	return out
}

// Keys returns the set of field keys.
func (s *FieldSet) Keys() map[string]bool {
	keys := make(map[string]bool, len(s.arena))
	for _, f := range s.arena {
		keys[f.Key] = true
	}
	return keys
}
