package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"detailed conflict", ErrDuplicateSlug, ErrConflict},
		{"wrapped not found", fmt.Errorf("getting type: %w", ErrFieldNotFound), ErrNotFound},
		{"field error", &FieldError{Problems: map[string]string{"a": "required"}}, ErrValidation},
		{"type mismatch", ErrTypeMismatch, ErrTypeMismatch},
		{"unclassified", errors.New("disk on fire"), ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStorageErrorHidesCause(t *testing.T) {
	cause := errors.New("SQLITE_BUSY: database is locked")
	err := NewStorageError("update content type", cause)

	assert.Equal(t, "Failed to update content type", err.Error())
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)

	var se *StorageError
	assert.ErrorAs(t, err, &se)
	assert.Equal(t, "update content type", se.Op)
}

func TestNewStorageErrorPassesKindsThrough(t *testing.T) {
	assert.Nil(t, NewStorageError("x", nil))
	assert.Same(t, ErrStaleVersion, NewStorageError("x", ErrStaleVersion))

	inner := NewStorageError("inner", errors.New("boom"))
	assert.Same(t, inner, NewStorageError("outer", inner))
}

func TestFieldError(t *testing.T) {
	var fe FieldError
	assert.True(t, fe.Empty())
	assert.NoError(t, fe.OrNil())

	fe.Add("title", "is required")
	fe.Add("title", "second problem is dropped")
	fe.Add("price", "must be a number")

	err := fe.OrNil()
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid data: price: must be a number; title: is required", err.Error())
}

func TestValidateSlug(t *testing.T) {
	for _, ok := range []string{"products", "my-blog-2", "a"} {
		assert.NoError(t, ValidateSlug(ok), ok)
	}
	for _, bad := range []string{"", "Products", "my blog", "a_b", "ä"} {
		assert.ErrorIs(t, ValidateSlug(bad), ErrInvalidSlug, bad)
	}
}

func TestNormalizeRole(t *testing.T) {
	r, ok := NormalizeRole(" admin ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = NormalizeRole("superuser")
	assert.False(t, ok)
}

func TestPostPublishStampsOnce(t *testing.T) {
	p := &Post{}
	first := mustTime(t, "2026-01-02T03:04:05Z")
	p.Publish(true, first)
	p.Publish(false, first.Add(1))
	p.Publish(true, first.Add(2))
	assert.True(t, p.Published)
	assert.Equal(t, first, *p.PublishedAt)
}

func TestPagination(t *testing.T) {
	f := EntryFilter{Offset: 10}
	f.Normalize()
	assert.Equal(t, DefaultPageLimit, f.Limit)
	assert.True(t, NewPagination(21, f).HasMore)
	assert.False(t, NewPagination(20, f).HasMore)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return tm
}

func TestReplaceNotFound(t *testing.T) {
	assert.Equal(t, ErrProjectNotFound, ReplaceNotFound(ErrNotFound, ErrProjectNotFound))
	assert.Equal(t, "project not found", ReplaceNotFound(ErrNotFound, ErrProjectNotFound).Error())
	assert.Equal(t, ErrStaleVersion, ReplaceNotFound(ErrStaleVersion, ErrProjectNotFound))
	assert.Nil(t, ReplaceNotFound(nil, ErrProjectNotFound))
}
