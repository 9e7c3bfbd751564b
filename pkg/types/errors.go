package types

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds. Every error returned by a pantry component wraps exactly one of
// these so transports can map it to a status without string matching.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrStorage      = errors.New("storage failure")
	ErrTypeMismatch = errors.New("item type mismatch")
)

// Detailed errors. Each wraps a kind above.
var (
	ErrInvalidSlug      = detail(ErrValidation, "slug must be lowercase letters, numbers, and hyphens")
	ErrInvalidName      = detail(ErrValidation, "name is required")
	ErrInvalidID        = detail(ErrValidation, "invalid id")
	ErrInvalidRole      = detail(ErrValidation, "invalid role")
	ErrInvalidFieldType = detail(ErrValidation, "unknown field type")
	ErrInvalidFieldKey  = detail(ErrValidation, "field key must start with a letter and contain only letters, digits, and underscores")
	ErrInvalidOptions   = detail(ErrValidation, "invalid field options")
	ErrInvalidOperation = detail(ErrValidation, "unknown field operation")
	ErrMissingVersion   = detail(ErrValidation, "version is required")
	ErrMissingScope     = detail(ErrValidation, "orgSlug and projectSlug are required")
	ErrInvalidTitle     = detail(ErrValidation, "title is required")
	ErrInvalidContent   = detail(ErrValidation, "content is required")
	ErrInvalidFAQs      = detail(ErrValidation, "faqs must be a JSON value")
	ErrInvalidConfig    = detail(ErrValidation, "invalid configuration")
	ErrInvalidPayload   = detail(ErrValidation, "invalid request payload")
	ErrInvalidQuery     = detail(ErrValidation, "invalid query parameter")

	ErrDuplicateSlug     = detail(ErrConflict, "slug already exists")
	ErrDuplicateFieldKey = detail(ErrConflict, "field key already exists in this content type")
	ErrDuplicateMember   = detail(ErrConflict, "user is already a member")
	ErrLastOwner         = detail(ErrConflict, "organization must keep at least one owner")
	ErrStaleVersion      = detail(ErrConflict, "version is stale")

	ErrOrganizationNotFound = detail(ErrNotFound, "organization not found")
	ErrProjectNotFound      = detail(ErrNotFound, "project not found")
	ErrMemberNotFound       = detail(ErrNotFound, "member not found")
	ErrContentTypeNotFound  = detail(ErrNotFound, "content type not found")
	ErrFieldNotFound        = detail(ErrNotFound, "field not found in this content type")
	ErrItemNotFound         = detail(ErrNotFound, "item not found")
	ErrPostNotFound         = detail(ErrNotFound, "post not found")
	ErrBlogNotFound         = detail(ErrNotFound, "blog not found")

	ErrNotMember  = detail(ErrForbidden, "not a member of this organization")
	ErrRoleDenied = detail(ErrForbidden, "role does not allow this operation")
)

// Cupboard lifecycle errors.
var (
	ErrCupboardDetached = detail(ErrStorage, "cupboard is detached")
	ErrAlreadyAttached  = detail(ErrStorage, "cupboard is already attached")
)

// detailError is a detailed error that reads as its own message and unwraps
// to its kind.
type detailError struct {
	kind error
	msg  string
}

func detail(kind error, msg string) error {
	return &detailError{kind: kind, msg: msg}
}

func (e *detailError) Error() string { return e.msg }

func (e *detailError) Unwrap() error { return e.kind }

var kinds = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrConflict,
	ErrTypeMismatch,
	ErrValidation,
	ErrStorage,
}

// KindOf returns the kind sentinel err wraps. Unclassified errors are treated
// as storage failures.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStorage
}

// StorageError reports an unexpected persistence failure. Error returns an
// opaque message so storage internals never reach a client; the cause stays
// reachable through errors.Is / errors.As for logging.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a failure of op. Errors that already carry a
// kind other than ErrStorage are returned unchanged.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	if k := KindOf(err); k != ErrStorage {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return "Failed to " + e.Op
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// FieldError collects payload validation problems keyed by field key.
type FieldError struct {
	Problems map[string]string
}

// Add records a problem for key. The first problem per key wins.
func (e *FieldError) Add(key, problem string) {
	if e.Problems == nil {
		e.Problems = make(map[string]string)
	}
	if _, ok := e.Problems[key]; !ok {
		e.Problems[key] = problem
	}
}

// Empty reports whether no problems were recorded.
func (e *FieldError) Empty() bool {
	return e == nil || len(e.Problems) == 0
}

// OrNil returns e as an error, or nil when it holds no problems.
func (e *FieldError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *FieldError) Error() string {
	keys := make([]string, 0, len(e.Problems))
	for k := range e.Problems {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Problems[k])
	}
	return "invalid data: " + strings.Join(parts, "; ")
}

func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// ReplaceNotFound returns specific when err is the bare ErrNotFound, so a
// caller can name what was missing. Other errors pass through.
func ReplaceNotFound(err, specific error) error {
	if err == ErrNotFound {
		return specific
	}
	return err
}
