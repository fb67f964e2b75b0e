package recordgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrReferenceSave marks a field failure caused by the save of the
	// referenced object failing.
	ErrReferenceSave = errors.New("referenced record save failed")

	// ErrInvalidReference marks a reference that resolved without an
	// identity: a nil list element, or a branch save that returned no
	// identity.
	ErrInvalidReference = errors.New("reference resolved without an identity")

	// ErrRecordExists is returned by Insert when the object already carries
	// an identity.
	ErrRecordExists = errors.New("record already exists")

	// ErrRecordMissing is returned by Update when the object carries no
	// identity.
	ErrRecordMissing = errors.New("record does not exist")

	// ErrCircularReference marks a reference cycle the operation refuses to
	// follow: a cyclic list element during save, or a cyclic subgraph on a
	// strict load.
	ErrCircularReference = errors.New("circular reference rejected")
)

// FieldError scopes a pipeline failure to one field of one record kind.
// List element failures carry the element index in the field name, as in
// "members[2]". The wrapped error names the cause; errors.Is matches the
// package sentinels through it.
type FieldError struct {
	Kind  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q of %q: %v", e.Field, e.Kind, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// fieldErr builds a FieldError for a field of the record kind being saved.
func fieldErr(kind, field string, err error) *FieldError {
	return &FieldError{Kind: kind, Field: field, Err: err}
}
