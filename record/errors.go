package record

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned by a Registry when no factory is registered
// for a record kind.
var ErrUnknownKind = errors.New("unknown record kind")

// UnsupportedFieldTypeError reports a field whose declared kind and runtime
// value cannot be classified into a record attribute.
type UnsupportedFieldTypeError struct {
	Field string
	Kind  FieldKind
	Value any
}

func (e *UnsupportedFieldTypeError) Error() string {
	return fmt.Sprintf("record: field %q: cannot encode %T as %s", e.Field, e.Value, e.Kind)
}

// MappingError reports a record that could not be materialized into its
// registered type, usually because an attribute value does not fit the
// target field.
type MappingError struct {
	Kind     string
	Identity Identity
	Err      error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("record: mapping %s %q: %v", e.Kind, e.Identity, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }
