package store

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-record-graph/record"
)

var (
	// ErrNotFound is returned when no record exists for an identity.
	ErrNotFound = errors.New("record not found")

	// ErrDanglingReference is returned when a record being saved carries a
	// reference to an identity the store does not hold.
	ErrDanglingReference = errors.New("reference targets unknown record")

	// ErrInvalidCursor is returned when a continuation cursor cannot be
	// decoded or belongs to a different query.
	ErrInvalidCursor = errors.New("invalid continuation cursor")
)

// OperationError wraps a store failure with the operation and the identity
// it concerned.
type OperationError struct {
	Op       string
	Identity record.Identity
	Err      error
}

func (e *OperationError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Identity, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
