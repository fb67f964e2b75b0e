package store

import (
	"context"

	"github.com/goliatone/go-record-graph/record"
)

// Store is the primitive persistence contract the engine drives. A store
// holds flat records keyed by identity and enforces exactly one structural
// rule: a reference attribute may only be written when its target record
// already exists. Everything above that (ordering saves so the rule is
// satisfiable, caching, object mapping) is pipeline business.
type Store interface {
	// Save creates or replaces a record. A record arriving without an
	// identity is assigned one. The returned record carries the stored
	// state: assigned identity and refreshed system attributes.
	Save(ctx context.Context, rec *record.Record) (*record.Record, error)

	// Fetch returns the record for id, or ErrNotFound.
	Fetch(ctx context.Context, id record.Identity) (*record.Record, error)

	// Delete removes the record for id, or returns ErrNotFound.
	Delete(ctx context.Context, id record.Identity) error

	// Query returns one page of records matching q. Failures scoped to a
	// single match are reported in that match's Err slot; failures that
	// invalidate the whole page surface as the returned error.
	Query(ctx context.Context, q Query) (*Page, error)
}

// Match is one query result slot: either a record or the error that took
// its place. Identity is populated in both cases whenever the store can
// name the row.
type Match struct {
	Identity record.Identity
	Record   *record.Record
	Err      error
}

// Page is one window of query results. An empty ContinuationCursor means
// the result set is exhausted.
type Page struct {
	Matches            []Match
	ContinuationCursor string
}
