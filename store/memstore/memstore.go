// Package memstore provides the in-memory Store implementation used by
// tests, examples, and anything else that wants graph persistence without
// a database. It enforces the same reference-integrity rule as the SQL
// backend and speaks the same continuation cursors.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-record-graph/record"
	"github.com/goliatone/go-record-graph/store"
)

// DefaultOperator is stamped into createdBy/modifiedBy when no operator is
// configured.
const DefaultOperator = "memstore"

// Option configures a MemStore.
type Option func(*MemStore)

// WithOperator sets the operator name stamped into system attributes.
func WithOperator(name string) Option {
	return func(m *MemStore) { m.operator = name }
}

// WithClock overrides the time source, which tests use to make system
// attributes deterministic.
func WithClock(now func() time.Time) Option {
	return func(m *MemStore) { m.now = now }
}

// WithIdentityFunc overrides how identities are generated for records that
// arrive without one.
func WithIdentityFunc(gen func() record.Identity) Option {
	return func(m *MemStore) { m.newIdentity = gen }
}

// MemStore is a Store holding everything in process memory. All access is
// serialized through one RWMutex; stored records are deep-copied on the
// way in and out so callers can never alias internal state.
type MemStore struct {
	mu sync.RWMutex

	// records maps identity to the stored record. GUARDED_BY(mu)
	records map[record.Identity]*record.Record
	// order preserves insertion order for cursor stability. GUARDED_BY(mu)
	order []record.Identity

	operator    string
	now         func() time.Time
	newIdentity func() record.Identity
	newTag      func() record.Identity
}

var _ store.Store = (*MemStore)(nil)

// New constructs an empty MemStore.
func New(opts ...Option) *MemStore {
	m := &MemStore{
		records:  map[record.Identity]*record.Record{},
		operator: DefaultOperator,
		now:      time.Now,
		newTag:   store.ULIDGenerator(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newIdentity == nil {
		m.newIdentity = store.ULIDGenerator()
	}
	return m
}

// Save creates or replaces a record after checking that every reference
// targets an existing record. New records get a generated identity and
// creation attributes; every save refreshes the modification attributes
// and the change tag.
func (m *MemStore) Save(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &store.OperationError{Op: "save", Err: fmt.Errorf("nil record")}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, edge := range rec.ReferenceEdges() {
		if edge.Identity == rec.Identity && rec.Identity != "" {
			// Self references are satisfied by the record being written.
			continue
		}
		if _, ok := m.records[edge.Identity]; !ok {
			return nil, &store.OperationError{
				Op:       "save",
				Identity: rec.Identity,
				Err:      fmt.Errorf("field %q -> %q: %w", edge.Field, edge.Identity, store.ErrDanglingReference),
			}
		}
	}

	stored := rec.Clone()
	now := record.NewTimestamp(m.now())

	prev, exists := m.records[stored.Identity]
	if stored.Identity == "" || !exists {
		if stored.Identity == "" {
			stored.Identity = m.newIdentity()
		}
		stored.System.CreatedBy = m.operator
		stored.System.CreatedAt = now
		m.order = append(m.order, stored.Identity)
	} else {
		stored.System.CreatedBy = prev.System.CreatedBy
		stored.System.CreatedAt = prev.System.CreatedAt
	}
	stored.System.ModifiedBy = m.operator
	stored.System.ModifiedAt = now
	stored.System.ChangeTag = string(m.newTag())

	m.records[stored.Identity] = stored
	return stored.Clone(), nil
}

// Fetch returns a copy of the record for id.
func (m *MemStore) Fetch(ctx context.Context, id record.Identity) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec.Clone(), nil
}

// Delete removes the record for id. References held by other records are
// not chased; integrity is a write-time rule only.
func (m *MemStore) Delete(ctx context.Context, id record.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.records, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Query filters records of q.Kind, sorts them, and returns the page the
// cursor selects. Cursors are offsets into the sorted match list, which
// stays stable across pages as long as the data does not move underneath
// the query.
func (m *MemStore) Query(ctx context.Context, q store.Query) (*store.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offset := 0
	if q.Cursor != "" {
		c, err := store.DecodeCursor(q.Cursor, q.Kind)
		if err != nil {
			return nil, err
		}
		offset = c.Offset
	}

	m.mu.RLock()
	matched := make([]*record.Record, 0, len(m.order))
	for _, id := range m.order {
		rec := m.records[id]
		if q.Kind != "" && rec.Kind != q.Kind {
			continue
		}
		if !q.Predicate.Matches(rec) {
			continue
		}
		matched = append(matched, rec.Clone())
	}
	m.mu.RUnlock()

	if len(q.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return store.Less(matched[i], matched[j], q.Sort)
		})
	}

	if offset > len(matched) {
		offset = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}

	page := &store.Page{}
	for _, rec := range matched[offset:end] {
		page.Matches = append(page.Matches, store.Match{Identity: rec.Identity, Record: rec})
	}
	if end < len(matched) {
		page.ContinuationCursor = store.EncodeCursor(store.Cursor{Offset: end, Kind: q.Kind})
	}
	return page, nil
}

// Len reports how many records the store holds.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
