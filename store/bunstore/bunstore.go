// Package bunstore maps records onto a SQL table through the bun ORM,
// consuming a go-repository-bun repository for all data access. One table
// holds every kind: system attributes live in columns, domain attributes in
// a self-describing JSON document.
package bunstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-record-graph/record"
	"github.com/goliatone/go-record-graph/store"
)

// DefaultOperator is stamped into createdBy/modifiedBy when no operator is
// configured.
const DefaultOperator = "bunstore"

// RecordRow is the bun model behind every stored record.
type RecordRow struct {
	bun.BaseModel `bun:"table:records,alias:rec"`

	Identity   string    `bun:"identity,pk"`
	Kind       string    `bun:"kind,notnull"`
	Attributes []byte    `bun:"attributes"`
	CreatedBy  string    `bun:"created_by"`
	CreatedAt  time.Time `bun:"created_at,nullzero"`
	ModifiedBy string    `bun:"modified_by"`
	ModifiedAt time.Time `bun:"modified_at,nullzero"`
	ChangeTag  string    `bun:"change_tag"`
}

// Option configures a BunStore.
type Option func(*BunStore)

// WithOperator sets the operator name stamped into system attributes.
func WithOperator(name string) Option {
	return func(s *BunStore) { s.operator = name }
}

// WithClock overrides the time source used for system attributes.
func WithClock(now func() time.Time) Option {
	return func(s *BunStore) { s.now = now }
}

// WithIdentityFunc overrides how identities are generated for records that
// arrive without one.
func WithIdentityFunc(gen func() record.Identity) Option {
	return func(s *BunStore) { s.newIdentity = gen }
}

// BunStore is a Store backed by a repository over RecordRow. It never
// touches bun directly except to build criteria, so any Repository
// implementation (including the cached decorator or a test double) slots
// in.
type BunStore struct {
	repo        repository.Repository[*RecordRow]
	operator    string
	now         func() time.Time
	newIdentity func() record.Identity
	newTag      func() record.Identity
}

var _ store.Store = (*BunStore)(nil)

// New wraps a RecordRow repository in the Store contract.
func New(repo repository.Repository[*RecordRow], opts ...Option) *BunStore {
	s := &BunStore{
		repo:     repo,
		operator: DefaultOperator,
		now:      time.Now,
		newTag:   store.ULIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newIdentity == nil {
		s.newIdentity = store.ULIDGenerator()
	}
	return s
}

func byIdentity(id record.Identity) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("identity = ?", string(id)).Limit(1)
	}
}

func byKind(kind string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("kind = ?", kind).OrderExpr("identity ASC")
	}
}

// Save creates or replaces a record. Reference targets are counted first;
// a missing target fails the save with ErrDanglingReference before any
// write happens.
func (s *BunStore) Save(ctx context.Context, rec *record.Record) (*record.Record, error) {
	if rec == nil {
		return nil, &store.OperationError{Op: "save", Err: fmt.Errorf("nil record")}
	}

	if err := s.checkReferences(ctx, rec); err != nil {
		return nil, err
	}

	var prev *RecordRow
	if rec.Identity != "" {
		rows, _, err := s.repo.List(ctx, byIdentity(rec.Identity))
		if err != nil {
			return nil, &store.OperationError{Op: "save", Identity: rec.Identity, Err: err}
		}
		if len(rows) > 0 {
			prev = rows[0]
		}
	}
	exists := prev != nil

	stored := rec.Clone()
	if stored.Identity == "" {
		stored.Identity = s.newIdentity()
	}
	now := record.NewTimestamp(s.now())
	if exists {
		stored.System.CreatedBy = prev.CreatedBy
		stored.System.CreatedAt = record.NewTimestamp(prev.CreatedAt)
	} else {
		stored.System.CreatedBy = s.operator
		stored.System.CreatedAt = now
	}
	stored.System.ModifiedBy = s.operator
	stored.System.ModifiedAt = now
	stored.System.ChangeTag = string(s.newTag())

	row, err := rowFromRecord(stored)
	if err != nil {
		return nil, &store.OperationError{Op: "save", Identity: stored.Identity, Err: err}
	}

	if exists {
		if _, err := s.repo.Update(ctx, row); err != nil {
			return nil, &store.OperationError{Op: "save", Identity: stored.Identity, Err: err}
		}
	} else {
		if _, err := s.repo.Create(ctx, row); err != nil {
			return nil, &store.OperationError{Op: "save", Identity: stored.Identity, Err: err}
		}
	}
	return stored, nil
}

// checkReferences verifies every outgoing edge targets a stored row. On a
// mismatch the missing edge is named in the error, smallest field first.
func (s *BunStore) checkReferences(ctx context.Context, rec *record.Record) error {
	edges := rec.ReferenceEdges()
	if len(edges) == 0 {
		return nil
	}

	targets := map[record.Identity]bool{}
	var ids []string
	for _, edge := range edges {
		if edge.Identity == rec.Identity && rec.Identity != "" {
			// Satisfied by the row being written.
			continue
		}
		if !targets[edge.Identity] {
			targets[edge.Identity] = true
			ids = append(ids, string(edge.Identity))
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)

	rows, _, err := s.repo.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Column("identity").Where("identity IN (?)", bun.In(ids))
	})
	if err != nil {
		return &store.OperationError{Op: "save", Identity: rec.Identity, Err: err}
	}

	found := map[record.Identity]bool{}
	for _, row := range rows {
		found[record.Identity(row.Identity)] = true
	}
	for _, edge := range edges {
		if edge.Identity == rec.Identity && rec.Identity != "" {
			continue
		}
		if !found[edge.Identity] {
			return &store.OperationError{
				Op:       "save",
				Identity: rec.Identity,
				Err:      fmt.Errorf("field %q -> %q: %w", edge.Field, edge.Identity, store.ErrDanglingReference),
			}
		}
	}
	return nil
}

// Fetch returns the record for id, or ErrNotFound.
func (s *BunStore) Fetch(ctx context.Context, id record.Identity) (*record.Record, error) {
	rows, _, err := s.repo.List(ctx, byIdentity(id))
	if err != nil {
		return nil, &store.OperationError{Op: "fetch", Identity: id, Err: err}
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	rec, err := recordFromRow(rows[0])
	if err != nil {
		return nil, &store.OperationError{Op: "fetch", Identity: id, Err: err}
	}
	return rec, nil
}

// Delete removes the record for id, or returns ErrNotFound.
func (s *BunStore) Delete(ctx context.Context, id record.Identity) error {
	n, err := s.repo.Count(ctx, byIdentity(id))
	if err != nil {
		return &store.OperationError{Op: "delete", Identity: id, Err: err}
	}
	if n == 0 {
		return store.ErrNotFound
	}
	err = s.repo.DeleteWhere(ctx, func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where("identity = ?", string(id))
	})
	if err != nil {
		return &store.OperationError{Op: "delete", Identity: id, Err: err}
	}
	return nil
}

// Query pages over records of q.Kind. The kind filter runs in SQL; domain
// predicates and sorts are applied after decoding, because attributes live
// inside a JSON document whose layout the database cannot index portably.
// A row that fails to decode occupies its match slot as an error, so one
// corrupt row cannot sink the page.
func (s *BunStore) Query(ctx context.Context, q store.Query) (*store.Page, error) {
	offset := 0
	if q.Cursor != "" {
		c, err := store.DecodeCursor(q.Cursor, q.Kind)
		if err != nil {
			return nil, err
		}
		offset = c.Offset
	}

	rows, _, err := s.repo.List(ctx, byKind(q.Kind))
	if err != nil {
		return nil, &store.OperationError{Op: "query", Err: err}
	}

	var matches []store.Match
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			matches = append(matches, store.Match{
				Identity: record.Identity(row.Identity),
				Err:      err,
			})
			continue
		}
		if !q.Predicate.Matches(rec) {
			continue
		}
		matches = append(matches, store.Match{Identity: rec.Identity, Record: rec})
	}

	if len(q.Sort) > 0 {
		sort.SliceStable(matches, func(i, j int) bool {
			// Error slots sort by identity at the end so they surface on
			// some page without disturbing the record order.
			if matches[i].Record == nil || matches[j].Record == nil {
				if matches[i].Record != nil {
					return true
				}
				if matches[j].Record != nil {
					return false
				}
				return matches[i].Identity < matches[j].Identity
			}
			return store.Less(matches[i].Record, matches[j].Record, q.Sort)
		})
	}

	if offset > len(matches) {
		offset = len(matches)
	}
	end := len(matches)
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}

	page := &store.Page{Matches: matches[offset:end]}
	if end < len(matches) {
		page.ContinuationCursor = store.EncodeCursor(store.Cursor{Offset: end, Kind: q.Kind})
	}
	return page, nil
}

func rowFromRecord(rec *record.Record) (*RecordRow, error) {
	attrs, err := record.EncodeAttributes(rec.Attributes)
	if err != nil {
		return nil, err
	}
	return &RecordRow{
		Identity:   string(rec.Identity),
		Kind:       rec.Kind,
		Attributes: attrs,
		CreatedBy:  rec.System.CreatedBy,
		CreatedAt:  rec.System.CreatedAt.Time,
		ModifiedBy: rec.System.ModifiedBy,
		ModifiedAt: rec.System.ModifiedAt.Time,
		ChangeTag:  rec.System.ChangeTag,
	}, nil
}

func recordFromRow(row *RecordRow) (*record.Record, error) {
	attrs, err := record.DecodeAttributes(row.Attributes)
	if err != nil {
		return nil, err
	}
	return &record.Record{
		Identity: record.Identity(row.Identity),
		Kind:     row.Kind,
		System: record.SystemAttributes{
			CreatedBy:  row.CreatedBy,
			CreatedAt:  record.NewTimestamp(row.CreatedAt),
			ModifiedBy: row.ModifiedBy,
			ModifiedAt: record.NewTimestamp(row.ModifiedAt),
			ChangeTag:  row.ChangeTag,
		},
		Attributes: attrs,
	}, nil
}
