package recordgraph

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-record-graph/graph"
	"github.com/goliatone/go-record-graph/record"
	"github.com/goliatone/go-record-graph/store"
)

// Results is one page of decoded query results. Objects appear in the
// order the store returned them. PartialErrors carries the per-identity
// failures that did not abort the page; it is nil when every match
// decoded.
type Results[M record.Mapper] struct {
	Objects       []M
	NextCursor    string
	PartialErrors map[record.Identity]error
}

// QueryResult is the dynamically typed Results the Engine methods return;
// objects are materialized through the kind registry.
type QueryResult = Results[record.Mapper]

// Load materializes the record for id into target, resolving reference
// attributes into nested objects along the way. Records read through the
// cache; a reference whose target is already being resolved higher up the
// walk decodes as a cycle stub instead of recursing.
//
// A record fetched from the store that then fails to decode is dropped
// from the cache so the bad entry cannot outlive the failure.
func (e *Engine) Load(ctx context.Context, id record.Identity, target record.Mapper) error {
	if record.IsNil(target) {
		return errors.New("recordgraph: cannot load into nil object")
	}

	rec, fetched, err := e.loadRecord(ctx, id)
	if err != nil {
		return err
	}

	if e.rejectCyclicLoads && e.subgraphCycles(ctx, id) {
		return fmt.Errorf("load %q: %w", id, ErrCircularReference)
	}

	if err := e.decode(ctx, rec, target); err != nil {
		if fetched {
			e.cache.Invalidate(id)
		}
		e.log.Warn("record decode failed",
			zap.String("kind", rec.Kind),
			zap.String("identity", string(id)),
			zap.Error(err))
		return err
	}
	return nil
}

// Query runs one page of a store query and decodes each match through the
// kind registry. A store failure aborts the page with no partial results;
// a single match failing to decode lands in PartialErrors instead.
func (e *Engine) Query(ctx context.Context, q store.Query) (*QueryResult, error) {
	return queryPage(ctx, e, q, e.newForKind)
}

// QueryAll follows continuation cursors until the result set is exhausted,
// accumulating objects in arrival order and merging partial errors with
// the first error per identity winning. A page-level failure aborts the
// whole call and discards everything accumulated.
func (e *Engine) QueryAll(ctx context.Context, q store.Query) (*QueryResult, error) {
	return queryAll(ctx, e, q, e.newForKind)
}

func (e *Engine) newForKind(kind string) (record.Mapper, error) {
	return e.registry.New(kind)
}

// loadRecord is the read-through fetch every load path uses. The second
// return reports whether the record came from the store on this call,
// which is what decides cache invalidation when a decode later fails.
func (e *Engine) loadRecord(ctx context.Context, id record.Identity) (*record.Record, bool, error) {
	if cacheBypassed(ctx) {
		rec, err := e.store.Fetch(ctx, id)
		if err != nil {
			return nil, false, err
		}
		e.cache.Put(rec)
		return rec, true, nil
	}

	fetched := false
	rec, err := e.cache.GetOrFetch(ctx, id, func(ctx context.Context) (*record.Record, error) {
		fetched = true
		return e.store.Fetch(ctx, id)
	})
	if err != nil {
		return nil, false, err
	}
	return rec, fetched, nil
}

// decode materializes rec into target. Identity and system attributes are
// set first so a custom unmarshaler starts from primed entity state and
// keeps the last word.
func (e *Engine) decode(ctx context.Context, rec *record.Record, target record.Mapper) error {
	target.SetRecordIdentity(rec.Identity)
	*target.System() = rec.System

	if custom, ok := target.(record.Unmarshaler); ok {
		return custom.UnmarshalRecord(rec)
	}

	resolving := map[record.Identity]struct{}{rec.Identity: {}}
	sanitized, err := e.sanitize(ctx, rec, resolving)
	if err != nil {
		return &record.MappingError{Kind: rec.Kind, Identity: rec.Identity, Err: err}
	}
	return record.DecodeInto(rec, sanitized, target)
}

// sanitize flattens rec with a resolver that inlines referenced records,
// fetching each through the cache. One resolving set spans the whole walk:
// a reference to an identity already in it becomes a cycle stub, so each
// record inlines at most once per load and cycles terminate.
func (e *Engine) sanitize(ctx context.Context, rec *record.Record, resolving map[record.Identity]struct{}) (map[string]any, error) {
	return record.Sanitize(rec, func(ref record.Reference) (any, error) {
		if _, busy := resolving[ref.Identity]; busy {
			return record.CycleStub(ref.Identity), nil
		}
		resolving[ref.Identity] = struct{}{}

		child, _, err := e.loadRecord(ctx, ref.Identity)
		if err != nil {
			return nil, err
		}
		return e.sanitize(ctx, child, resolving)
	})
}

// subgraphCycles reports whether the stored reference subgraph under root
// leads back to root. Records read through the cache; a branch that fails
// to fetch contributes no edges.
func (e *Engine) subgraphCycles(ctx context.Context, root record.Identity) bool {
	w := graph.Walker[record.Identity]{Neighbors: func(id record.Identity) []record.Identity {
		rec, _, err := e.loadRecord(ctx, id)
		if err != nil {
			return nil
		}
		edges := rec.ReferenceEdges()
		out := make([]record.Identity, 0, len(edges))
		for _, edge := range edges {
			out = append(out, edge.Identity)
		}
		return out
	}}
	return w.CyclesBackTo(root)
}

// queryPage executes one page. Every fetched record is cached before
// decoding so reference resolution inside the same page hits the cache.
func queryPage[M record.Mapper](ctx context.Context, e *Engine, q store.Query, newObject func(kind string) (M, error)) (*Results[M], error) {
	page, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	var recs []*record.Record
	for _, m := range page.Matches {
		if m.Record != nil {
			recs = append(recs, m.Record)
		}
	}
	e.cache.PutMany(recs)

	res := &Results[M]{NextCursor: page.ContinuationCursor}
	fail := func(id record.Identity, err error) {
		if res.PartialErrors == nil {
			res.PartialErrors = map[record.Identity]error{}
		}
		if _, dup := res.PartialErrors[id]; !dup {
			res.PartialErrors[id] = err
		}
	}

	for _, m := range page.Matches {
		if m.Err != nil {
			fail(m.Identity, m.Err)
			continue
		}

		obj, err := newObject(m.Record.Kind)
		if err != nil {
			fail(m.Record.Identity, err)
			continue
		}
		if err := e.decode(ctx, m.Record, obj); err != nil {
			e.cache.Invalidate(m.Record.Identity)
			e.log.Warn("query match decode failed",
				zap.String("kind", m.Record.Kind),
				zap.String("identity", string(m.Record.Identity)),
				zap.Error(err))
			fail(m.Record.Identity, err)
			continue
		}
		res.Objects = append(res.Objects, obj)
	}

	e.log.Debug("query page executed",
		zap.String("kind", q.Kind),
		zap.Int("matches", len(page.Matches)),
		zap.Int("decoded", len(res.Objects)),
		zap.Bool("more", res.NextCursor != ""))
	return res, nil
}

func queryAll[M record.Mapper](ctx context.Context, e *Engine, q store.Query, newObject func(kind string) (M, error)) (*Results[M], error) {
	out := &Results[M]{}
	for {
		page, err := queryPage(ctx, e, q, newObject)
		if err != nil {
			return nil, err
		}
		out.Objects = append(out.Objects, page.Objects...)
		for id, perr := range page.PartialErrors {
			if out.PartialErrors == nil {
				out.PartialErrors = map[record.Identity]error{}
			}
			if _, dup := out.PartialErrors[id]; !dup {
				out.PartialErrors[id] = perr
			}
		}
		if page.NextCursor == "" {
			return out, nil
		}
		q.Cursor = page.NextCursor
	}
}

// Load materializes the record for id as a fresh T.
//
//	employee, err := recordgraph.Load[Employee](ctx, engine, id)
func Load[T any, PT interface {
	*T
	record.Mapper
}](ctx context.Context, e *Engine, id record.Identity) (PT, error) {
	var v T
	target := PT(&v)
	if err := e.Load(ctx, id, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Query runs one typed query page, materializing matches as *T without
// consulting the kind registry.
func Query[T any, PT interface {
	*T
	record.Mapper
}](ctx context.Context, e *Engine, q store.Query) (*Results[PT], error) {
	return queryPage(ctx, e, q, newTyped[T, PT])
}

// QueryAll exhausts a typed query, following cursors like
// (*Engine).QueryAll.
func QueryAll[T any, PT interface {
	*T
	record.Mapper
}](ctx context.Context, e *Engine, q store.Query) (*Results[PT], error) {
	return queryAll(ctx, e, q, newTyped[T, PT])
}

func newTyped[T any, PT interface {
	*T
	record.Mapper
}](string) (PT, error) {
	var v T
	return PT(&v), nil
}
