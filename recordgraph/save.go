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

// pendingRef is a reference edge deferred during phase one because writing
// it immediately would require the target record to exist before it can.
// The edge is patched in during phase two, once both ends are stored.
type pendingRef struct {
	field record.Field
	child record.Mapper
}

// saveChain is the bookkeeping one top-level save threads through its
// recursion: an arena interning every object encountered, the set of
// objects currently mid-save, and the identities persisted so far. Objects
// are compared by arena index, so two structurally equal values are still
// distinct nodes.
type saveChain struct {
	arena     *graph.Arena[record.Mapper]
	active    map[int]bool
	persisted map[int]record.Identity
}

func newSaveChain() *saveChain {
	return &saveChain{
		arena:     graph.NewArena[record.Mapper](),
		active:    map[int]bool{},
		persisted: map[int]record.Identity{},
	}
}

// pathBack reports whether following declared reference fields from one
// object reaches another. Objects with custom marshalers are opaque and
// contribute no edges.
func (c *saveChain) pathBack(from, to record.Mapper) bool {
	w := graph.Walker[int]{Neighbors: func(i int) []int {
		children := record.ReferencedObjects(c.arena.Node(i))
		out := make([]int, 0, len(children))
		for _, child := range children {
			out = append(out, c.arena.Index(child))
		}
		return out
	}}
	return w.PathExists(c.arena.Index(from), c.arena.Index(to))
}

// saveFrame carries the per-object state of one saveObject invocation.
// entryID is the identity the object arrived with; identities assigned by
// a strategy during this save do not make the object addressable, because
// its record is not stored yet.
type saveFrame struct {
	obj       record.Mapper
	kind      string
	entryID   record.Identity
	addr      bool
	addrKnown bool
	pendings  []pendingRef
}

// addressable reports whether the frame's record already exists in the
// store, meaning children may reference it immediately. Probed lazily and
// at most once per frame.
func (e *Engine) addressable(ctx context.Context, fr *saveFrame) (bool, error) {
	if fr.addrKnown {
		return fr.addr, nil
	}
	if fr.entryID != "" {
		exists, err := e.recordExists(ctx, fr.entryID)
		if err != nil {
			return false, err
		}
		fr.addr = exists
	}
	fr.addrKnown = true
	return fr.addr, nil
}

// Save persists obj and every object reachable through its reference
// fields, ordering the writes so each stored reference targets a record
// that already exists. Reference cycles save in two phases: the record
// persists first without the cyclic edge, the referenced object persists
// next, and the edge is patched in with a second write.
//
// On success obj carries the assigned identity and refreshed system
// attributes, and the stored record is returned.
func (e *Engine) Save(ctx context.Context, obj record.Mapper) (*record.Record, error) {
	if record.IsNil(obj) {
		return nil, errors.New("recordgraph: cannot save nil object")
	}
	return e.save(ctx, obj)
}

// Insert persists obj as a new record. It fails with ErrRecordExists when
// obj already carries an identity.
func (e *Engine) Insert(ctx context.Context, obj record.Mapper) (*record.Record, error) {
	if record.IsNil(obj) {
		return nil, errors.New("recordgraph: cannot insert nil object")
	}
	if id := obj.RecordIdentity(); id != "" {
		return nil, fmt.Errorf("insert kind %q identity %q: %w", obj.RecordKind(), id, ErrRecordExists)
	}
	return e.save(ctx, obj)
}

// Update persists obj over its existing record. It fails with
// ErrRecordMissing when obj carries no identity.
func (e *Engine) Update(ctx context.Context, obj record.Mapper) (*record.Record, error) {
	if record.IsNil(obj) {
		return nil, errors.New("recordgraph: cannot update nil object")
	}
	if obj.RecordIdentity() == "" {
		return nil, fmt.Errorf("update kind %q: %w", obj.RecordKind(), ErrRecordMissing)
	}
	return e.save(ctx, obj)
}

// Upsert probes the store for obj's identity and dispatches to the insert
// or update path. A not-found probe means insert; any other probe failure
// aborts. A found record warms the cache so the save that follows can
// satisfy back references without refetching.
func (e *Engine) Upsert(ctx context.Context, obj record.Mapper) (*record.Record, error) {
	if record.IsNil(obj) {
		return nil, errors.New("recordgraph: cannot upsert nil object")
	}
	id := obj.RecordIdentity()
	if id == "" {
		return e.save(ctx, obj)
	}

	prev, err := e.store.Fetch(ctx, id)
	switch {
	case err == nil:
		e.cache.Put(prev)
		e.log.Debug("upsert found existing record", zap.String("identity", string(id)))
	case errors.Is(err, store.ErrNotFound):
		e.log.Debug("upsert creating new record", zap.String("identity", string(id)))
	default:
		return nil, err
	}
	return e.save(ctx, obj)
}

// save runs one save chain. Identified saves register in the in-flight
// group so concurrent callers saving the same record build it at most once
// and share the stored result. Each chain holds at most its own top-level
// key, so chains never wait on each other's nested saves.
func (e *Engine) save(ctx context.Context, obj record.Mapper) (*record.Record, error) {
	key := string(obj.RecordIdentity())
	if key == "" {
		return e.saveObject(ctx, newSaveChain(), obj)
	}

	v, err, shared := e.saves.Do(key, func() (any, error) {
		return e.saveObject(ctx, newSaveChain(), obj)
	})
	if err != nil {
		return nil, err
	}
	rec := v.(*record.Record)
	if shared {
		rec = rec.Clone()
		e.pushBack(obj, rec)
	}
	return rec, nil
}

// saveObject persists one object and, transitively, the objects it
// references. Phase one resolves every reference field, deferring the
// edges that cannot be written yet; phase two saves each deferred child in
// insertion order, patches the parent's field, and persists the parent a
// second time.
func (e *Engine) saveObject(ctx context.Context, chain *saveChain, obj record.Mapper) (*record.Record, error) {
	idx := chain.arena.Index(obj)
	chain.active[idx] = true
	defer delete(chain.active, idx)

	fr := &saveFrame{obj: obj, kind: obj.RecordKind(), entryID: obj.RecordIdentity()}

	if fr.entryID == "" {
		id, err := e.newIdentity(obj)
		if err != nil {
			return nil, err
		}
		if id != "" {
			obj.SetRecordIdentity(id)
		}
	}

	rec, err := record.Encode(obj)
	if err != nil {
		return nil, err
	}

	if _, opaque := obj.(record.Marshaler); !opaque {
		for _, f := range record.ReferenceFields(obj) {
			if f.Kind == record.KindReferenceList {
				err = e.saveListField(ctx, chain, fr, rec, f)
			} else {
				err = e.saveSingleField(ctx, chain, fr, rec, f)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	saved, err := e.store.Save(ctx, rec)
	if err != nil {
		return nil, err
	}
	chain.persisted[idx] = saved.Identity
	e.cache.Put(saved)
	e.pushBack(obj, saved)
	e.log.Debug("record saved",
		zap.String("kind", fr.kind),
		zap.String("identity", string(saved.Identity)),
		zap.Int("pending", len(fr.pendings)))

	if len(fr.pendings) == 0 {
		return saved, nil
	}

	for _, p := range fr.pendings {
		childID, err := e.resolvePending(ctx, chain, fr, p)
		if err != nil {
			return nil, err
		}
		if p.field.Kind.IsList() {
			saved.AppendReference(p.field.Name, childID)
		} else {
			saved.SetReference(p.field.Name, childID)
		}
		e.log.Debug("patched deferred reference",
			zap.String("kind", fr.kind),
			zap.String("identity", string(saved.Identity)),
			zap.String("field", p.field.Name),
			zap.String("target", string(childID)))
	}

	patched, err := e.store.Save(ctx, saved)
	if err != nil {
		return nil, err
	}
	e.cache.Put(patched)
	e.pushBack(obj, patched)
	return patched, nil
}

// saveSingleField resolves one single-reference field: write the reference
// when the target record already exists, defer the edge when writing it now
// is impossible, and otherwise save the target first.
func (e *Engine) saveSingleField(ctx context.Context, chain *saveChain, fr *saveFrame, rec *record.Record, f record.Field) error {
	v := f.Value()
	if record.IsNil(v) {
		return nil
	}
	child, ok := v.(record.Mapper)
	if !ok {
		return fieldErr(fr.kind, f.Name, fmt.Errorf("accessor returned %T, want record.Mapper", v))
	}

	if id := child.RecordIdentity(); id != "" {
		exists, err := e.recordExists(ctx, id)
		if err != nil {
			return fieldErr(fr.kind, f.Name, err)
		}
		if exists {
			rec.SetReference(f.Name, id)
			return nil
		}
	}

	deferred, err := e.shouldDefer(ctx, chain, fr, child)
	if err != nil {
		return fieldErr(fr.kind, f.Name, err)
	}
	if deferred {
		fr.pendings = append(fr.pendings, pendingRef{field: f, child: child})
		e.log.Debug("deferred cyclic reference",
			zap.String("kind", fr.kind),
			zap.String("field", f.Name),
			zap.String("target_kind", child.RecordKind()))
		return nil
	}

	childRec, err := e.saveObject(ctx, chain, child)
	if err != nil {
		return fieldErr(fr.kind, f.Name, fmt.Errorf("%w: kind %q: %w", ErrReferenceSave, child.RecordKind(), err))
	}
	if childRec.Identity == "" {
		return fieldErr(fr.kind, f.Name, fmt.Errorf("%w: kind %q", ErrInvalidReference, child.RecordKind()))
	}
	rec.SetReference(f.Name, childRec.Identity)
	return nil
}

// saveListField resolves a reference-list field. List elements never
// defer: every element must resolve to an existing identity before the
// record persists, so an element that would need deferral fails the field
// with an indexed error.
func (e *Engine) saveListField(ctx context.Context, chain *saveChain, fr *saveFrame, rec *record.Record, f record.Field) error {
	v := f.Value()
	if record.IsNil(v) {
		return nil
	}
	children, ok := v.([]record.Mapper)
	if !ok {
		return fieldErr(fr.kind, f.Name, fmt.Errorf("accessor returned %T, want []record.Mapper", v))
	}

	refs := make([]record.Reference, 0, len(children))
	for i, child := range children {
		elem := fmt.Sprintf("%s[%d]", f.Name, i)
		if record.IsNil(child) {
			return fieldErr(fr.kind, elem, ErrInvalidReference)
		}

		if id := child.RecordIdentity(); id != "" {
			exists, err := e.recordExists(ctx, id)
			if err != nil {
				return fieldErr(fr.kind, elem, err)
			}
			if exists {
				refs = append(refs, record.Reference{Identity: id})
				continue
			}
		}

		deferred, err := e.shouldDefer(ctx, chain, fr, child)
		if err != nil {
			return fieldErr(fr.kind, elem, err)
		}
		if deferred {
			return fieldErr(fr.kind, elem, ErrCircularReference)
		}

		childRec, err := e.saveObject(ctx, chain, child)
		if err != nil {
			return fieldErr(fr.kind, elem, fmt.Errorf("%w: kind %q: %w", ErrReferenceSave, child.RecordKind(), err))
		}
		if childRec.Identity == "" {
			return fieldErr(fr.kind, elem, fmt.Errorf("%w: kind %q", ErrInvalidReference, child.RecordKind()))
		}
		refs = append(refs, record.Reference{Identity: childRec.Identity})
	}
	if len(refs) > 0 {
		rec.Set(f.Name, refs)
	}
	return nil
}

// shouldDefer reports whether saving child now would recurse into an
// object already mid-save, or complete a cycle back to a parent whose
// record is not yet addressable.
func (e *Engine) shouldDefer(ctx context.Context, chain *saveChain, fr *saveFrame, child record.Mapper) (bool, error) {
	if idx, ok := chain.arena.Lookup(child); ok && chain.active[idx] {
		return true, nil
	}
	if !chain.pathBack(child, fr.obj) {
		return false, nil
	}
	addr, err := e.addressable(ctx, fr)
	if err != nil {
		return false, err
	}
	return !addr, nil
}

// resolvePending produces the identity for one deferred edge. A child this
// chain already persisted, the object itself included, patches directly;
// the common case saves the child now that the parent record exists.
func (e *Engine) resolvePending(ctx context.Context, chain *saveChain, fr *saveFrame, p pendingRef) (record.Identity, error) {
	idx := chain.arena.Index(p.child)
	if id, ok := chain.persisted[idx]; ok {
		return id, nil
	}
	if chain.active[idx] {
		// The child is an ancestor still assembling its own record, and its
		// descriptors could not reveal the cycle beforehand (a custom
		// marshaler hides them). There is no stored record to patch against.
		return "", fieldErr(fr.kind, p.field.Name,
			fmt.Errorf("%w: kind %q is still being saved", ErrReferenceSave, p.child.RecordKind()))
	}

	childRec, err := e.saveObject(ctx, chain, p.child)
	if err != nil {
		return "", fieldErr(fr.kind, p.field.Name, fmt.Errorf("%w: kind %q: %w", ErrReferenceSave, p.child.RecordKind(), err))
	}
	if childRec.Identity == "" {
		return "", fieldErr(fr.kind, p.field.Name, fmt.Errorf("%w: kind %q", ErrInvalidReference, p.child.RecordKind()))
	}
	return childRec.Identity, nil
}

// recordExists is the read-through existence probe: a cache hit answers
// immediately, otherwise the store is consulted and a found record is
// cached. Not-found reports false; any other store failure propagates.
func (e *Engine) recordExists(ctx context.Context, id record.Identity) (bool, error) {
	if _, ok := e.cache.Get(id); ok {
		return true, nil
	}
	rec, err := e.store.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	e.cache.Put(rec)
	return true, nil
}

// pushBack copies the stored identity and system attributes onto the
// object, so the caller observes what the store assigned.
func (e *Engine) pushBack(obj record.Mapper, rec *record.Record) {
	obj.SetRecordIdentity(rec.Identity)
	*obj.System() = rec.System
}
