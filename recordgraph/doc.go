// Package recordgraph persists typed object graphs onto a flat record
// store whose records may only reference records that already exist.
//
// # Overview
//
// The engine sits between domain types and a store of generic records. A
// domain type declares how it maps to a record (see the record package);
// the engine turns a graph of mutually referencing objects into an ordered
// sequence of per-record writes that satisfies the store's
// reference-must-exist rule, and turns stored records back into objects
// with their references resolved inline.
//
// # Key Features
//
//   - **Two-phase cyclic saves**: a reference cycle persists as two writes
//     per record, first omitting the cyclic edge, then patching it in once
//     both ends exist
//   - **Read-through record cache**: loads and existence probes share a TTL
//     cache; repeated loads within the TTL hit the store once
//   - **Cycle-safe decoding**: reference inlining substitutes a cycle stub
//     when it revisits a record already being resolved
//   - **Paginated queries with partial errors**: one bad record does not
//     abort a page; failures report per identity
//   - **In-flight save registry**: concurrent saves of one identified
//     record build it at most once and share the result
//
// # Basic Usage
//
// Wire an engine from a store and a record cache:
//
//	rc, err := cache.New(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	engine, err := recordgraph.New(memstore.New(), rc,
//		recordgraph.WithTypes(
//			func() record.Mapper { return &Employee{} },
//			func() record.Mapper { return &Department{} },
//		),
//	)
//	if err != nil {
//		return err
//	}
//
//	// Save a cyclic graph: the employee references the department and
//	// the department references the employee back.
//	if _, err := engine.Save(ctx, employee); err != nil {
//		return err
//	}
//
//	// Load it back; the department comes inlined, and its back
//	// reference to the employee decodes as a cycle stub.
//	loaded, err := recordgraph.Load[Employee](ctx, engine, employee.ID)
//
// # Save Semantics
//
// Save walks the object's declared reference fields. A field whose target
// record already exists is written directly. A target that does not exist
// yet is saved first, recursively, unless doing so would complete a cycle
// back to a parent record that is not stored yet; such edges are deferred
// and patched in after the parent's first write. List reference fields do
// not support deferral: an element that would need it fails the field with
// an indexed error.
//
// Insert, Update, and Upsert constrain how the identity resolves: Insert
// rejects objects that already carry one, Update rejects objects that
// carry none, and Upsert probes the store to pick a path. How identities
// are produced for new records is configurable via WithIdentityStrategy
// and friends.
//
// # Load Semantics
//
// Load reads the record through the cache, then decodes it into the
// target type, fetching and inlining referenced records recursively. One
// resolving set spans the recursion, so each record inlines at most once
// and cycles decode as {identity, isCycle} stubs. WithRejectCyclicLoads
// trades the stubs for an ErrCircularReference failure when the subgraph
// cycles back to the loaded record.
//
// Query and QueryAll execute cursor-paginated queries. Records that fail
// to decode are reported in Results.PartialErrors keyed by identity; the
// decoded remainder of the page is still returned.
//
// # Error Handling
//
// Save failures scope to the field that caused them: FieldError names the
// record kind and field, and wraps one of the package sentinels
// (ErrReferenceSave, ErrInvalidReference, ErrCircularReference) or the
// underlying store error. Store and mapping failures from loads surface
// as store.ErrNotFound, store.OperationError, and record.MappingError.
//
// # See Also
//
// The record package defines the record model, field descriptors, and the
// codec. The store package defines the persistence contract, with
// memstore and bunstore backends. The cache package provides the record
// cache.
package recordgraph
