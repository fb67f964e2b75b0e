package record

// Entity carries the persistence bookkeeping every mapped type needs:
// the record identity, the store-maintained system attributes, and the
// cycle-stub flag the load pipeline sets when it substitutes a marker for
// a reference that would re-enter the object being decoded.
//
// Domain types embed Entity and add RecordKind and RecordFields:
//
//	type Employee struct {
//		record.Entity
//		Name string           `json:"name"`
//		Boss *Employee        `json:"boss,omitempty"`
//	}
//
//	func (e *Employee) RecordKind() string { return "employee" }
//
//	func (e *Employee) RecordFields() []record.Field {
//		return []record.Field{
//			{Name: "name", Kind: record.KindString, Value: func() any { return e.Name }},
//			{Name: "boss", Kind: record.KindReference, Value: func() any { return e.Boss }},
//		}
//	}
type Entity struct {
	ID Identity `json:"identity,omitempty"`
	SystemAttributes
	CycleStub bool `json:"isCycle,omitempty"`
}

// RecordIdentity returns the assigned identity, or "" before first save.
func (e *Entity) RecordIdentity() Identity { return e.ID }

// SetRecordIdentity records the identity the pipeline resolved or the store
// generated.
func (e *Entity) SetRecordIdentity(id Identity) { e.ID = id }

// System exposes the store-maintained attributes for the pipeline to stamp
// after each save.
func (e *Entity) System() *SystemAttributes { return &e.SystemAttributes }

// IsCycleStub reports whether this object is a cycle marker: only its
// identity is populated, and re-walking its references would have re-entered
// an object already being decoded.
func (e *Entity) IsCycleStub() bool { return e.CycleStub }
