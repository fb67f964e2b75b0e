// Package record defines the unit of persistence and the structural codec
// between domain objects and records.
//
// # Overview
//
// A Record is a kind, an identity, store-maintained system attributes, and a
// flat bag of named attribute values. Domain types opt into persistence by
// implementing Mapper, which they get almost entirely for free by embedding
// Entity and declaring their persisted fields:
//
//	type Employee struct {
//		record.Entity
//		Name    string      `json:"name"`
//		Hired   record.Timestamp `json:"hired"`
//		Boss    *Employee   `json:"boss,omitempty"`
//		Reports []*Employee `json:"reports,omitempty"`
//	}
//
//	func (e *Employee) RecordKind() string { return "employee" }
//
//	func (e *Employee) RecordFields() []record.Field {
//		return []record.Field{
//			{Name: "name", Kind: record.KindString, Value: func() any { return e.Name }},
//			{Name: "hired", Kind: record.KindTime, Value: func() any { return e.Hired }},
//			{Name: "boss", Kind: record.KindReference, Value: func() any { return e.Boss }},
//			{Name: "reports", Kind: record.KindReferenceList, Value: func() any { return record.Refs(e.Reports) }},
//		}
//	}
//
// Field declarations replace reflective struct walking: what you list is
// exactly what persists, and the declared kind is checked against the live
// value on every encode.
//
// # Encoding
//
// Encode classifies each declared field into a canonical attribute value.
// Reference-kinded fields are deliberately left out of the produced record;
// writing them requires deciding when the referenced object itself persists,
// which belongs to the save pipeline, not the codec.
//
// # Decoding
//
// Decoding runs in two steps. Sanitize flattens a record into a JSON-safe
// map (timestamps to epoch milliseconds, blobs to base64, references
// resolved into nested maps by the caller's ResolveFunc), then DecodeInto
// materializes that map into a typed object through a JSON round trip. The
// attribute names declared in RecordFields must therefore match the json
// tags of the struct.
//
// A reference whose target is already being decoded higher up the walk is
// replaced by CycleStub, which materializes as an object carrying only its
// identity with IsCycleStub reporting true.
//
// # Custom codecs
//
// Types that need full control implement Marshaler or Unmarshaler. A custom
// Marshaler owns its reference attributes outright, so the save pipeline
// treats such objects as opaque leaves.
//
// # Registration
//
// The load pipeline materializes typed objects through a Registry mapping
// kinds to factories. RegisterType wires a type in one line:
//
//	registry := record.NewRegistry()
//	record.RegisterType[Employee](registry)
//
// DeriveKind produces conventional snake_case kind names from type names
// for callers that prefer convention over explicit strings.
package record
