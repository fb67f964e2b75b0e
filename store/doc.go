// Package store defines the persistence contract the graph engine drives:
// flat records keyed by identity, with one structural rule enforced at
// write time (references may only target records that already exist), plus
// the query and continuation-cursor model shared by every backend.
//
// Two implementations ship with this module: memstore, an in-memory store
// for tests and examples, and bunstore, which maps records onto a SQL
// table through the bun ORM.
package store
