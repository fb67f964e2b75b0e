// Package cache provides the short-lived record cache shared by the save
// and load pipelines.
//
// # Overview
//
// RecordCache keys records by identity and expires them after a configured
// TTL (30 seconds by default). The cache exists to absorb the burst of
// repeated reads a single graph operation produces when several objects
// reference the same record; it is not a long-lived data tier, and nothing
// here persists anything.
//
// # Basic Usage
//
//	rc, err := cache.New(cache.Config{TTL: 30 * time.Second})
//	if err != nil {
//		return err
//	}
//
//	rec, err := rc.GetOrFetch(ctx, id, func(ctx context.Context) (*record.Record, error) {
//		return store.Fetch(ctx, id)
//	})
//
// # Copy Semantics
//
// Every record crossing the cache boundary is deep-copied. Pipelines mutate
// records freely after caching them (for instance when patching deferred
// references), so handing out shared pointers would corrupt entries.
//
// # Cascading Invalidation
//
// InvalidateCascade(id) drops id and then follows reference attributes of
// entries that are currently cached, dropping those too. The walk never
// touches the store: a reference to an uncached record simply ends that
// branch. A visited set makes the walk safe on cyclic reference chains.
//
// # See Also
//
// The recordgraph package wires this cache together with a store into the
// full object-graph engine.
package cache
