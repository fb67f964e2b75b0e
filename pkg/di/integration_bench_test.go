package di

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-record-graph/cache"
	"github.com/goliatone/go-record-graph/pkg/testsupport"
	"github.com/goliatone/go-record-graph/recordgraph"
	"github.com/goliatone/go-record-graph/store/memstore"
)

// BenchmarkEngineLoad compares raw store fetches against engine loads that
// bypass the cache and loads served from it.
func BenchmarkEngineLoad(b *testing.B) {
	ctx := context.Background()
	ms := memstore.New()
	engine := newTestEngine(b, cache.DefaultConfig(), ms)
	ids := testsupport.SeedEmployees(b, engine, 1000)

	b.Run("store_fetch", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = ms.Fetch(ctx, ids[i%len(ids)])
		}
	})

	b.Run("engine_load_bypass", func(b *testing.B) {
		bypass := recordgraph.WithCacheBypass(ctx)
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var out testsupport.Employee
			_ = engine.Load(bypass, ids[i%len(ids)], &out)
		}
	})

	// Warm a slice of the identities so the cached run only sees hits.
	for i := 0; i < 100; i++ {
		var out testsupport.Employee
		_ = engine.Load(ctx, ids[i], &out)
	}

	b.Run("engine_load_cache_hit", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			var out testsupport.Employee
			_ = engine.Load(ctx, ids[i%100], &out)
		}
	})
}

// BenchmarkEngineSave measures the write path for a flat record and for the
// two-phase cyclic save.
func BenchmarkEngineSave(b *testing.B) {
	ctx := context.Background()

	b.Run("flat_record", func(b *testing.B) {
		engine := newTestEngine(b, cache.DefaultConfig(), memstore.New())
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			emp := &testsupport.Employee{Name: fmt.Sprintf("flat-%d", i)}
			if _, err := engine.Save(ctx, emp); err != nil {
				b.Fatalf("Save() error = %v", err)
			}
		}
	})

	b.Run("cyclic_pair", func(b *testing.B) {
		engine := newTestEngine(b, cache.DefaultConfig(), memstore.New())
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			emp, _ := testsupport.OrgChart(fmt.Sprintf("emp-%d", i), fmt.Sprintf("dept-%d", i))
			if _, err := engine.Save(ctx, emp); err != nil {
				b.Fatalf("Save() error = %v", err)
			}
		}
	})
}

// BenchmarkConcurrentCacheAccess measures warm loads under parallel load.
func BenchmarkConcurrentCacheAccess(b *testing.B) {
	ctx := context.Background()
	engine := newTestEngine(b, cache.DefaultConfig(), memstore.New())
	ids := testsupport.SeedEmployees(b, engine, 100)

	for _, id := range ids {
		var out testsupport.Employee
		_ = engine.Load(ctx, id, &out)
	}

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			var out testsupport.Employee
			_ = engine.Load(ctx, ids[i%len(ids)], &out)
			i++
		}
	})
}
