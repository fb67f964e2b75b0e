package recordgraph

import (
	"context"
)

type cacheBypassContextKey struct{}

// WithCacheBypass returns a context that makes loads on this engine skip
// the record cache and read from the store directly. Records fetched under
// a bypassed context still refresh the cache for later callers.
func WithCacheBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheBypassContextKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypass, ok := ctx.Value(cacheBypassContextKey{}).(bool)
	return ok && bypass
}
