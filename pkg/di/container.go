package di

import (
	"github.com/goliatone/go-record-graph/cache"
	"github.com/goliatone/go-record-graph/recordgraph"
	"github.com/goliatone/go-record-graph/store"
)

// Container provides dependency injection for record graph components. It
// holds a singleton record cache built from one configuration and hands out
// engines bound to it, so every engine created from the same container sees
// the same cached records and the same invalidations.
type Container struct {
	recordCache cache.RecordCache
	config      cache.Config
}

// NewContainer creates a DI container with the provided cache
// configuration. The configuration is validated and defaulted by the cache
// package itself.
func NewContainer(config cache.Config) (*Container, error) {
	rc, err := cache.New(config)
	if err != nil {
		return nil, err
	}
	return &Container{
		recordCache: rc,
		config:      config,
	}, nil
}

// NewContainerWithDefaults creates a DI container using the default cache
// configuration. This is a convenience constructor for typical use cases
// where custom configuration is not required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// RecordCache returns the singleton record cache instance. This allows
// direct access to the cache for warmup or invalidation outside an engine.
func (c *Container) RecordCache() cache.RecordCache {
	return c.recordCache
}

// Config returns a copy of the cache configuration used by this container.
// This is useful for debugging and monitoring purposes.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewEngine creates an engine over st that shares the container's record
// cache. Engines built from one container should serve the same store:
// the cache is keyed by record identity alone, so mixing stores would let
// records from one answer loads meant for another.
func (c *Container) NewEngine(st store.Store, opts ...recordgraph.Option) (*recordgraph.Engine, error) {
	return recordgraph.New(st, c.recordCache, opts...)
}
