package recordgraph

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-record-graph/cache"
	"github.com/goliatone/go-record-graph/record"
	"github.com/goliatone/go-record-graph/store"
)

// Engine maps typed object graphs onto a flat record store. Saves order
// writes so every reference targets an already-stored record, deferring and
// later patching the edges of reference cycles; loads read through the
// record cache and inline referenced records into nested objects.
//
// An Engine is safe for concurrent use. Independent operations run
// concurrently and share the record cache; saves of one identified record
// are collapsed so concurrent callers build it at most once.
type Engine struct {
	store    store.Store
	cache    cache.RecordCache
	registry *record.Registry
	log      *zap.Logger

	idStrategy  IdentityStrategy
	idGenerator func() record.Identity
	idField     string

	rejectCyclicLoads bool

	saves singleflight.Group
}

// New builds an Engine over the given store and record cache.
func New(st store.Store, rc cache.RecordCache, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, errors.New("recordgraph: store is required")
	}
	if rc == nil {
		return nil, errors.New("recordgraph: record cache is required")
	}

	e := &Engine{
		store:    st,
		cache:    rc,
		registry: record.NewRegistry(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	switch e.idStrategy {
	case IdentityStore, IdentityUUID:
	case IdentityGenerator:
		if e.idGenerator == nil {
			return nil, errors.New("recordgraph: IdentityGenerator strategy requires a generator")
		}
	case IdentityField:
		if e.idField == "" {
			return nil, errors.New("recordgraph: IdentityField strategy requires a field name")
		}
	default:
		return nil, fmt.Errorf("recordgraph: unknown identity strategy %d", e.idStrategy)
	}
	return e, nil
}

// Registry returns the registry loads materialize typed objects from.
func (e *Engine) Registry() *record.Registry { return e.registry }

// Cache returns the record cache the engine operates through.
func (e *Engine) Cache() cache.RecordCache { return e.cache }

// Delete removes the record for id from the store and drops it, plus every
// cached record reachable from it, from the cache.
func (e *Engine) Delete(ctx context.Context, id record.Identity) error {
	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}
	e.cache.InvalidateCascade(id)
	e.log.Debug("record deleted", zap.String("identity", string(id)))
	return nil
}

// newIdentity produces an identity for obj per the configured strategy.
// IdentityStore returns empty: the store assigns on save.
func (e *Engine) newIdentity(obj record.Mapper) (record.Identity, error) {
	switch e.idStrategy {
	case IdentityUUID:
		return uuidIdentity(), nil
	case IdentityGenerator:
		return e.idGenerator(), nil
	case IdentityField:
		return e.identityFromField(obj)
	default:
		return "", nil
	}
}

func (e *Engine) identityFromField(obj record.Mapper) (record.Identity, error) {
	for _, f := range obj.RecordFields() {
		if f.Name != e.idField {
			continue
		}
		switch v := f.Value().(type) {
		case string:
			if v == "" {
				return "", fmt.Errorf("recordgraph: identity field %q of kind %q is empty", e.idField, obj.RecordKind())
			}
			return record.Identity(v), nil
		case record.Identity:
			if v == "" {
				return "", fmt.Errorf("recordgraph: identity field %q of kind %q is empty", e.idField, obj.RecordKind())
			}
			return v, nil
		default:
			return "", fmt.Errorf("recordgraph: identity field %q of kind %q holds %T, want string", e.idField, obj.RecordKind(), v)
		}
	}
	return "", fmt.Errorf("recordgraph: identity field %q not declared on kind %q", e.idField, obj.RecordKind())
}
