package recordgraph

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-record-graph/record"
)

// IdentityStrategy selects how an identity is produced for an object saved
// without one.
type IdentityStrategy int

const (
	// IdentityStore leaves the identity empty and lets the store assign one
	// on first save. This is the default.
	IdentityStore IdentityStrategy = iota
	// IdentityUUID assigns a client-side UUID before the record is written.
	IdentityUUID
	// IdentityGenerator assigns identities from the function supplied via
	// WithIdentityGenerator.
	IdentityGenerator
	// IdentityField derives the identity from the mapped field named via
	// WithIdentityField. The field must hold a non-empty string.
	IdentityField
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRegistry replaces the engine's kind registry. Apply before WithTypes,
// which registers into whatever registry the engine holds at that point.
func WithRegistry(r *record.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithTypes registers kind factories so queries and loads can materialize
// typed objects for fetched records.
func WithTypes(factories ...func() record.Mapper) Option {
	return func(e *Engine) {
		for _, factory := range factories {
			e.registry.RegisterInstance(factory)
		}
	}
}

// WithIdentityStrategy selects the identity source for unidentified saves.
func WithIdentityStrategy(s IdentityStrategy) Option {
	return func(e *Engine) { e.idStrategy = s }
}

// WithIdentityGenerator supplies the generator used by IdentityGenerator,
// and selects that strategy.
func WithIdentityGenerator(gen func() record.Identity) Option {
	return func(e *Engine) {
		e.idStrategy = IdentityGenerator
		e.idGenerator = gen
	}
}

// WithIdentityField names the mapped field identities are read from, and
// selects the IdentityField strategy.
func WithIdentityField(name string) Option {
	return func(e *Engine) {
		e.idStrategy = IdentityField
		e.idField = name
	}
}

// WithRejectCyclicLoads makes Load fail with ErrCircularReference when the
// fetched record's reference subgraph cycles back to it, instead of
// substituting cycle stubs during decode.
func WithRejectCyclicLoads() Option {
	return func(e *Engine) { e.rejectCyclicLoads = true }
}

func uuidIdentity() record.Identity {
	return record.Identity(uuid.NewString())
}
