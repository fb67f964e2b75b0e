package record

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry maps record kinds to factories so the load pipeline can
// materialize a typed object for any record it fetches. It is safe for
// concurrent registration and lookup.
type Registry struct {
	kinds *xsync.MapOf[string, func() Mapper]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: xsync.NewMapOf[string, func() Mapper]()}
}

// Register associates kind with a factory producing a fresh, zero-valued
// instance. Registering the same kind again replaces the factory.
func (r *Registry) Register(kind string, factory func() Mapper) {
	r.kinds.Store(kind, factory)
}

// RegisterInstance registers a factory under the kind the produced instance
// reports, which keeps the registered name and RecordKind from drifting
// apart.
func (r *Registry) RegisterInstance(factory func() Mapper) string {
	kind := factory().RecordKind()
	r.Register(kind, factory)
	return kind
}

// New returns a fresh instance for kind, or ErrUnknownKind.
func (r *Registry) New(kind string) (Mapper, error) {
	factory, ok := r.kinds.Load(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return factory(), nil
}

// Kinds returns the registered kind names in no particular order.
func (r *Registry) Kinds() []string {
	var out []string
	r.kinds.Range(func(kind string, _ func() Mapper) bool {
		out = append(out, kind)
		return true
	})
	return out
}

// RegisterType registers *T under the kind its zero value reports.
//
//	record.RegisterType[Employee](registry)
func RegisterType[T any, PT interface {
	*T
	Mapper
}](r *Registry) string {
	return r.RegisterInstance(func() Mapper {
		var v T
		return PT(&v)
	})
}
