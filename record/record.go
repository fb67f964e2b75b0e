package record

import "sort"

// Identity is the store-wide unique name of a record.
type Identity string

// String returns the identity as a plain string.
func (id Identity) String() string { return string(id) }

// Reference names another record by identity. References are the only way
// records point at each other; the store guarantees a reference can only be
// written when its target record already exists.
type Reference struct {
	Identity Identity `json:"identity"`
}

// SystemAttributes are the store-maintained bookkeeping fields every record
// carries. Clients never write these directly; the store stamps them on save.
type SystemAttributes struct {
	CreatedBy  string    `json:"createdBy,omitempty"`
	CreatedAt  Timestamp `json:"createdAt"`
	ModifiedBy string    `json:"modifiedBy,omitempty"`
	ModifiedAt Timestamp `json:"modifiedAt"`
	ChangeTag  string    `json:"changeTag,omitempty"`
}

// RefEdge is one outgoing reference of a record, tagged with the attribute
// it was found under. List attributes contribute one edge per element.
type RefEdge struct {
	Field    string
	Identity Identity
}

// Record is the unit of persistence: a kind, an identity, the system
// attributes, and a flat bag of named domain attributes.
//
// Attribute values are restricted to the canonical encoded forms produced by
// Encode: bool, int64, float64, string, Timestamp, []byte, Reference, and
// homogeneous slices of those.
type Record struct {
	Identity   Identity
	Kind       string
	System     SystemAttributes
	Attributes map[string]any
}

// New returns an empty record of the given kind.
func New(kind string) *Record {
	return &Record{Kind: kind, Attributes: map[string]any{}}
}

// Get returns the named attribute and whether it is present.
func (r *Record) Get(name string) (any, bool) {
	if r.Attributes == nil {
		return nil, false
	}
	v, ok := r.Attributes[name]
	return v, ok
}

// Set stores an attribute value, allocating the attribute map if needed.
func (r *Record) Set(name string, value any) {
	if r.Attributes == nil {
		r.Attributes = map[string]any{}
	}
	r.Attributes[name] = value
}

// SetReference stores a single reference attribute pointing at id.
func (r *Record) SetReference(name string, id Identity) {
	r.Set(name, Reference{Identity: id})
}

// AppendReference appends id to a list reference attribute, creating the
// list when the attribute is absent. A present non-list value is replaced.
func (r *Record) AppendReference(name string, id Identity) {
	cur, ok := r.Get(name)
	if !ok {
		r.Set(name, []Reference{{Identity: id}})
		return
	}
	refs, ok := cur.([]Reference)
	if !ok {
		r.Set(name, []Reference{{Identity: id}})
		return
	}
	r.Set(name, append(refs, Reference{Identity: id}))
}

// ReferenceEdges returns every outgoing reference of the record, sorted by
// field name so callers see a deterministic order.
func (r *Record) ReferenceEdges() []RefEdge {
	var edges []RefEdge
	for name, v := range r.Attributes {
		switch ref := v.(type) {
		case Reference:
			edges = append(edges, RefEdge{Field: name, Identity: ref.Identity})
		case []Reference:
			for _, item := range ref {
				edges = append(edges, RefEdge{Field: name, Identity: item.Identity})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Field != edges[j].Field {
			return edges[i].Field < edges[j].Field
		}
		return edges[i].Identity < edges[j].Identity
	})
	return edges
}

// Clone returns a deep copy of the record. Attribute slices and blobs are
// copied so the clone can be mutated without aliasing the original.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{
		Identity: r.Identity,
		Kind:     r.Kind,
		System:   r.System,
	}
	if r.Attributes == nil {
		return out
	}
	out.Attributes = make(map[string]any, len(r.Attributes))
	for name, v := range r.Attributes {
		out.Attributes[name] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return append([]byte(nil), val...)
	case []bool:
		return append([]bool(nil), val...)
	case []int64:
		return append([]int64(nil), val...)
	case []float64:
		return append([]float64(nil), val...)
	case []string:
		return append([]string(nil), val...)
	case []Timestamp:
		return append([]Timestamp(nil), val...)
	case []Reference:
		return append([]Reference(nil), val...)
	case [][]byte:
		out := make([][]byte, len(val))
		for i, b := range val {
			out[i] = append([]byte(nil), b...)
		}
		return out
	default:
		return v
	}
}
