package record

import "time"

// Encode builds a Record from the object's declared fields. Attribute
// values are normalized to their canonical forms (int64, float64,
// Timestamp, ...). Reference-kinded fields are skipped entirely: resolving
// them into Reference attributes is the save pipeline's job, because the
// order in which referenced objects persist is what keeps the store's
// integrity rule satisfiable.
//
// When m implements Marshaler the custom encoder is used verbatim and the
// declared fields are ignored.
func Encode(m Mapper) (*Record, error) {
	if custom, ok := m.(Marshaler); ok {
		rec, err := custom.MarshalRecord()
		if err != nil {
			return nil, err
		}
		if rec.Identity == "" {
			rec.Identity = m.RecordIdentity()
		}
		if rec.Kind == "" {
			rec.Kind = m.RecordKind()
		}
		return rec, nil
	}

	rec := New(m.RecordKind())
	rec.Identity = m.RecordIdentity()
	rec.System = *m.System()

	for _, f := range m.RecordFields() {
		if f.Kind.IsReference() {
			continue
		}
		v := f.Value()
		if isNilMapper(v) {
			continue
		}
		encoded, err := encodeValue(f, v)
		if err != nil {
			return nil, err
		}
		rec.Set(f.Name, encoded)
	}
	return rec, nil
}

func encodeValue(f Field, v any) (any, error) {
	switch f.Kind {
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint32:
			return int64(n), nil
		}
	case KindFloat:
		switch n := v.(type) {
		case float32:
			return float64(n), nil
		case float64:
			return n, nil
		}
	case KindString:
		switch s := v.(type) {
		case string:
			return s, nil
		case Identity:
			return string(s), nil
		}
	case KindTime:
		switch t := v.(type) {
		case Timestamp:
			return t, nil
		case time.Time:
			return NewTimestamp(t), nil
		}
	case KindBlob:
		if b, ok := v.([]byte); ok {
			return append([]byte(nil), b...), nil
		}
	case KindBoolList:
		if xs, ok := v.([]bool); ok {
			return append([]bool(nil), xs...), nil
		}
	case KindIntList:
		switch xs := v.(type) {
		case []int64:
			return append([]int64(nil), xs...), nil
		case []int:
			out := make([]int64, len(xs))
			for i, n := range xs {
				out[i] = int64(n)
			}
			return out, nil
		}
	case KindFloatList:
		if xs, ok := v.([]float64); ok {
			return append([]float64(nil), xs...), nil
		}
	case KindStringList:
		if xs, ok := v.([]string); ok {
			return append([]string(nil), xs...), nil
		}
	case KindTimeList:
		switch xs := v.(type) {
		case []Timestamp:
			return append([]Timestamp(nil), xs...), nil
		case []time.Time:
			out := make([]Timestamp, len(xs))
			for i, t := range xs {
				out[i] = NewTimestamp(t)
			}
			return out, nil
		}
	case KindBlobList:
		if xs, ok := v.([][]byte); ok {
			out := make([][]byte, len(xs))
			for i, b := range xs {
				out[i] = append([]byte(nil), b...)
			}
			return out, nil
		}
	}
	return nil, &UnsupportedFieldTypeError{Field: f.Name, Kind: f.Kind, Value: v}
}

// ReferenceFields returns the reference-kinded descriptors of m, preserving
// declaration order. The save pipeline walks these to classify each edge.
func ReferenceFields(m Mapper) []Field {
	var out []Field
	for _, f := range m.RecordFields() {
		if f.Kind.IsReference() {
			out = append(out, f)
		}
	}
	return out
}

// ReferencedObjects returns the non-nil objects reachable through one hop of
// m's reference fields. This is the neighbor function cycle detection walks.
func ReferencedObjects(m Mapper) []Mapper {
	if _, ok := m.(Marshaler); ok {
		// Custom-encoded objects are opaque: their references are already
		// identities, so there is nothing to walk.
		return nil
	}
	var out []Mapper
	for _, f := range ReferenceFields(m) {
		v := f.Value()
		if isNilMapper(v) {
			continue
		}
		switch f.Kind {
		case KindReference:
			if child, ok := v.(Mapper); ok {
				out = append(out, child)
			}
		case KindReferenceList:
			if children, ok := v.([]Mapper); ok {
				for _, child := range children {
					if !isNilMapper(child) {
						out = append(out, child)
					}
				}
			}
		}
	}
	return out
}
