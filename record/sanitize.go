package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ResolveFunc resolves a reference attribute during sanitization. The load
// pipeline supplies one that fetches the target record, sanitizes it
// recursively, and substitutes a cycle stub when the target is already being
// decoded higher up the walk.
type ResolveFunc func(ref Reference) (any, error)

// CycleStub is the sanitized placeholder for a reference whose target is
// already in flight: only the identity plus the isCycle marker.
func CycleStub(id Identity) map[string]any {
	return map[string]any{
		"identity": string(id),
		"isCycle":  true,
	}
}

// referenceStub is what references sanitize to when no resolver is given.
func referenceStub(id Identity) map[string]any {
	return map[string]any{"identity": string(id)}
}

// Sanitize flattens a record into a JSON-safe map: identity and system
// attributes first, then every domain attribute in canonical wire form.
// Timestamps become epoch-millisecond numbers, blobs become base64 strings,
// and references are handed to resolve, which returns the nested map to
// embed. A nil resolve embeds identity-only maps.
func Sanitize(rec *Record, resolve ResolveFunc) (map[string]any, error) {
	out := make(map[string]any, len(rec.Attributes)+6)
	if rec.Identity != "" {
		out["identity"] = string(rec.Identity)
	}
	sanitizeSystem(out, rec.System)

	for name, v := range rec.Attributes {
		sv, err := sanitizeValue(v, resolve)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = sv
	}
	return out, nil
}

func sanitizeSystem(out map[string]any, sys SystemAttributes) {
	if sys.CreatedBy != "" {
		out["createdBy"] = sys.CreatedBy
	}
	if !sys.CreatedAt.IsZero() {
		out["createdAt"] = sys.CreatedAt.EpochMillis()
	}
	if sys.ModifiedBy != "" {
		out["modifiedBy"] = sys.ModifiedBy
	}
	if !sys.ModifiedAt.IsZero() {
		out["modifiedAt"] = sys.ModifiedAt.EpochMillis()
	}
	if sys.ChangeTag != "" {
		out["changeTag"] = sys.ChangeTag
	}
}

func sanitizeValue(v any, resolve ResolveFunc) (any, error) {
	switch val := v.(type) {
	case bool, int64, float64, string:
		return val, nil
	case Timestamp:
		return val.EpochMillis(), nil
	case []byte:
		return base64.StdEncoding.EncodeToString(val), nil
	case Reference:
		if resolve == nil {
			return referenceStub(val.Identity), nil
		}
		return resolve(val)
	case []bool:
		return val, nil
	case []int64:
		return val, nil
	case []float64:
		return val, nil
	case []string:
		return val, nil
	case []Timestamp:
		out := make([]int64, len(val))
		for i, t := range val {
			out[i] = t.EpochMillis()
		}
		return out, nil
	case [][]byte:
		out := make([]string, len(val))
		for i, b := range val {
			out[i] = base64.StdEncoding.EncodeToString(b)
		}
		return out, nil
	case []Reference:
		out := make([]any, len(val))
		for i, ref := range val {
			if resolve == nil {
				out[i] = referenceStub(ref.Identity)
				continue
			}
			rv, err := resolve(ref)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value %T", v)
	}
}

// DecodeInto materializes a sanitized map into target through a JSON round
// trip. Nested reference maps populate nested struct fields; a type
// mismatch anywhere surfaces as a MappingError carrying the record's kind
// and identity.
func DecodeInto(rec *Record, sanitized map[string]any, target Mapper) error {
	data, err := json.Marshal(sanitized)
	if err != nil {
		return &MappingError{Kind: rec.Kind, Identity: rec.Identity, Err: err}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return &MappingError{Kind: rec.Kind, Identity: rec.Identity, Err: err}
	}
	return nil
}
