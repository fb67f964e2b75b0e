package record

import (
	"encoding/json"
	"fmt"
)

// wireValue is the stored form of one attribute: its kind tag plus the raw
// value. Tagging every attribute keeps decoding exact; without it, integer,
// float, and timestamp attributes would all come back as JSON numbers.
type wireValue struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v"`
}

// EncodeAttributes serializes a record's attribute bag into a
// self-describing JSON document suitable for a single storage column.
func EncodeAttributes(attrs map[string]any) ([]byte, error) {
	if len(attrs) == 0 {
		return []byte("{}"), nil
	}
	out := make(map[string]wireValue, len(attrs))
	for name, v := range attrs {
		wv, err := encodeWireValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = wv
	}
	return json.Marshal(out)
}

func encodeWireValue(v any) (wireValue, error) {
	var (
		kind FieldKind
		body any
	)
	switch val := v.(type) {
	case bool:
		kind, body = KindBool, val
	case int64:
		kind, body = KindInt, val
	case float64:
		kind, body = KindFloat, val
	case string:
		kind, body = KindString, val
	case Timestamp:
		kind, body = KindTime, val.EpochMillis()
	case []byte:
		kind, body = KindBlob, val
	case Reference:
		kind, body = KindReference, string(val.Identity)
	case []bool:
		kind, body = KindBoolList, val
	case []int64:
		kind, body = KindIntList, val
	case []float64:
		kind, body = KindFloatList, val
	case []string:
		kind, body = KindStringList, val
	case []Timestamp:
		ms := make([]int64, len(val))
		for i, t := range val {
			ms[i] = t.EpochMillis()
		}
		kind, body = KindTimeList, ms
	case [][]byte:
		kind, body = KindBlobList, val
	case []Reference:
		ids := make([]string, len(val))
		for i, ref := range val {
			ids[i] = string(ref.Identity)
		}
		kind, body = KindReferenceList, ids
	default:
		return wireValue{}, fmt.Errorf("unsupported attribute value %T", v)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return wireValue{}, err
	}
	return wireValue{Kind: kind.String(), Value: raw}, nil
}

// DecodeAttributes parses a document produced by EncodeAttributes back into
// a canonical attribute bag.
func DecodeAttributes(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var wire map[string]wireValue
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(wire))
	for name, wv := range wire {
		v, err := decodeWireValue(wv)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func decodeWireValue(wv wireValue) (any, error) {
	switch wv.Kind {
	case "bool":
		var v bool
		return v, unmarshalWire(wv.Value, &v)
	case "int":
		var v int64
		return v, unmarshalWire(wv.Value, &v)
	case "float":
		var v float64
		return v, unmarshalWire(wv.Value, &v)
	case "string":
		var v string
		return v, unmarshalWire(wv.Value, &v)
	case "time":
		var ms int64
		if err := unmarshalWire(wv.Value, &ms); err != nil {
			return nil, err
		}
		return FromEpochMillis(ms), nil
	case "blob":
		var v []byte
		return v, unmarshalWire(wv.Value, &v)
	case "reference":
		var id string
		if err := unmarshalWire(wv.Value, &id); err != nil {
			return nil, err
		}
		return Reference{Identity: Identity(id)}, nil
	case "bool_list":
		var v []bool
		return v, unmarshalWire(wv.Value, &v)
	case "int_list":
		var v []int64
		return v, unmarshalWire(wv.Value, &v)
	case "float_list":
		var v []float64
		return v, unmarshalWire(wv.Value, &v)
	case "string_list":
		var v []string
		return v, unmarshalWire(wv.Value, &v)
	case "time_list":
		var ms []int64
		if err := unmarshalWire(wv.Value, &ms); err != nil {
			return nil, err
		}
		out := make([]Timestamp, len(ms))
		for i, m := range ms {
			out[i] = FromEpochMillis(m)
		}
		return out, nil
	case "blob_list":
		var v [][]byte
		return v, unmarshalWire(wv.Value, &v)
	case "reference_list":
		var ids []string
		if err := unmarshalWire(wv.Value, &ids); err != nil {
			return nil, err
		}
		out := make([]Reference, len(ids))
		for i, id := range ids {
			out[i] = Reference{Identity: Identity(id)}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown wire kind %q", wv.Kind)
	}
}

func unmarshalWire(raw json.RawMessage, target any) error {
	return json.Unmarshal(raw, target)
}
