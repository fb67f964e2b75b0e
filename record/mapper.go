package record

import "reflect"

// FieldKind declares how a mapped field is classified when a domain object
// is encoded into a Record.
type FieldKind int

const (
	KindInvalid FieldKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
	KindBlob
	KindReference
	KindBoolList
	KindIntList
	KindFloatList
	KindStringList
	KindTimeList
	KindBlobList
	KindReferenceList
)

var kindNames = map[FieldKind]string{
	KindInvalid:       "invalid",
	KindBool:          "bool",
	KindInt:           "int",
	KindFloat:         "float",
	KindString:        "string",
	KindTime:          "time",
	KindBlob:          "blob",
	KindReference:     "reference",
	KindBoolList:      "bool_list",
	KindIntList:       "int_list",
	KindFloatList:     "float_list",
	KindStringList:    "string_list",
	KindTimeList:      "time_list",
	KindBlobList:      "blob_list",
	KindReferenceList: "reference_list",
}

func (k FieldKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsReference reports whether the kind is a single or list reference.
func (k FieldKind) IsReference() bool {
	return k == KindReference || k == KindReferenceList
}

// IsList reports whether the kind is one of the list kinds.
func (k FieldKind) IsList() bool {
	return k >= KindBoolList && k <= KindReferenceList
}

// Field describes one persisted field of a Mapper: the record attribute
// name it maps to, its declared kind, and an accessor bound to the owning
// instance.
//
// The attribute name must match the json tag of the corresponding struct
// field, because decoding materializes objects through a JSON round trip.
//
// Accessors return:
//
//   - primitives and lists: the field value (bool, int, string, []string, ...)
//   - KindTime: Timestamp or time.Time
//   - KindBlob: []byte
//   - KindReference: a Mapper or nil
//   - KindReferenceList: []Mapper, usually built with Refs
type Field struct {
	Name  string
	Kind  FieldKind
	Value func() any
}

// Mapper is implemented by any domain type that persists as a Record.
// Embedding Entity supplies everything except RecordKind and RecordFields.
type Mapper interface {
	// RecordKind names the record type this object maps to.
	RecordKind() string
	// RecordFields lists the persisted fields with accessors bound to the
	// receiver.
	RecordFields() []Field

	RecordIdentity() Identity
	SetRecordIdentity(Identity)
	System() *SystemAttributes
	IsCycleStub() bool
}

// Marshaler lets a type replace the structural encoder. Implementations take
// full responsibility for the produced record, including reference
// attributes, so the save pipeline will not defer or resolve anything for
// them.
type Marshaler interface {
	MarshalRecord() (*Record, error)
}

// Unmarshaler lets a type replace the structural decoder. The record passed
// in is raw: references appear as Reference values, not nested objects.
type Unmarshaler interface {
	UnmarshalRecord(*Record) error
}

// Refs adapts a typed slice to the []Mapper a reference-list accessor must
// return.
func Refs[T Mapper](items []T) []Mapper {
	if items == nil {
		return nil
	}
	out := make([]Mapper, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// IsNil reports whether an accessor value is nil, including typed nils
// wrapped in an interface. Pipelines use it to tell an absent reference
// from a present one.
func IsNil(v any) bool {
	return isNilMapper(v)
}

// isNilMapper reports whether v is nil or an interface wrapping a nil
// pointer. Accessors hand back typed nils routinely, so a plain == nil
// check is not enough.
func isNilMapper(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
