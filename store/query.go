package store

import (
	"strings"

	"github.com/goliatone/go-record-graph/record"
)

// FilterOp is a comparison operator applied to one field.
type FilterOp string

const (
	OpEqual          FilterOp = "eq"
	OpNotEqual       FilterOp = "ne"
	OpGreaterThan    FilterOp = "gt"
	OpGreaterOrEqual FilterOp = "gte"
	OpLessThan       FilterOp = "lt"
	OpLessOrEqual    FilterOp = "lte"
	OpContains       FilterOp = "contains"
)

// Filter compares one field against a value. Field may name a domain
// attribute or one of the system fields: identity, createdBy, createdAt,
// modifiedBy, modifiedAt, changeTag.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Predicate is a conjunction of filters. The zero Predicate matches
// everything.
type Predicate struct {
	Filters []Filter
}

// Where builds a predicate from filters.
func Where(filters ...Filter) Predicate {
	return Predicate{Filters: filters}
}

// Eq is shorthand for an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEqual, Value: value}
}

// SortKey orders results by one field.
type SortKey struct {
	Field      string
	Descending bool
}

// Query selects records of one kind. Limit caps the page size; Cursor
// resumes a previous page's ContinuationCursor.
type Query struct {
	Kind      string
	Predicate Predicate
	Sort      []SortKey
	Limit     int
	Cursor    string
}

// Matches evaluates the predicate against a record. Filters on absent
// fields fail the match.
func (p Predicate) Matches(rec *record.Record) bool {
	for _, f := range p.Filters {
		if !f.matches(rec) {
			return false
		}
	}
	return true
}

func (f Filter) matches(rec *record.Record) bool {
	v, ok := FieldValue(rec, f.Field)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEqual:
		c, ok := Compare(v, f.Value)
		return ok && c == 0
	case OpNotEqual:
		c, ok := Compare(v, f.Value)
		return ok && c != 0
	case OpGreaterThan:
		c, ok := Compare(v, f.Value)
		return ok && c > 0
	case OpGreaterOrEqual:
		c, ok := Compare(v, f.Value)
		return ok && c >= 0
	case OpLessThan:
		c, ok := Compare(v, f.Value)
		return ok && c < 0
	case OpLessOrEqual:
		c, ok := Compare(v, f.Value)
		return ok && c <= 0
	case OpContains:
		return contains(v, f.Value)
	default:
		return false
	}
}

// FieldValue resolves a filterable or sortable field on a record, letting
// queries address system attributes by their wire names.
func FieldValue(rec *record.Record, field string) (any, bool) {
	switch field {
	case "identity":
		return string(rec.Identity), true
	case "createdBy":
		return rec.System.CreatedBy, true
	case "createdAt":
		return rec.System.CreatedAt, true
	case "modifiedBy":
		return rec.System.ModifiedBy, true
	case "modifiedAt":
		return rec.System.ModifiedAt, true
	case "changeTag":
		return rec.System.ChangeTag, true
	default:
		return rec.Get(field)
	}
}

// Compare orders two attribute values of compatible types. The second
// return is false when the values are not comparable. Numeric values
// compare across int64/float64; timestamps compare with each other and
// with epoch-millisecond numbers.
func Compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}

	switch av := a.(type) {
	case string:
		bv, ok := toString(b)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case record.Identity:
		bv, ok := toString(b)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(av), bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case record.Reference:
		bv, ok := b.(record.Reference)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(av.Identity), string(bv.Identity)), true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case record.Timestamp:
		return float64(n.EpochMillis()), true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case record.Identity:
		return string(s), true
	default:
		return "", false
	}
}

func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := toString(needle)
		return ok && strings.Contains(h, n)
	case []string:
		n, ok := toString(needle)
		if !ok {
			return false
		}
		for _, s := range h {
			if s == n {
				return true
			}
		}
	case []int64:
		n, ok := toFloat(needle)
		if !ok {
			return false
		}
		for _, x := range h {
			if float64(x) == n {
				return true
			}
		}
	case []float64:
		n, ok := toFloat(needle)
		if !ok {
			return false
		}
		for _, x := range h {
			if x == n {
				return true
			}
		}
	case []record.Reference:
		n, ok := toString(needle)
		if !ok {
			return false
		}
		for _, ref := range h {
			if string(ref.Identity) == n {
				return true
			}
		}
	}
	return false
}

// Less orders two records under a sort key list, falling back to identity
// so pagination over equal keys stays stable.
func Less(a, b *record.Record, keys []SortKey) bool {
	for _, k := range keys {
		av, aok := FieldValue(a, k.Field)
		bv, bok := FieldValue(b, k.Field)
		if !aok && !bok {
			continue
		}
		// Records missing the field sort last regardless of direction.
		if !aok {
			return false
		}
		if !bok {
			return true
		}
		c, ok := Compare(av, bv)
		if !ok || c == 0 {
			continue
		}
		if k.Descending {
			return c > 0
		}
		return c < 0
	}
	return a.Identity < b.Identity
}
