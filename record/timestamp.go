package record

import (
	"bytes"
	"strconv"
	"time"
)

// Timestamp is a time.Time that crosses the wire as an epoch offset in
// milliseconds. It is the canonical encoded form of every time-kinded
// attribute, which keeps sanitized records free of locale and zone strings.
type Timestamp struct {
	time.Time
}

// NewTimestamp converts a time.Time, truncating below millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return FromEpochMillis(t.UnixMilli())
}

// FromEpochMillis builds a Timestamp from milliseconds since the Unix epoch.
func FromEpochMillis(ms int64) Timestamp {
	return Timestamp{Time: time.UnixMilli(ms).UTC()}
}

// EpochMillis returns the timestamp as milliseconds since the Unix epoch.
// The zero Timestamp reports 0.
func (t Timestamp) EpochMillis() int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

var jsonNull = []byte("null")

// MarshalJSON emits the epoch offset as a bare number, or null for the zero
// Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return jsonNull, nil
	}
	return strconv.AppendInt(nil, t.UnixMilli(), 10), nil
}

// UnmarshalJSON accepts an epoch-millisecond number or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*t = Timestamp{}
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		// Tolerate the fractional form some encoders produce.
		f, ferr := strconv.ParseFloat(string(data), 64)
		if ferr != nil {
			return err
		}
		ms = int64(f)
	}
	*t = FromEpochMillis(ms)
	return nil
}
