package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor is the decoded form of a continuation token: the absolute offset
// of the next match plus the kind the query ran against, so a token cannot
// resume a query over a different kind.
type Cursor struct {
	Offset int    `json:"offset"`
	Kind   string `json:"kind"`
}

// EncodeCursor serializes a cursor into the opaque string handed to
// clients.
func EncodeCursor(c Cursor) string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a continuation token, binding it to the kind of the
// resuming query. Tokens that fail to parse or were issued for another
// kind return ErrInvalidCursor.
func DecodeCursor(token, kind string) (Cursor, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Kind != kind {
		return Cursor{}, fmt.Errorf("%w: cursor issued for kind %q, query is for %q", ErrInvalidCursor, c.Kind, kind)
	}
	if c.Offset < 0 {
		return Cursor{}, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}
	return c, nil
}
