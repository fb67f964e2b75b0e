package store

import (
	"errors"
	"testing"
)

func TestCursor_RoundTrip(t *testing.T) {
	token := EncodeCursor(Cursor{Offset: 40, Kind: "employee"})

	got, err := DecodeCursor(token, "employee")
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if got.Offset != 40 || got.Kind != "employee" {
		t.Errorf("DecodeCursor() = %+v, want offset 40 kind employee", got)
	}
}

func TestCursor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		kind  string
	}{
		{name: "garbage", token: "!!!not-base64!!!", kind: "employee"},
		{name: "not json", token: "bm90LWpzb24", kind: "employee"},
		{name: "kind mismatch", token: EncodeCursor(Cursor{Offset: 1, Kind: "project"}), kind: "employee"},
		{name: "negative offset", token: EncodeCursor(Cursor{Offset: -2, Kind: "employee"}), kind: "employee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.token, tt.kind)
			if !errors.Is(err, ErrInvalidCursor) {
				t.Errorf("DecodeCursor() error = %v, want ErrInvalidCursor", err)
			}
		})
	}
}
