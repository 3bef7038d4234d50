package audit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// cursor is the keyset position encoded into opaque page tokens. Paging on
// (timestamp, seq) keeps results stable across partitions and across new
// appends while a caller walks the trail.
type cursor struct {
	Timestamp time.Time `json:"ts"`
	Seq       uint64    `json:"seq"`
}

// EncodeCursor serializes a keyset position into an opaque token.
func EncodeCursor(ts time.Time, seq uint64) string {
	raw, _ := json.Marshal(cursor{Timestamp: ts, Seq: seq})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a page token produced by EncodeCursor.
func DecodeCursor(token string) (time.Time, uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid cursor: %w", err)
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid cursor: %w", err)
	}
	return c.Timestamp, c.Seq, nil
}
