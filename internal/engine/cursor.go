package engine

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// cursor is the decoded continuation position of a paginated scan.
// Pagination is keyset-based on (creation_time, id), so cursors stay valid
// when documents before or after the position are deleted between pages.
type cursor struct {
	CreationTime int64  `json:"ct"`
	ID           string `json:"id"`
}

func encodeCursor(c cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		// cursor is two scalar fields; Marshal cannot fail.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

func decodeCursor(s string) (cursor, error) {
	if s == "" {
		return cursor{ID: ""}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return c, nil
}
