package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// CursorPage is one keyset page. NextCursor is empty on the last page.
type CursorPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

type OffsetPage[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newOffsetPage[T any](items []T, total int64, page, pageSize int) *OffsetPage[T] {
	if items == nil {
		items = []T{}
	}
	p := &OffsetPage[T]{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	if pageSize > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return p
}

// OrderCursor is the (created_at, id) position of the last order on a page.
type OrderCursor struct {
	CreatedAt time.Time `json:"t"`
	ID        int64     `json:"id"`
}

func (c OrderCursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses an encoded cursor. The empty string is the start
// position, ahead of every stored order.
func DecodeCursor(encoded string) (OrderCursor, error) {
	if encoded == "" {
		return OrderCursor{CreatedAt: time.Now().Add(time.Hour), ID: math.MaxInt64}, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return OrderCursor{}, fmt.Errorf("decode cursor: %w", err)
	}

	var cursor OrderCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return OrderCursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	return cursor, nil
}
