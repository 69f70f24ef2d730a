package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	// MaxLimit caps cursor listings.
	MaxLimit = 100
	// MaxOffsetLimit caps the admin offset listings.
	MaxOffsetLimit = 500
)

// ErrBadCursor marks a cursor the client tampered with or truncated.
var ErrBadCursor = errors.New("invalid cursor")

// Params are cursor pagination inputs, newest first.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (created_at, id) of the last row already seen.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// LimitWithBuffer is one more than the page so the next page can be detected.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Scope orders newest first, skips past the cursor and fetches one row more
// than the page. Tables must carry created_at and id columns.
func (p Params) Scope() (func(*gorm.DB) *gorm.DB, error) {
	cursor, err := ParseCursor(p.Cursor)
	if err != nil {
		return nil, err
	}
	return func(q *gorm.DB) *gorm.DB {
		if cursor != nil {
			q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return q.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(p.Limit))
	}, nil
}

// Page trims rows fetched through Scope to the page size and returns the
// cursor of the following page, or "" on the last one.
func Page[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[limit-1]))
}

// Window is an offset page for listings merged from several tables.
type Window struct {
	Limit  int
	Offset int
}

func (w Window) Normalize() Window {
	w.Limit = min(max(w.Limit, 0), MaxOffsetLimit)
	if w.Limit == 0 {
		w.Limit = DefaultLimit
	}
	w.Offset = max(w.Offset, 0)
	return w
}

// Bounds clips the window to a slice of length n.
func (w Window) Bounds(n int) (start, end int) {
	start = min(w.Offset, n)
	return start, min(start+w.Limit, n)
}

func (w Window) HasMore(total int64) bool {
	return int64(w.Offset+w.Limit) < total
}

func EncodeCursor(cursor Cursor) string {
	raw := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes an EncodeCursor value. Blank input means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	stamp, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, ErrBadCursor
	}
	createdAt, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrBadCursor, err)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrBadCursor, err)
	}
	return &Cursor{CreatedAt: createdAt, ID: parsedID}, nil
}
