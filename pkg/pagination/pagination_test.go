package pagination

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", got, want)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatalf("blank cursor should be nil, got %v %v", c, err)
	}
	for _, raw := range []string{"%%%", "bm8tc2VwYXJhdG9y", EncodeCursor(Cursor{})[:10]} {
		if _, err := ParseCursor(raw); !errors.Is(err, ErrBadCursor) {
			t.Fatalf("%q: expected ErrBadCursor, got %v", raw, err)
		}
	}
}

func TestPageTrimsAndPointsAtLastRow(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	type row struct {
		at time.Time
		id uuid.UUID
	}
	rows := make([]row, 4)
	for i := range rows {
		rows[i] = row{at: base.Add(-time.Duration(i) * time.Minute), id: uuid.New()}
	}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Page(rows, 3, key)
	if len(page) != 3 || next == "" {
		t.Fatalf("expected 3 rows and a cursor, got %d %q", len(page), next)
	}
	cursor, err := ParseCursor(next)
	if err != nil || cursor.ID != rows[2].id {
		t.Fatalf("cursor should point at the third row, got %+v %v", cursor, err)
	}

	if page, next := Page(rows[:2], 3, key); len(page) != 2 || next != "" {
		t.Fatalf("last page should carry no cursor, got %d %q", len(page), next)
	}
}

func TestWindow(t *testing.T) {
	cases := []struct {
		in   Window
		want Window
	}{
		{Window{}, Window{Limit: DefaultLimit}},
		{Window{Limit: 900, Offset: -3}, Window{Limit: MaxOffsetLimit}},
		{Window{Limit: 50, Offset: 10}, Window{Limit: 50, Offset: 10}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}

	w := Window{Limit: 10, Offset: 15}
	if start, end := w.Bounds(20); start != 15 || end != 20 {
		t.Fatalf("unexpected bounds %d..%d", start, end)
	}
	if start, end := w.Bounds(5); start != 5 || end != 5 {
		t.Fatalf("offset past the end should clip, got %d..%d", start, end)
	}
	if !w.HasMore(26) || w.HasMore(25) {
		t.Fatal("unexpected HasMore")
	}
	if NormalizeLimit(1000) != MaxLimit || LimitWithBuffer(0) != DefaultLimit+1 {
		t.Fatal("unexpected cursor limits")
	}
}
