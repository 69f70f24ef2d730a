package notifier

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	panics bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(_ context.Context, e Event) error {
	if s.panics {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func TestPublishSendsEventThenRefresh(t *testing.T) {
	sink := &recordingSink{}
	n := New(logger.New(logger.Options{ServiceName: "test"}), sink)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	n.Publish(context.Background(), EventNewOrder, "New order placed", map[string]string{"id": "1"}, RefreshOrder)

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	if sink.events[0].Type != EventNewOrder || sink.events[0].Message != "New order placed" {
		t.Fatalf("unexpected first event: %+v", sink.events[0])
	}
	refresh := sink.events[1]
	if refresh.Type != EventDataRefresh {
		t.Fatalf("expected data-refresh, got %s", refresh.Type)
	}
	if tag := refresh.Data.(map[string]string)["type"]; tag != RefreshOrder {
		t.Fatalf("unexpected refresh tag %q", tag)
	}
	if !refresh.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected timestamp %v", refresh.Timestamp)
	}
}

func TestPublishWithoutRefreshTag(t *testing.T) {
	sink := &recordingSink{}
	New(nil, sink).Publish(context.Background(), EventTransactionUpdate, "", nil, "")
	if len(sink.events) != 1 {
		t.Fatalf("expected only the event, got %d", len(sink.events))
	}
}

func TestFailingSinksNeverPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	failing := &recordingSink{err: errors.New("down")}
	panicking := &recordingSink{panics: true}
	healthy := &recordingSink{}

	n := New(logg, failing, panicking, healthy)
	n.Publish(context.Background(), EventNewShopOrder, "x", nil, RefreshShopOrder)

	if len(healthy.events) != 2 {
		t.Fatalf("healthy sink should still receive both events, got %d", len(healthy.events))
	}
	out := buf.String()
	if !strings.Contains(out, "notifier sink failed") || !strings.Contains(out, "notifier sink panicked") {
		t.Fatalf("expected sink failures to be logged, got %s", out)
	}
}

func TestNilNotifierAndNop(t *testing.T) {
	var n *Notifier
	n.Publish(context.Background(), EventNewOrder, "", nil, RefreshOrder)
	Nop{}.Publish(context.Background(), EventNewOrder, "", nil, RefreshOrder)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logg: logger.New(logger.Options{ServiceName: "test", Output: &buf})}
	if err := sink.Send(context.Background(), Event{Type: EventNewTopUp, Message: "Top-up approved"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.Contains(buf.String(), "new-topup") {
		t.Fatalf("expected event name in log, got %s", buf.String())
	}
}

func TestRecorderCounts(t *testing.T) {
	var rec Recorder
	rec.Publish(context.Background(), EventNewOrder, "a", nil, RefreshOrder)
	rec.Publish(context.Background(), EventNewOrder, "b", nil, RefreshOrder)
	rec.Publish(context.Background(), EventNewTopUp, "c", nil, RefreshTopUp)

	if rec.Count(EventNewOrder) != 2 || rec.Count(EventNewTopUp) != 1 {
		t.Fatalf("unexpected counts: %+v", rec.Events())
	}
}
