// Package notifier fans domain events out to dashboards after commit.
// Delivery is best effort: a failing sink is logged and never reaches the caller.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

// EventName identifies a dashboard event.
type EventName string

const (
	EventNewOrder          EventName = "new-order"
	EventNewTopUp          EventName = "new-topup"
	EventOrderStatusUpdate EventName = "order-status-update"
	EventNewShopOrder      EventName = "new-shop-order"
	EventDataRefresh       EventName = "data-refresh"
	EventTransactionUpdate EventName = "transaction-update"
)

// Refresh tags tell dashboards which dataset to reload.
const (
	RefreshOrder       = "order"
	RefreshTopUp       = "topup"
	RefreshOrderStatus = "order-status"
	RefreshShopOrder   = "shop-order"
	RefreshTransaction = "transaction"
)

// Event is the wire shape sent to every sink.
type Event struct {
	Type      EventName `json:"type"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(ctx context.Context, name EventName, message string, data any, refreshTag string)
}

// Sink delivers events to one transport.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Notifier is the process-wide Publisher. Build it once in main.
type Notifier struct {
	sinks []Sink
	logg  *logger.Logger
	now   func() time.Time
}

func New(logg *logger.Logger, sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks, logg: logg, now: time.Now}
}

// Publish sends the event, then a data-refresh carrying refreshTag when set.
func (n *Notifier) Publish(ctx context.Context, name EventName, message string, data any, refreshTag string) {
	if n == nil {
		return
	}
	now := n.now().UTC()
	n.dispatch(ctx, Event{Type: name, Message: message, Data: data, Timestamp: now})
	if refreshTag != "" {
		n.dispatch(ctx, Event{
			Type:      EventDataRefresh,
			Data:      map[string]string{"type": refreshTag},
			Timestamp: now,
		})
	}
}

func (n *Notifier) dispatch(ctx context.Context, event Event) {
	for _, sink := range n.sinks {
		n.sendOne(ctx, sink, event)
	}
}

func (n *Notifier) sendOne(ctx context.Context, sink Sink, event Event) {
	defer func() {
		if r := recover(); r != nil && n.logg != nil {
			n.logg.Error(n.sinkCtx(ctx, sink, event), "notifier sink panicked", fmt.Errorf("%v", r))
		}
	}()
	if err := sink.Send(ctx, event); err != nil && n.logg != nil {
		n.logg.Warn(n.logg.WithField(n.sinkCtx(ctx, sink, event), "error", err.Error()), "notifier sink failed")
	}
}

func (n *Notifier) sinkCtx(ctx context.Context, sink Sink, event Event) context.Context {
	return n.logg.WithFields(ctx, map[string]any{"sink": sink.Name(), "event": string(event.Type)})
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(context.Context, EventName, string, any, string) {}

// LogSink writes events to the structured log; used when no transport is configured.
type LogSink struct {
	Logg *logger.Logger
}

func (LogSink) Name() string { return "log" }

func (s LogSink) Send(ctx context.Context, event Event) error {
	if s.Logg == nil {
		return nil
	}
	s.Logg.Info(s.Logg.WithFields(ctx, map[string]any{
		"event":   string(event.Type),
		"message": event.Message,
	}), "event published")
	return nil
}
