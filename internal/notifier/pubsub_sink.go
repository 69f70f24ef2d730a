package notifier

import (
	"context"
	"encoding/json"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

const publishResultTimeout = 30 * time.Second

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubSink mirrors events to a Pub/Sub topic for downstream consumers. It
// does not wait for the publish result; failures are logged asynchronously.
type PubSubSink struct {
	publisher topicPublisher
	logg      *logger.Logger
}

func NewPubSubSink(publisher topicPublisher, logg *logger.Logger) *PubSubSink {
	return &PubSubSink{publisher: publisher, logg: logg}
}

func (s *PubSubSink) Name() string { return "pubsub" }

func (s *PubSubSink) Send(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	res := s.publisher.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": string(event.Type)},
	})
	if res == nil {
		return nil
	}

	logCtx := context.WithoutCancel(ctx)
	go func() {
		waitCtx, cancel := context.WithTimeout(logCtx, publishResultTimeout)
		defer cancel()
		if _, err := res.Get(waitCtx); err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(logCtx, "event", string(event.Type)), "pubsub publish failed", err)
		}
	}()
	return nil
}
