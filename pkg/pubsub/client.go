// Package pubsub holds the publish side of the event mirror: dashboard events
// are copied to a Pub/Sub topic for consumers outside this service.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bundlehub-backend/pkg/config"
	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub topic is required")
	ErrTopicNotFound     = errors.New("pubsub topic not found")
)

// Batching trades a little latency for fewer publish RPCs.
type Batching struct {
	Delay time.Duration
	Count int
}

type Client struct {
	client  *pubsub.Client
	project string
}

// NewClient connects to project and fails fast when topic is missing, so a
// misconfigured mirror stops the deploy instead of dropping events.
func NewClient(ctx context.Context, gcp config.GCPConfig, topic string, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	name := TopicResourceName(project, topic)
	if name == "" {
		return nil, errTopicRequired
	}

	raw, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	if _, err := raw.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name}); err != nil {
		_ = raw.Close()
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, name)
		}
		return nil, fmt.Errorf("get topic %s: %w", name, err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", name), "pubsub topic ready")
	}
	return &Client{client: raw, project: project}, nil
}

// Publisher returns a batching publisher for name. Call Stop on it before
// Close to flush what is still buffered.
func (c *Client) Publisher(name string, batching Batching) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	full := TopicResourceName(c.project, name)
	if full == "" {
		return nil
	}
	pub := c.client.Publisher(full)
	if batching.Delay > 0 {
		pub.PublishSettings.DelayThreshold = batching.Delay
	}
	if batching.Count > 0 {
		pub.PublishSettings.CountThreshold = batching.Count
	}
	return pub
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicResourceName expands a topic id into projects/<p>/topics/<id>. Full
// resource names pass through unchanged.
func TopicResourceName(project, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case strings.TrimSpace(project) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(project) + "/topics/" + name
}
