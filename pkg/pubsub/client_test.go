package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/bundlehub-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"bundlehub", "events", "projects/bundlehub/topics/events"},
		{"bundlehub", " projects/other/topics/x ", "projects/other/topics/x"},
		{"", "events", ""},
		{"bundlehub", "  ", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientValidatesBeforeDialing(t *testing.T) {
	if _, err := NewClient(context.Background(), config.GCPConfig{}, "events", nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(context.Background(), config.GCPConfig{ProjectID: "bundlehub"}, " ", nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("events", Batching{}) != nil {
		t.Fatal("nil client should not return a publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
