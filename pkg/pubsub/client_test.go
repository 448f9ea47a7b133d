package pubsub

import (
	"context"
	"testing"

	"github.com/snapwall/snapwall-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{project: "snap", name: "media-lifecycle", want: "projects/snap/topics/media-lifecycle"},
		{project: "snap", name: " projects/other/topics/t ", want: "projects/other/topics/t"},
		{project: "", name: "media-lifecycle", want: ""},
		{project: "snap", name: "  ", want: ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{MediaTopic: "t"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "snap"}, config.PubSubConfig{}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestOrderingKeyUsesEventID(t *testing.T) {
	if got := orderingKey(map[string]string{OrderingAttr: " evt-1 ", "event_type": "new_media"}); got != "evt-1" {
		t.Fatalf("expected evt-1, got %q", got)
	}
	if got := orderingKey(nil); got != "" {
		t.Fatalf("expected empty key for nil attrs, got %q", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err != errNotInitialized {
		t.Fatal("expected ping error on nil client")
	}
	if err := c.Publish(context.Background(), []byte("x"), nil); err == nil {
		t.Fatal("expected publish error on nil client")
	}
}
