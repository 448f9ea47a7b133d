package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/logger"
)

// OrderingAttr names the attribute used as ordering key when ordering is on, so
// subscribers see one event's lifecycle in publish order.
const OrderingAttr = "event_id"

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errTopicRequired     = errors.New("pubsub media topic is required")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client mirrors media lifecycle messages onto a Pub/Sub topic.
type Client struct {
	gcp      *pubsub.Client
	pub      *pubsub.Publisher
	topic    string
	ordering bool
}

// NewClient dials Pub/Sub and fails fast when the topic is missing; topics are provisioned
// out of band.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	topic := topicResourceName(project, cfg.MediaTopic)
	if topic == "" {
		return nil, errTopicRequired
	}

	gc, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{gcp: gc, topic: topic, ordering: cfg.OrderByEvent}
	if err := c.checkTopic(ctx); err != nil {
		_ = gc.Close()
		return nil, err
	}

	c.pub = gc.Publisher(topic)
	c.pub.EnableMessageOrdering = c.ordering

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"topic": topic, "ordered": c.ordering}), "pubsub.connected")
	}
	return c, nil
}

func (c *Client) checkTopic(ctx context.Context) error {
	_, err := c.gcp.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub topic %q does not exist", c.topic)
	}
	return fmt.Errorf("looking up pubsub topic %q: %w", c.topic, err)
}

// Publish blocks until the server acks. A failed ordered publish pauses its key, so the key is
// resumed before returning the error.
func (c *Client) Publish(ctx context.Context, data []byte, attrs map[string]string) error {
	if c == nil || c.pub == nil {
		return errNotInitialized
	}
	msg := &pubsub.Message{Data: data, Attributes: attrs}
	if c.ordering {
		msg.OrderingKey = orderingKey(attrs)
	}
	if _, err := c.pub.Publish(ctx, msg).Get(ctx); err != nil {
		if msg.OrderingKey != "" {
			c.pub.ResumePublish(msg.OrderingKey)
		}
		return fmt.Errorf("publishing to %q: %w", c.topic, err)
	}
	return nil
}

func orderingKey(attrs map[string]string) string {
	return strings.TrimSpace(attrs[OrderingAttr])
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.gcp == nil {
		return errNotInitialized
	}
	return c.checkTopic(ctx)
}

// Close flushes queued publishes first.
func (c *Client) Close() error {
	if c == nil || c.gcp == nil {
		return nil
	}
	if c.pub != nil {
		c.pub.Stop()
	}
	return c.gcp.Close()
}

// topicResourceName accepts a short topic id or a full projects/<p>/topics/<t> name.
func topicResourceName(projectID, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return ""
	case strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/"):
		return name
	case strings.TrimSpace(projectID) == "":
		return ""
	}
	return "projects/" + strings.TrimSpace(projectID) + "/topics/" + name
}
