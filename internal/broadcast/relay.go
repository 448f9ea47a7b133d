package broadcast

import (
	"context"

	pkgredis "github.com/snapwall/snapwall-backend/pkg/redis"
)

// Relay carries messages between API nodes.
type Relay interface {
	Publish(ctx context.Context, channel string, payload any) error
	// Listen streams raw payloads from channel until stop is called or ctx ends.
	Listen(ctx context.Context, channel string) (messages <-chan []byte, stop func() error, err error)
}

// RedisRelay implements Relay on Redis pub/sub.
type RedisRelay struct {
	client *pkgredis.Client
}

func NewRedisRelay(client *pkgredis.Client) *RedisRelay {
	return &RedisRelay{client: client}
}

func (r *RedisRelay) Publish(ctx context.Context, channel string, payload any) error {
	return r.client.Publish(ctx, channel, payload)
}

func (r *RedisRelay) Listen(ctx context.Context, channel string) (<-chan []byte, func() error, error) {
	sub, err := r.client.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}
