package redis

import "strings"

const (
	keyNamespace      = "sw"
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rl"
)

// Key joins non-empty parts under the shared namespace: Key("rl", "upload") is "sw:rl:upload".
func Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// IdempotencyKey namespaces a caller scope and client supplied key.
func (c *Client) IdempotencyKey(scope, id string) string {
	return Key(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return Key(rateLimitPrefix, scope)
}
