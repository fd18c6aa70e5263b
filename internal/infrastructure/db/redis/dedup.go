package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/boostly/boosting-marketplace/internal/api/metrics"
	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

const defaultNonceTTL = 10 * time.Minute

// MessageDedup suppresses chat resends that reuse a client nonce.
// Key format: chat:nonce:<sender_id>:<nonce>, value: the stored message as JSON.
type MessageDedup struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.MessageDeduplicator = (*MessageDedup)(nil)

// NewMessageDedup wraps client. A non-positive ttl falls back to ten minutes.
func NewMessageDedup(client *redis.Client, ttl time.Duration) *MessageDedup {
	if ttl <= 0 {
		ttl = defaultNonceTTL
	}
	return &MessageDedup{client: client, ttl: ttl}
}

// Seen returns the message previously sent by senderID with nonce.
func (d *MessageDedup) Seen(ctx context.Context, senderID, nonce string) (*domain.Message, bool, error) {
	raw, err := d.client.Get(ctx, nonceKey(senderID, nonce)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ChatDedupTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("dedup check: %w", err)
	}

	msg, err := decodeMessage(raw)
	if err != nil {
		return nil, false, fmt.Errorf("dedup decode: %w", err)
	}
	metrics.ChatDedupTotal.WithLabelValues("hit").Inc()
	return msg, true, nil
}

// Remember records msg under its sender and nonce until the TTL expires.
func (d *MessageDedup) Remember(ctx context.Context, nonce string, msg *domain.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("dedup encode: %w", err)
	}
	return d.client.Set(ctx, nonceKey(msg.SenderID, nonce), raw, d.ttl).Err()
}

func nonceKey(senderID, nonce string) string {
	return fmt.Sprintf("chat:nonce:%s:%s", senderID, nonce)
}

func decodeMessage(raw []byte) (*domain.Message, error) {
	var msg domain.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
