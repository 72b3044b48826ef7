package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Publisher appends envelopes to the exchange stream. Business code never
// calls it directly for state-changing events: those go through the outbox
// relay so the local commit and the publish cannot diverge.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, payload any) error {
	return p.PublishEnvelope(ctx, Envelope{
		ID:         uuid.NewString(),
		Exchange:   exchange,
		RoutingKey: routingKey,
		Timestamp:  time.Now().UTC(),
	}, payload)
}

// PublishEnvelope publishes with a caller-supplied envelope identity. The
// outbox relay uses it so a redelivered outbox row keeps its original ID and
// stays deduplicable downstream.
func (p *Publisher) PublishEnvelope(ctx context.Context, env Envelope, payload any) error {
	if env.Payload == nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		env.Payload = raw
	}

	envJSON, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: env.Exchange,
		Values: map[string]any{
			"envelope": envJSON,
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish %s on %s: %w", env.RoutingKey, env.Exchange, err)
	}
	return nil
}
