package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Handler func(ctx context.Context, env Envelope) error

// Binding maps (exchange, routingKey, queue) to a handler. Each service
// declares its full binding table at startup and hands it to NewSubscribers.
type Binding struct {
	Exchange   string
	RoutingKey string
	Queue      string
	Handler    Handler
}

// Subscriber owns one durable consumer group (queue) on one exchange stream
// and dispatches envelopes to handlers by routing key. Envelopes are acked
// whether or not the handler succeeds: a failed handler is logged and the
// message dropped, never retried or dead-lettered.
type Subscriber struct {
	client        *redis.Client
	exchange      string
	queue         string
	consumer      string
	handlers      map[string]Handler
	batchSize     int64
	blockDuration time.Duration
}

// NewSubscribers groups a binding table into one Subscriber per
// (exchange, queue) pair. Bindings on the same queue share a consumer group.
func NewSubscribers(client *redis.Client, consumer string, bindings []Binding) []*Subscriber {
	type key struct{ exchange, queue string }

	byQueue := make(map[key]*Subscriber)
	var subs []*Subscriber
	for _, b := range bindings {
		k := key{b.Exchange, b.Queue}
		sub, ok := byQueue[k]
		if !ok {
			sub = &Subscriber{
				client:        client,
				exchange:      b.Exchange,
				queue:         b.Queue,
				consumer:      consumer,
				handlers:      make(map[string]Handler),
				batchSize:     10,
				blockDuration: 5 * time.Second,
			}
			byQueue[k] = sub
			subs = append(subs, sub)
		}
		sub.handlers[b.RoutingKey] = b.Handler
	}
	return subs
}

func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.exchange, s.queue, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Printf("Subscriber started: exchange=%s, queue=%s, consumer=%s", s.exchange, s.queue, s.consumer)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Subscriber stopping: exchange=%s, queue=%s", s.exchange, s.queue)
			return ctx.Err()
		default:
			if err := s.readMessages(ctx); err != nil {
				log.Printf("Error reading messages: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.queue,
		Consumer: s.consumer,
		Streams:  []string{s.exchange, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if err == redis.Nil {
		return nil // No messages
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := s.processMessage(ctx, message); err != nil {
				log.Printf("Dropping message %s on %s/%s: %v", message.ID, s.exchange, s.queue, err)
			}
			if err := s.client.XAck(ctx, s.exchange, s.queue, message.ID).Err(); err != nil {
				log.Printf("Failed to ACK message %s: %v", message.ID, err)
			}
		}
	}
	return nil
}

func (s *Subscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	raw, ok := message.Values["envelope"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	handler, ok := s.handlers[env.RoutingKey]
	if !ok {
		// Unbound routing key on this queue, skip silently.
		return nil
	}
	return handler(ctx, env)
}
