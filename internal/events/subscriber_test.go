package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscribersGroupsByExchangeAndQueue(t *testing.T) {
	noop := func(context.Context, Envelope) error { return nil }

	bindings := []Binding{
		{Exchange: UserExchange, RoutingKey: UserCreated, Queue: LedgerUserEventsQueue, Handler: noop},
		{Exchange: UserExchange, RoutingKey: UserUpdated, Queue: LedgerUserEventsQueue, Handler: noop},
		{Exchange: UserExchange, RoutingKey: UserDeposit, Queue: LedgerUserEventsQueue, Handler: noop},
		{Exchange: TransactionExchange, RoutingKey: TransactionCompleted, Queue: IdentityTransactionsQueue, Handler: noop},
	}

	subs := NewSubscribers(nil, "worker-1", bindings)
	require.Len(t, subs, 2, "bindings on the same exchange and queue share one subscriber")

	byExchange := make(map[string]*Subscriber)
	for _, s := range subs {
		byExchange[s.exchange] = s
	}
	assert.Len(t, byExchange[UserExchange].handlers, 3)
	assert.Len(t, byExchange[TransactionExchange].handlers, 1)
	assert.Equal(t, "worker-1", byExchange[UserExchange].consumer)
}

func streamMessage(t *testing.T, env Envelope) redis.XMessage {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return redis.XMessage{
		ID:     "1-0",
		Values: map[string]any{"envelope": string(raw)},
	}
}

func TestProcessMessageDispatchesByRoutingKey(t *testing.T) {
	var handled []string
	record := func(key string) Handler {
		return func(_ context.Context, env Envelope) error {
			handled = append(handled, key+":"+env.ID)
			return nil
		}
	}

	subs := NewSubscribers(nil, "worker-1", []Binding{
		{Exchange: UserExchange, RoutingKey: UserCreated, Queue: LedgerUserEventsQueue, Handler: record("created")},
		{Exchange: UserExchange, RoutingKey: UserDeposit, Queue: LedgerUserEventsQueue, Handler: record("deposit")},
	})
	require.Len(t, subs, 1)
	sub := subs[0]

	env := Envelope{
		ID:         "env-1",
		Exchange:   UserExchange,
		RoutingKey: UserDeposit,
		Payload:    json.RawMessage(`{}`),
	}
	require.NoError(t, sub.processMessage(context.Background(), streamMessage(t, env)))
	assert.Equal(t, []string{"deposit:env-1"}, handled)
}

func TestProcessMessageSkipsUnboundRoutingKey(t *testing.T) {
	called := false
	subs := NewSubscribers(nil, "worker-1", []Binding{
		{Exchange: UserExchange, RoutingKey: UserCreated, Queue: LedgerUserEventsQueue,
			Handler: func(context.Context, Envelope) error { called = true; return nil }},
	})
	sub := subs[0]

	env := Envelope{
		ID:         "env-1",
		Exchange:   UserExchange,
		RoutingKey: UserUpdated,
		Payload:    json.RawMessage(`{}`),
	}
	require.NoError(t, sub.processMessage(context.Background(), streamMessage(t, env)))
	assert.False(t, called)
}

func TestProcessMessagePropagatesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	subs := NewSubscribers(nil, "worker-1", []Binding{
		{Exchange: UserExchange, RoutingKey: UserCreated, Queue: LedgerUserEventsQueue,
			Handler: func(context.Context, Envelope) error { return boom }},
	})
	sub := subs[0]

	env := Envelope{ID: "env-1", RoutingKey: UserCreated, Payload: json.RawMessage(`{}`)}
	err := sub.processMessage(context.Background(), streamMessage(t, env))
	assert.ErrorIs(t, err, boom)
}

func TestProcessMessageRejectsMalformedMessage(t *testing.T) {
	subs := NewSubscribers(nil, "worker-1", []Binding{
		{Exchange: UserExchange, RoutingKey: UserCreated, Queue: LedgerUserEventsQueue,
			Handler: func(context.Context, Envelope) error { return nil }},
	})
	sub := subs[0]

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing envelope field", map[string]any{"other": "x"}},
		{"invalid json", map[string]any{"envelope": "{not json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := redis.XMessage{ID: "1-0", Values: tt.values}
			assert.Error(t, sub.processMessage(context.Background(), msg))
		})
	}
}

func TestEnvelopeDecodePayload(t *testing.T) {
	env := Envelope{Payload: json.RawMessage(`{"userId":"user-1","amount":"12.50"}`)}

	var payload UserDepositPayload
	require.NoError(t, env.DecodePayload(&payload))
	assert.Equal(t, "user-1", payload.UserID)
	assert.Equal(t, "12.5", payload.Amount.String())
}
