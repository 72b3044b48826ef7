package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/events"
	"github.com/jayymeson/loomi-test/internal/models"
)

// ReplicaUserStore is the slice of the replica repository the consumer needs.
type ReplicaUserStore interface {
	Upsert(ctx context.Context, u *models.ReplicaUser) error
	ApplyDeposit(ctx context.Context, userID string, amount decimal.Decimal) error
}

// UserEventsConsumer mirrors identity-owned user facts into the ledger's
// local replica. Upserts are naturally idempotent; deposits are increments
// and therefore guarded by the deduper.
type UserEventsConsumer struct {
	store ReplicaUserStore
	dedup events.Deduper
}

func NewUserEventsConsumer(store ReplicaUserStore, dedup events.Deduper) *UserEventsConsumer {
	return &UserEventsConsumer{store: store, dedup: dedup}
}

// Bindings is the ledger service's table of (exchange, routingKey, queue)
// subscriptions.
func (c *UserEventsConsumer) Bindings() []events.Binding {
	queue := events.LedgerUserEventsQueue
	return []events.Binding{
		{Exchange: events.UserExchange, RoutingKey: events.UserCreated, Queue: queue, Handler: c.HandleUserUpsert},
		{Exchange: events.UserExchange, RoutingKey: events.UserUpdated, Queue: queue, Handler: c.HandleUserUpsert},
		{Exchange: events.UserExchange, RoutingKey: events.UserDeposit, Queue: queue, Handler: c.HandleUserDeposit},
	}
}

// HandleUserUpsert serves both user.created and user.updated: the replica
// must converge on the same record whichever order they arrive in.
func (c *UserEventsConsumer) HandleUserUpsert(ctx context.Context, env events.Envelope) error {
	var payload events.UserEventPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", env.RoutingKey, err)
	}
	if payload.ID == "" {
		return fmt.Errorf("invalid %s payload: missing user id", env.RoutingKey)
	}

	log.Printf("Event received [%s]: user=%s", env.RoutingKey, payload.ID)
	return c.store.Upsert(ctx, &models.ReplicaUser{
		ID:      payload.ID,
		Name:    payload.Name,
		Email:   payload.Email,
		Agency:  payload.BankingDetails.Agency,
		Account: payload.BankingDetails.Account,
	})
}

func (c *UserEventsConsumer) HandleUserDeposit(ctx context.Context, env events.Envelope) error {
	var payload events.UserDepositPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("invalid user.deposit payload: %w", err)
	}
	if payload.UserID == "" || !payload.Amount.IsPositive() {
		return fmt.Errorf("invalid user.deposit payload: user=%q amount=%s", payload.UserID, payload.Amount)
	}

	first, err := c.dedup.FirstDelivery(ctx, events.LedgerUserEventsQueue, env.ID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("Skipping redelivered user.deposit %s", env.ID)
		return nil
	}

	log.Printf("Event received [user.deposit]: user=%s amount=%s", payload.UserID, payload.Amount)
	return c.store.ApplyDeposit(ctx, payload.UserID, payload.Amount)
}
