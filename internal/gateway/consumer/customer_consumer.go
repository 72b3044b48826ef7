package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/jayymeson/loomi-test/internal/events"
	"github.com/jayymeson/loomi-test/internal/gateway/cache"
	"github.com/jayymeson/loomi-test/internal/models"
)

// CustomerEventsConsumer feeds the gateway's in-process customer projection.
// It is the projection's only writer.
type CustomerEventsConsumer struct {
	cache *cache.CustomerCache
}

func NewCustomerEventsConsumer(c *cache.CustomerCache) *CustomerEventsConsumer {
	return &CustomerEventsConsumer{cache: c}
}

func (c *CustomerEventsConsumer) Bindings() []events.Binding {
	queue := events.GatewayCustomerProjectionQueue
	return []events.Binding{
		{Exchange: events.UserExchange, RoutingKey: events.UserCreated, Queue: queue, Handler: c.HandleUserUpsert},
		{Exchange: events.UserExchange, RoutingKey: events.UserUpdated, Queue: queue, Handler: c.HandleUserUpsert},
		{Exchange: events.UserExchange, RoutingKey: events.UserDeposit, Queue: queue, Handler: c.HandleUserDeposit},
	}
}

func (c *CustomerEventsConsumer) HandleUserUpsert(ctx context.Context, env events.Envelope) error {
	var payload events.UserEventPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("invalid %s payload: %w", env.RoutingKey, err)
	}
	if payload.ID == "" {
		return fmt.Errorf("invalid %s payload: missing user id", env.RoutingKey)
	}

	view := models.CustomerView{
		ID:    payload.ID,
		Name:  payload.Name,
		Email: payload.Email,
		BankingDetails: models.BankingDetails{
			Agency:  payload.BankingDetails.Agency,
			Account: payload.BankingDetails.Account,
		},
	}
	// Keep the last known balance when refreshing profile fields.
	if existing, ok := c.cache.Get(payload.ID); ok {
		view.Balance = existing.Balance
	}
	c.cache.Set(view)

	log.Printf("Customer projection updated: %s", payload.ID)
	return nil
}

// HandleUserDeposit bumps the projected balance when the customer is already
// projected. A deposit for an unknown customer is skipped: the balance will
// be carried by a later user.updated projection.
func (c *CustomerEventsConsumer) HandleUserDeposit(ctx context.Context, env events.Envelope) error {
	var payload events.UserDepositPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("invalid user.deposit payload: %w", err)
	}
	if payload.UserID == "" || !payload.Amount.IsPositive() {
		return fmt.Errorf("invalid user.deposit payload: user=%q amount=%s", payload.UserID, payload.Amount)
	}

	view, ok := c.cache.Get(payload.UserID)
	if !ok {
		log.Printf("Deposit for unprojected customer %s, skipping", payload.UserID)
		return nil
	}
	view.Balance = view.Balance.Add(payload.Amount)
	c.cache.Set(view)
	return nil
}
