package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/events"
)

// MirrorStore adjusts the identity-side balances so they track the ledger's
// authoritative transfer effects.
type MirrorStore interface {
	ApplyTransferCompleted(ctx context.Context, senderID, receiverID string, amount decimal.Decimal) error
	ApplyTransferCanceled(ctx context.Context, senderID, receiverID string, amount decimal.Decimal) error
}

// ViewInvalidator drops stale cached user views after a mirrored balance
// change.
type ViewInvalidator interface {
	InvalidateUserView(ctx context.Context, userID string)
}

// TransactionEventsConsumer keeps the identity service's balances convergent
// with the ledger. Both handlers apply increments, so redeliveries are
// filtered through the deduper before touching storage.
type TransactionEventsConsumer struct {
	store MirrorStore
	views ViewInvalidator
	dedup events.Deduper
}

func NewTransactionEventsConsumer(store MirrorStore, views ViewInvalidator, dedup events.Deduper) *TransactionEventsConsumer {
	return &TransactionEventsConsumer{store: store, views: views, dedup: dedup}
}

func (c *TransactionEventsConsumer) Bindings() []events.Binding {
	queue := events.IdentityTransactionsQueue
	return []events.Binding{
		{Exchange: events.TransactionExchange, RoutingKey: events.TransactionCompleted, Queue: queue, Handler: c.HandleTransactionCompleted},
		{Exchange: events.TransactionExchange, RoutingKey: events.TransactionCanceled, Queue: queue, Handler: c.HandleTransactionCanceled},
	}
}

func (c *TransactionEventsConsumer) HandleTransactionCompleted(ctx context.Context, env events.Envelope) error {
	var payload events.TransactionCompletedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("invalid transaction.completed payload: %w", err)
	}
	if payload.SenderUserID == "" || payload.ReceiverUserID == "" || !payload.Amount.IsPositive() {
		return fmt.Errorf("invalid transaction.completed payload: sender=%q receiver=%q amount=%s",
			payload.SenderUserID, payload.ReceiverUserID, payload.Amount)
	}

	first, err := c.dedup.FirstDelivery(ctx, events.IdentityTransactionsQueue, env.ID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("Skipping redelivered transaction.completed %s", env.ID)
		return nil
	}

	log.Printf("Event received [transaction.completed]: %s -> %s amount=%s",
		payload.SenderUserID, payload.ReceiverUserID, payload.Amount)

	if err := c.store.ApplyTransferCompleted(ctx, payload.SenderUserID, payload.ReceiverUserID, payload.Amount); err != nil {
		return err
	}
	c.views.InvalidateUserView(ctx, payload.SenderUserID)
	c.views.InvalidateUserView(ctx, payload.ReceiverUserID)
	return nil
}

func (c *TransactionEventsConsumer) HandleTransactionCanceled(ctx context.Context, env events.Envelope) error {
	var payload events.TransactionCanceledPayload
	if err := env.DecodePayload(&payload); err != nil {
		return fmt.Errorf("invalid transaction.canceled payload: %w", err)
	}
	if payload.SenderUserID == "" || payload.ReceiverUserID == "" || !payload.Amount.IsPositive() {
		return fmt.Errorf("invalid transaction.canceled payload: sender=%q receiver=%q amount=%s",
			payload.SenderUserID, payload.ReceiverUserID, payload.Amount)
	}

	first, err := c.dedup.FirstDelivery(ctx, events.IdentityTransactionsQueue, env.ID)
	if err != nil {
		return err
	}
	if !first {
		log.Printf("Skipping redelivered transaction.canceled %s", env.ID)
		return nil
	}

	log.Printf("Event received [transaction.canceled]: transaction=%s refund=%s",
		payload.TransactionID, payload.Amount)

	if err := c.store.ApplyTransferCanceled(ctx, payload.SenderUserID, payload.ReceiverUserID, payload.Amount); err != nil {
		return err
	}
	c.views.InvalidateUserView(ctx, payload.SenderUserID)
	c.views.InvalidateUserView(ctx, payload.ReceiverUserID)
	return nil
}
