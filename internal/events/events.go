package events

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Exchanges are Redis stream keys. A queue is a consumer group on one
// exchange; routing keys address handlers within a queue.
const (
	UserExchange        = "user-exchange"
	TransactionExchange = "transaction-exchange"
)

// Routing keys
const (
	UserCreated          = "user.created"
	UserUpdated          = "user.updated"
	UserDeposit          = "user.deposit"
	TransactionCompleted = "transaction.completed"
	TransactionCanceled  = "transaction.canceled"
)

// Queue names (one durable consumer group per consuming service and exchange)
const (
	LedgerUserEventsQueue          = "transaction-user-events"
	IdentityTransactionsQueue      = "user-transaction-events"
	GatewayCustomerProjectionQueue = "gateway-user-events"
)

// Envelope wraps every published payload. ID is the idempotency key consumers
// dedupe on; delivery is at-least-once.
type Envelope struct {
	ID         string          `json:"id"`
	Exchange   string          `json:"exchange"`
	RoutingKey string          `json:"routingKey"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// DecodePayload unmarshals the envelope payload into v.
func (e Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// UserEventPayload is published on user.created and user.updated.
type UserEventPayload struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	BankingDetails struct {
		Agency  string `json:"agency"`
		Account string `json:"account"`
	} `json:"bankingDetails"`
}

type UserDepositPayload struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

type TransactionCompletedPayload struct {
	ID             string          `json:"id"`
	SenderUserID   string          `json:"senderUserId"`
	ReceiverUserID string          `json:"receiverUserId"`
	Amount         decimal.Decimal `json:"amount"`
}

// TransactionCanceledPayload carries both parties so the identity mirror can
// reverse the transfer on each side.
type TransactionCanceledPayload struct {
	TransactionID  string          `json:"transactionId"`
	SenderUserID   string          `json:"senderUserId"`
	ReceiverUserID string          `json:"receiverUserId"`
	Amount         decimal.Decimal `json:"amount"`
}
