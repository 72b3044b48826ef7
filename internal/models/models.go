package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction status values. PENDING is the posted, reversible state set at
// creation; CANCELED is terminal. A transaction leaves PENDING only through
// cancellation.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusCanceled  = "CANCELED"
)

type BankingDetails struct {
	Agency  string `json:"agency" validate:"required"`
	Account string `json:"account" validate:"required"`
}

// User is the identity service's write model. Balance is authoritative here
// for deposits; transfer-side mutations arrive via transaction events.
type User struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	BankingDetails BankingDetails  `json:"bankingDetails"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type Transaction struct {
	ID             string          `json:"id"`
	SenderUserID   string          `json:"senderUserId"`
	ReceiverUserID string          `json:"receiverUserId"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description,omitempty"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ReplicaUser is a non-authoritative projection of a user, kept current only
// by consuming events. It never gates an exact financial decision.
type ReplicaUser struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Agency  string          `json:"agency"`
	Account string          `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}
