package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserView is the read-optimised projection of a user served by the identity
// service's query path and cached in Redis.
type UserView struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	BankingDetails BankingDetails  `json:"bankingDetails"`
	Balance        decimal.Decimal `json:"balance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CustomerView is the gateway's event-fed projection. It carries only the
// fields published on the user exchange.
type CustomerView struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	BankingDetails BankingDetails  `json:"bankingDetails"`
	Balance        decimal.Decimal `json:"balance"`
}
