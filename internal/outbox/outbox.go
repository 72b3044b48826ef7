// Package outbox persists events in the same database transaction as the
// business mutation they describe, closing the dual-write gap between a local
// commit and the event bus. A Relay per service drains unpublished rows onto
// the bus.
package outbox

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is one pending outbox row. ID doubles as the bus envelope ID, so a
// row relayed twice is deduplicated by consumers.
type Message struct {
	ID         string
	Exchange   string
	RoutingKey string
	Payload    []byte
	CreatedAt  time.Time
}

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// Add inserts an outbox row inside the caller's transaction. The event only
// becomes publishable if the surrounding transaction commits.
func (s *Store) Add(tx *sql.Tx, exchange, routingKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, exchange, routing_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.Exec(query, uuid.NewString(), exchange, routingKey, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert outbox row: %w", err)
	}
	return nil
}
