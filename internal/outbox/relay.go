package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/jayymeson/loomi-test/internal/events"
)

// BusPublisher is the slice of events.Publisher the relay needs.
type BusPublisher interface {
	PublishEnvelope(ctx context.Context, env events.Envelope, payload any) error
}

// Relay polls the outbox table and pushes pending rows onto the event bus.
// Rows are locked with SKIP LOCKED so several relay instances can share a
// table; a failed publish rolls the batch back and the rows are retried on
// the next tick (at-least-once, deduped downstream by envelope ID).
type Relay struct {
	db        *sql.DB
	bus       BusPublisher
	interval  time.Duration
	batchSize int
}

func NewRelay(db *sql.DB, bus BusPublisher, interval time.Duration) *Relay {
	if interval == 0 {
		interval = time.Second
	}
	return &Relay{db: db, bus: bus, interval: interval, batchSize: 50}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Outbox relay stopping")
			return
		case <-ticker.C:
			if n, err := r.drain(ctx); err != nil {
				log.Printf("Outbox relay: %v", err)
			} else if n > 0 {
				log.Printf("Outbox relay: published %d event(s)", n)
			}
		}
	}
}

func (r *Relay) drain(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin outbox tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, exchange, routing_key, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to query outbox: %w", err)
	}

	var batch []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Exchange, &m.RoutingKey, &m.Payload, &m.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		batch = append(batch, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read outbox rows: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(batch))
	for _, m := range batch {
		env := events.Envelope{
			ID:         m.ID,
			Exchange:   m.Exchange,
			RoutingKey: m.RoutingKey,
			Timestamp:  m.CreatedAt,
			Payload:    m.Payload,
		}
		if err := r.bus.PublishEnvelope(ctx, env, nil); err != nil {
			return 0, fmt.Errorf("failed to publish outbox row %s: %w", m.ID, err)
		}
		ids = append(ids, m.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return 0, fmt.Errorf("failed to mark outbox rows published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit outbox tx: %w", err)
	}
	return len(batch), nil
}
