package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayymeson/loomi-test/internal/events"
)

type fakeBus struct {
	published []events.Envelope
	err       error
}

func (b *fakeBus) PublishEnvelope(_ context.Context, env events.Envelope, _ any) error {
	if b.err != nil {
		return b.err
	}
	b.published = append(b.published, env)
	return nil
}

const selectPending = `FROM outbox\s+WHERE published_at IS NULL`

func outboxRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "exchange", "routing_key", "payload", "created_at"})
	for _, id := range ids {
		rows.AddRow(id, "user-exchange", "user.created", []byte(`{"id":"user-1"}`), time.Now().UTC())
	}
	return rows
}

func TestDrainPublishesAndMarksRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bus := &fakeBus{}
	relay := NewRelay(db, bus, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(selectPending).
		WithArgs(50).
		WillReturnRows(outboxRows("msg-1", "msg-2"))
	mock.ExpectExec(`UPDATE outbox SET published_at = NOW\(\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, bus.published, 2)
	// The outbox row id becomes the envelope id consumers dedupe on.
	assert.Equal(t, "msg-1", bus.published[0].ID)
	assert.Equal(t, "user-exchange", bus.published[0].Exchange)
	assert.Equal(t, "user.created", bus.published[0].RoutingKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDrainEmptyOutboxIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bus := &fakeBus{}
	relay := NewRelay(db, bus, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(selectPending).
		WithArgs(50).
		WillReturnRows(outboxRows())
	mock.ExpectRollback()

	n, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, bus.published)
}

func TestDrainRollsBackOnPublishFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bus := &fakeBus{err: errors.New("redis down")}
	relay := NewRelay(db, bus, time.Second)

	mock.ExpectBegin()
	mock.ExpectQuery(selectPending).
		WithArgs(50).
		WillReturnRows(outboxRows("msg-1"))
	mock.ExpectRollback()

	_, err = relay.drain(context.Background())
	require.Error(t, err)
	// Row stays unpublished and is retried on the next tick.
	assert.NoError(t, mock.ExpectationsWereMet())
}
