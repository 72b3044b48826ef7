package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayymeson/loomi-test/internal/events"
	"github.com/jayymeson/loomi-test/internal/models"
)

// memReplicaStore mimics the upsert / increment semantics of the replica
// repository so convergence can be asserted end to end.
type memReplicaStore struct {
	users    map[string]*models.ReplicaUser
	deposits int
}

func newMemReplicaStore() *memReplicaStore {
	return &memReplicaStore{users: make(map[string]*models.ReplicaUser)}
}

func (s *memReplicaStore) Upsert(_ context.Context, u *models.ReplicaUser) error {
	if existing, ok := s.users[u.ID]; ok {
		existing.Name = u.Name
		existing.Email = u.Email
		existing.Agency = u.Agency
		existing.Account = u.Account
		return nil
	}
	clone := *u
	clone.Balance = decimal.Zero
	s.users[u.ID] = &clone
	return nil
}

func (s *memReplicaStore) ApplyDeposit(_ context.Context, userID string, amount decimal.Decimal) error {
	s.deposits++
	s.users[userID].Balance = s.users[userID].Balance.Add(amount)
	return nil
}

type memDeduper struct {
	seen map[string]bool
}

func (d *memDeduper) FirstDelivery(_ context.Context, queue, envelopeID string) (bool, error) {
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	key := queue + ":" + envelopeID
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

func userEnvelope(t *testing.T, id, routingKey string, payload any) events.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return events.Envelope{
		ID:         id,
		Exchange:   events.UserExchange,
		RoutingKey: routingKey,
		Payload:    raw,
	}
}

func userPayload(id, name string) events.UserEventPayload {
	p := events.UserEventPayload{ID: id, Name: name, Email: name + "@mail.com"}
	p.BankingDetails.Agency = "0001"
	p.BankingDetails.Account = "12345"
	return p
}

func TestHandleUserUpsertRedeliveryConverges(t *testing.T) {
	store := newMemReplicaStore()
	c := NewUserEventsConsumer(store, &memDeduper{})

	env := userEnvelope(t, "env-1", events.UserCreated, userPayload("user-1", "Ana"))
	require.NoError(t, c.HandleUserUpsert(context.Background(), env))
	require.NoError(t, c.HandleUserUpsert(context.Background(), env))

	require.Len(t, store.users, 1)
	assert.Equal(t, "Ana", store.users["user-1"].Name)
}

func TestHandleUserUpsertToleratesUpdatedBeforeCreated(t *testing.T) {
	store := newMemReplicaStore()
	c := NewUserEventsConsumer(store, &memDeduper{})

	updated := userEnvelope(t, "env-2", events.UserUpdated, userPayload("user-1", "Ana Maria"))
	created := userEnvelope(t, "env-1", events.UserCreated, userPayload("user-1", "Ana"))

	require.NoError(t, c.HandleUserUpsert(context.Background(), updated))
	require.NoError(t, c.HandleUserUpsert(context.Background(), created))

	require.Len(t, store.users, 1)
	// Last event applied wins on profile fields; a real deployment converges
	// once the final event lands.
	assert.Equal(t, "Ana", store.users["user-1"].Name)
	assert.Equal(t, "0001", store.users["user-1"].Agency)
}

func TestHandleUserUpsertRejectsMissingID(t *testing.T) {
	store := newMemReplicaStore()
	c := NewUserEventsConsumer(store, &memDeduper{})

	env := userEnvelope(t, "env-1", events.UserCreated, userPayload("", "Ana"))
	require.Error(t, c.HandleUserUpsert(context.Background(), env))
	assert.Empty(t, store.users)
}

func TestHandleUserDepositAppliedOnce(t *testing.T) {
	store := newMemReplicaStore()
	c := NewUserEventsConsumer(store, &memDeduper{})

	created := userEnvelope(t, "env-1", events.UserCreated, userPayload("user-1", "Ana"))
	require.NoError(t, c.HandleUserUpsert(context.Background(), created))

	deposit := userEnvelope(t, "env-2", events.UserDeposit, events.UserDepositPayload{
		UserID: "user-1",
		Amount: decimal.NewFromInt(250),
	})
	require.NoError(t, c.HandleUserDeposit(context.Background(), deposit))
	// Same envelope ID redelivered: the increment must not run twice.
	require.NoError(t, c.HandleUserDeposit(context.Background(), deposit))

	assert.Equal(t, 1, store.deposits)
	assert.True(t, store.users["user-1"].Balance.Equal(decimal.NewFromInt(250)))
}

func TestHandleUserDepositRejectsBadPayload(t *testing.T) {
	store := newMemReplicaStore()
	c := NewUserEventsConsumer(store, &memDeduper{})

	tests := []struct {
		name    string
		payload events.UserDepositPayload
	}{
		{"missing user", events.UserDepositPayload{Amount: decimal.NewFromInt(10)}},
		{"zero amount", events.UserDepositPayload{UserID: "user-1"}},
		{"negative amount", events.UserDepositPayload{UserID: "user-1", Amount: decimal.NewFromInt(-10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := userEnvelope(t, "env-x", events.UserDeposit, tt.payload)
			require.Error(t, c.HandleUserDeposit(context.Background(), env))
		})
	}
	assert.Zero(t, store.deposits)
}

func TestBindingsCoverAllUserRoutingKeys(t *testing.T) {
	c := NewUserEventsConsumer(newMemReplicaStore(), &memDeduper{})

	keys := make(map[string]bool)
	for _, b := range c.Bindings() {
		assert.Equal(t, events.UserExchange, b.Exchange)
		assert.Equal(t, events.LedgerUserEventsQueue, b.Queue)
		keys[b.RoutingKey] = true
	}
	assert.Equal(t, map[string]bool{
		events.UserCreated: true,
		events.UserUpdated: true,
		events.UserDeposit: true,
	}, keys)
}
