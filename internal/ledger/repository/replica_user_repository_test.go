package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/models"
)

func newReplicaRepo(t *testing.T) (*ReplicaUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewReplicaUserRepository(db), mock
}

func TestUpsertInsertsWithZeroBalance(t *testing.T) {
	repo, mock := newReplicaRepo(t)

	mock.ExpectExec(`(?s)INSERT INTO users.+ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("user-1", "Ana", "ana@mail.com", "0001", "12345").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.ReplicaUser{
		ID:      "user-1",
		Name:    "Ana",
		Email:   "ana@mail.com",
		Agency:  "0001",
		Account: "12345",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDepositIncrementsBalance(t *testing.T) {
	repo, mock := newReplicaRepo(t)

	mock.ExpectExec(`UPDATE users SET balance = balance \+ \$2 WHERE id = \$1`).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ApplyDeposit(context.Background(), "user-1", decimal.NewFromInt(250)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDepositUnknownUser(t *testing.T) {
	repo, mock := newReplicaRepo(t)

	mock.ExpectExec(`UPDATE users SET balance`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyDeposit(context.Background(), "ghost", decimal.NewFromInt(10))
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
