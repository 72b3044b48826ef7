package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/models"
)

// ReplicaUserRepository maintains the ledger's local copy of identity-owned
// user facts. It is written only by event consumers; transfer mutations go
// through TransactionRepository.
type ReplicaUserRepository struct {
	db *sql.DB
}

func NewReplicaUserRepository(db *sql.DB) *ReplicaUserRepository {
	return &ReplicaUserRepository{db: db}
}

// Upsert applies a user.created or user.updated fact. The same statement
// serves both because cross-queue ordering is not guaranteed: an update
// arriving before the create still converges on a single record. The balance
// column is left untouched on conflict so replays cannot reset funds.
func (r *ReplicaUserRepository) Upsert(ctx context.Context, u *models.ReplicaUser) error {
	query := `
		INSERT INTO users (id, name, email, agency, account, balance)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			email = EXCLUDED.email,
			agency = EXCLUDED.agency,
			account = EXCLUDED.account
	`
	if _, err := r.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.Agency, u.Account); err != nil {
		return fmt.Errorf("failed to upsert replica user: %w", err)
	}
	return nil
}

// ApplyDeposit increments the mirrored balance. Callers dedupe on the
// envelope ID first: this is an increment, not an idempotent set.
func (r *ReplicaUserRepository) ApplyDeposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to apply deposit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound(fmt.Sprintf("user %s not found in ledger replica", userID))
	}
	return nil
}

func (r *ReplicaUserRepository) GetByID(ctx context.Context, userID string) (*models.ReplicaUser, error) {
	var u models.ReplicaUser
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, agency, account, balance FROM users WHERE id = $1`, userID).Scan(
		&u.ID, &u.Name, &u.Email, &u.Agency, &u.Account, &u.Balance,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get replica user: %w", err)
	}
	return &u, nil
}
