package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/events"
	"github.com/jayymeson/loomi-test/internal/models"
	"github.com/jayymeson/loomi-test/internal/outbox"
)

// UserWriteRepository is the identity service's authoritative user store.
// Every mutation commits its outgoing event through the outbox in the same
// transaction.
type UserWriteRepository struct {
	db     *sql.DB
	outbox *outbox.Store
}

func NewUserWriteRepository(db *sql.DB, outboxStore *outbox.Store) *UserWriteRepository {
	return &UserWriteRepository{db: db, outbox: outboxStore}
}

func (r *UserWriteRepository) Create(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO users (id, name, email, agency, account, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.ExecContext(ctx, query,
		user.ID, user.Name, user.Email,
		user.BankingDetails.Agency, user.BankingDetails.Account,
		user.Balance, user.CreatedAt, user.UpdatedAt,
	); err != nil {
		return translateUniqueViolation(err, "failed to create user")
	}

	if err := r.outbox.Add(tx, events.UserExchange, events.UserCreated, userPayload(user)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}
	return nil
}

func (r *UserWriteRepository) Update(ctx context.Context, user *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE users
		SET name = $2, email = $3, agency = $4, account = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := tx.ExecContext(ctx, query,
		user.ID, user.Name, user.Email,
		user.BankingDetails.Agency, user.BankingDetails.Account, user.UpdatedAt,
	)
	if err != nil {
		return translateUniqueViolation(err, "failed to update user")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("user not found")
	}

	if err := r.outbox.Add(tx, events.UserExchange, events.UserUpdated, userPayload(user)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user update: %w", err)
	}
	return nil
}

// Deposit credits the authoritative balance and queues the user.deposit event
// atomically.
func (r *UserWriteRepository) Deposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $2, updated_at = NOW() WHERE id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to apply deposit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("user not found")
	}

	if err := r.outbox.Add(tx, events.UserExchange, events.UserDeposit, events.UserDepositPayload{
		UserID: userID,
		Amount: amount,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deposit: %w", err)
	}
	return nil
}

func (r *UserWriteRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, agency, account, balance, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&user.ID, &user.Name, &user.Email,
		&user.BankingDetails.Agency, &user.BankingDetails.Account,
		&user.Balance, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// ApplyTransferCompleted mirrors a ledger transfer onto the identity-side
// balances: sender down, receiver up, one transaction.
func (r *UserWriteRepository) ApplyTransferCompleted(ctx context.Context, senderID, receiverID string, amount decimal.Decimal) error {
	return r.adjustBalances(ctx, senderID, amount.Neg(), receiverID, amount)
}

// ApplyTransferCanceled reverses a previously mirrored transfer.
func (r *UserWriteRepository) ApplyTransferCanceled(ctx context.Context, senderID, receiverID string, amount decimal.Decimal) error {
	return r.adjustBalances(ctx, senderID, amount, receiverID, amount.Neg())
}

func (r *UserWriteRepository) adjustBalances(ctx context.Context, firstID string, firstDelta decimal.Decimal, secondID string, secondDelta decimal.Decimal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, adj := range []struct {
		id    string
		delta decimal.Decimal
	}{{firstID, firstDelta}, {secondID, secondDelta}} {
		result, err := tx.ExecContext(ctx,
			`UPDATE users SET balance = balance + $2 WHERE id = $1`, adj.id, adj.delta)
		if err != nil {
			return fmt.Errorf("failed to adjust balance for %s: %w", adj.id, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rows == 0 {
			return apperr.NotFound(fmt.Sprintf("user %s not found", adj.id))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit balance adjustment: %w", err)
	}
	return nil
}

func userPayload(user *models.User) events.UserEventPayload {
	p := events.UserEventPayload{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
	}
	p.BankingDetails.Agency = user.BankingDetails.Agency
	p.BankingDetails.Account = user.BankingDetails.Account
	return p
}

func translateUniqueViolation(err error, context string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if strings.Contains(pqErr.Constraint, "email") {
			return apperr.Conflict("email already exists")
		}
		return apperr.Conflict("banking details already in use")
	}
	return fmt.Errorf("%s: %w", context, err)
}
