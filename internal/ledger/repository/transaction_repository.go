package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/events"
	"github.com/jayymeson/loomi-test/internal/models"
	"github.com/jayymeson/loomi-test/internal/outbox"
)

// TransactionRepository is the ledger's write and read store. Every transfer
// mutation runs in a single database transaction: the transaction row, both
// balance updates and the outbox event commit together or not at all.
type TransactionRepository struct {
	db     *sql.DB
	outbox *outbox.Store
}

func NewTransactionRepository(db *sql.DB, outboxStore *outbox.Store) *TransactionRepository {
	return &TransactionRepository{db: db, outbox: outboxStore}
}

// lockBalances locks both parties' rows in deterministic id order so two
// concurrent transfers between the same pair cannot deadlock, and returns the
// locked balances.
func lockBalances(ctx context.Context, tx *sql.Tx, a, b string) (map[string]decimal.Decimal, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}

	balances := make(map[string]decimal.Decimal, 2)
	for _, id := range []string{first, second} {
		var balance decimal.Decimal
		err := tx.QueryRowContext(ctx,
			`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
		if err == sql.ErrNoRows {
			return nil, apperr.NotFound("sender or receiver user not found in ledger service")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock user %s: %w", id, err)
		}
		balances[id] = balance
	}
	return balances, nil
}

// PerformTransfer applies a transfer atomically: funds check against the
// locked sender balance, PENDING transaction row, debit, credit and the
// transaction.completed outbox event. Any failure rolls everything back.
func (r *TransactionRepository) PerformTransfer(ctx context.Context, t *models.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transfer tx: %w", err)
	}
	defer tx.Rollback()

	balances, err := lockBalances(ctx, tx, t.SenderUserID, t.ReceiverUserID)
	if err != nil {
		return err
	}

	if balances[t.SenderUserID].LessThan(t.Amount) {
		return apperr.InsufficientFunds(fmt.Sprintf(
			"insufficient funds: user %s has balance %s, required %s",
			t.SenderUserID, balances[t.SenderUserID], t.Amount))
	}

	insert := `
		INSERT INTO transactions (id, sender_user_id, receiver_user_id, amount, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.ExecContext(ctx, insert,
		t.ID, t.SenderUserID, t.ReceiverUserID, t.Amount,
		nullString(t.Description), t.Status, t.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id = $1`, t.SenderUserID, t.Amount); err != nil {
		return fmt.Errorf("failed to debit sender: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`, t.ReceiverUserID, t.Amount); err != nil {
		return fmt.Errorf("failed to credit receiver: %w", err)
	}

	if err := r.outbox.Add(tx, events.TransactionExchange, events.TransactionCompleted,
		events.TransactionCompletedPayload{
			ID:             t.ID,
			SenderUserID:   t.SenderUserID,
			ReceiverUserID: t.ReceiverUserID,
			Amount:         t.Amount,
		}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// CancelTransfer compensates a PENDING transfer: credit the sender back,
// debit the receiver, flip the status to CANCELED and queue the
// transaction.canceled event — all in one transaction.
func (r *TransactionRepository) CancelTransfer(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin cancel tx: %w", err)
	}
	defer tx.Rollback()

	var t models.Transaction
	var description sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT id, sender_user_id, receiver_user_id, amount, description, status, created_at
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, transactionID).Scan(
		&t.ID, &t.SenderUserID, &t.ReceiverUserID, &t.Amount, &description, &t.Status, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	if description.Valid {
		t.Description = description.String
	}

	if t.Status != models.StatusPending {
		return nil, apperr.InvalidTransactionState(fmt.Sprintf(
			"transaction cannot be canceled because it is already %s", t.Status))
	}

	if _, err := lockBalances(ctx, tx, t.SenderUserID, t.ReceiverUserID); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id = $1`, t.SenderUserID, t.Amount); err != nil {
		return nil, fmt.Errorf("failed to credit sender: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id = $1`, t.ReceiverUserID, t.Amount); err != nil {
		return nil, fmt.Errorf("failed to debit receiver: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1`, t.ID, models.StatusCanceled); err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	if err := r.outbox.Add(tx, events.TransactionExchange, events.TransactionCanceled,
		events.TransactionCanceledPayload{
			TransactionID:  t.ID,
			SenderUserID:   t.SenderUserID,
			ReceiverUserID: t.ReceiverUserID,
			Amount:         t.Amount,
		}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	t.Status = models.StatusCanceled
	return &t, nil
}

const transactionColumns = `id, sender_user_id, receiver_user_id, amount, description, status, created_at`

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var t models.Transaction
	var description sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, transactionID).Scan(
		&t.ID, &t.SenderUserID, &t.ReceiverUserID, &t.Amount, &description, &t.Status, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if description.Valid {
		t.Description = description.String
	}
	return &t, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE sender_user_id = $1 OR receiver_user_id = $1
		ORDER BY created_at DESC
	`
	return r.queryTransactions(ctx, query, userID)
}

func (r *TransactionRepository) ListRecent(ctx context.Context, days int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE created_at >= NOW() - ($1 * INTERVAL '1 day')
		ORDER BY created_at DESC
	`
	return r.queryTransactions(ctx, query, days)
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, arg any) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var description sql.NullString
		if err := rows.Scan(
			&t.ID, &t.SenderUserID, &t.ReceiverUserID, &t.Amount, &description, &t.Status, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if description.Valid {
			t.Description = description.String
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
