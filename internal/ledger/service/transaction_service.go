package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/models"
)

// TransactionStore is the atomic storage contract the service relies on.
// PerformTransfer and CancelTransfer must be all-or-nothing: transaction row,
// both balance mutations and the outbox event commit together.
type TransactionStore interface {
	PerformTransfer(ctx context.Context, t *models.Transaction) error
	CancelTransfer(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListByUserID(ctx context.Context, userID string) ([]models.Transaction, error)
	ListRecent(ctx context.Context, days int) ([]models.Transaction, error)
}

type CreateTransactionInput struct {
	SenderUserID   string
	ReceiverUserID string
	Amount         decimal.Decimal
	Description    string
}

// TransactionService validates transfer requests and drives the transaction
// state machine. A transaction is created PENDING (posted, reversible) and
// only ever leaves that state through cancellation.
type TransactionService struct {
	store TransactionStore
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{store: store}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*models.Transaction, error) {
	if in.SenderUserID == in.ReceiverUserID {
		return nil, apperr.InvalidTransaction("sender and receiver must be different users")
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.InvalidTransaction("amount must be greater than zero")
	}

	transaction := &models.Transaction{
		ID:             uuid.NewString(),
		SenderUserID:   in.SenderUserID,
		ReceiverUserID: in.ReceiverUserID,
		Amount:         in.Amount,
		Description:    in.Description,
		Status:         models.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.PerformTransfer(ctx, transaction); err != nil {
		return nil, err
	}

	log.Printf("Transfer %s posted: %s -> %s amount=%s",
		transaction.ID, in.SenderUserID, in.ReceiverUserID, in.Amount)
	return transaction, nil
}

// CancelTransaction compensates a PENDING transfer. This is a logical
// reversal, not a rollback: it re-credits the sender and re-debits the
// receiver by the original amount.
func (s *TransactionService) CancelTransaction(ctx context.Context, transactionID string) error {
	transaction, err := s.store.CancelTransfer(ctx, transactionID)
	if err != nil {
		return err
	}
	log.Printf("Transfer %s canceled: %s refunded %s",
		transaction.ID, transaction.SenderUserID, transaction.Amount)
	return nil
}

func (s *TransactionService) GetTransactionByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.store.GetByID(ctx, transactionID)
}

func (s *TransactionService) GetTransactionsByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.store.ListByUserID(ctx, userID)
}

func (s *TransactionService) GetRecentTransactions(ctx context.Context, days int) ([]models.Transaction, error) {
	if days <= 0 {
		return nil, apperr.New(apperr.KindValidation, "days must be greater than zero")
	}
	return s.store.ListRecent(ctx, days)
}
