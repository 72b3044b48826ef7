package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/ledger/service"
	"github.com/jayymeson/loomi-test/internal/middleware"
	"github.com/jayymeson/loomi-test/internal/models"
)

// Transactions defines the operations used by TransactionHandler.
type Transactions interface {
	CreateTransaction(ctx context.Context, in service.CreateTransactionInput) (*models.Transaction, error)
	CancelTransaction(ctx context.Context, transactionID string) error
	GetTransactionByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	GetTransactionsByUserID(ctx context.Context, userID string) ([]models.Transaction, error)
	GetRecentTransactions(ctx context.Context, days int) ([]models.Transaction, error)
}

type TransactionHandler struct {
	transactions Transactions
}

func NewTransactionHandler(transactions Transactions) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func (h *TransactionHandler) Register(r gin.IRouter) {
	v1 := r.Group("/v1/transactions")
	{
		v1.POST("", h.CreateTransaction)
		v1.GET("/:id", h.GetTransaction)
		v1.GET("/user/:userId", h.ListByUser)
		v1.GET("/recent/:days", h.ListRecent)
		v1.PATCH("/:id/cancel", h.CancelTransaction)
	}
}

type CreateTransactionRequest struct {
	SenderUserID   string          `json:"senderUserId" validate:"required"`
	ReceiverUserID string          `json:"receiverUserId" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
}

func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	transaction, err := h.transactions.CreateTransaction(c.Request.Context(), service.CreateTransactionInput{
		SenderUserID:   req.SenderUserID,
		ReceiverUserID: req.ReceiverUserID,
		Amount:         req.Amount,
		Description:    req.Description,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, transaction)
}

func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	transaction, err := h.transactions.GetTransactionByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, transaction)
}

func (h *TransactionHandler) ListByUser(c *gin.Context) {
	transactions, err := h.transactions.GetTransactionsByUserID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) ListRecent(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil {
		apperr.Respond(c, apperr.New(apperr.KindValidation, "days must be an integer"))
		return
	}

	transactions, err := h.transactions.GetRecentTransactions(c.Request.Context(), days)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	c.JSON(http.StatusOK, transactions)
}

func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	if err := h.transactions.CancelTransaction(c.Request.Context(), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
