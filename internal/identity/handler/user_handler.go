package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/identity/service"
	"github.com/jayymeson/loomi-test/internal/middleware"
	"github.com/jayymeson/loomi-test/internal/models"
)

// Users defines the operations used by UserHandler.
type Users interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, in service.UpdateUserInput) error
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) error
	GetUserByID(ctx context.Context, userID string) (*models.UserView, error)
}

type UserHandler struct {
	users Users
}

func NewUserHandler(users Users) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(r gin.IRouter) {
	v1 := r.Group("/v1/users")
	{
		v1.POST("", h.CreateUser)
		v1.GET("/:userId", h.GetUser)
		v1.PATCH("/:userId", h.UpdateUser)
		v1.POST("/:userId/deposit", h.Deposit)
	}
}

type CreateUserRequest struct {
	Name           string                `json:"name" validate:"required"`
	Email          string                `json:"email" validate:"required,email"`
	BankingDetails models.BankingDetails `json:"bankingDetails" validate:"required"`
}

type UpdateUserRequest struct {
	Name           string                `json:"name" validate:"required"`
	Email          string                `json:"email" validate:"required,email"`
	BankingDetails models.BankingDetails `json:"bankingDetails" validate:"required"`
}

type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), service.CreateUserInput{
		Name:           req.Name,
		Email:          req.Email,
		BankingDetails: req.BankingDetails,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	view, err := h.users.GetUserByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	if err := h.users.UpdateUser(c.Request.Context(), c.Param("userId"), service.UpdateUserInput{
		Name:           req.Name,
		Email:          req.Email,
		BankingDetails: req.BankingDetails,
	}); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}

	if err := h.users.Deposit(c.Request.Context(), c.Param("userId"), req.Amount); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
