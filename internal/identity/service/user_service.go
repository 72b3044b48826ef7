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

// UserWriter is the authoritative store contract. Mutations queue their
// events transactionally.
type UserWriter interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Deposit(ctx context.Context, userID string, amount decimal.Decimal) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// UserReader serves the cached read model.
type UserReader interface {
	GetByID(ctx context.Context, userID string) (*models.UserView, error)
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, userID string)
}

type CreateUserInput struct {
	Name           string
	Email          string
	BankingDetails models.BankingDetails
}

type UpdateUserInput struct {
	Name           string
	Email          string
	BankingDetails models.BankingDetails
}

// UserService owns user registration, profile updates and deposits.
type UserService struct {
	writeRepo UserWriter
	readRepo  UserReader
}

func NewUserService(writeRepo UserWriter, readRepo UserReader) *UserService {
	return &UserService{writeRepo: writeRepo, readRepo: readRepo}
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Email:          in.Email,
		BankingDetails: in.BankingDetails,
		Balance:        decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.writeRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.readRepo.CacheUserView(ctx, userToView(user))
	log.Printf("User created: %s", user.ID)
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, userID string, in UpdateUserInput) error {
	user, err := s.writeRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	user.Name = in.Name
	user.Email = in.Email
	user.BankingDetails = in.BankingDetails
	user.UpdatedAt = time.Now().UTC()

	if err := s.writeRepo.Update(ctx, user); err != nil {
		return err
	}

	s.readRepo.CacheUserView(ctx, userToView(user))
	log.Printf("User updated: %s", user.ID)
	return nil
}

func (s *UserService) Deposit(ctx context.Context, userID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.New(apperr.KindValidation, "deposit amount must be greater than zero")
	}

	if err := s.writeRepo.Deposit(ctx, userID, amount); err != nil {
		return err
	}

	s.readRepo.InvalidateUserView(ctx, userID)
	log.Printf("Deposit applied: user=%s amount=%s", userID, amount)
	return nil
}

func (s *UserService) GetUserByID(ctx context.Context, userID string) (*models.UserView, error) {
	return s.readRepo.GetByID(ctx, userID)
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		BankingDetails: u.BankingDetails,
		Balance:        u.Balance,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}
