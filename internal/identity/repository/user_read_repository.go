package repository

import (
	"context"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jayymeson/loomi-test/internal/apperr"
	"github.com/jayymeson/loomi-test/internal/models"
	"github.com/jayymeson/loomi-test/internal/redisclient"
)

// UserReadRepository serves user reads: Redis view cache first, PostgreSQL on
// a miss. Mutating paths refresh or invalidate the cached view.
type UserReadRepository struct {
	db    *sql.DB
	cache *redisclient.ViewCache[models.UserView]
}

func NewUserReadRepository(db *sql.DB, redisClient *goredis.Client) *UserReadRepository {
	return &UserReadRepository{
		db:    db,
		cache: redisclient.NewViewCache[models.UserView](redisClient, "user:view:", 0),
	}
}

func (r *UserReadRepository) GetByID(ctx context.Context, userID string) (*models.UserView, error) {
	if view, ok := r.cache.Get(ctx, userID); ok {
		return view, nil
	}

	var view models.UserView
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, agency, account, balance, created_at, updated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(
		&view.ID, &view.Name, &view.Email,
		&view.BankingDetails.Agency, &view.BankingDetails.Account,
		&view.Balance, &view.CreatedAt, &view.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	r.CacheUserView(ctx, &view)
	return &view, nil
}

// CacheUserView stores or refreshes the Redis read model for a user.
func (r *UserReadRepository) CacheUserView(ctx context.Context, view *models.UserView) {
	r.cache.Set(ctx, view.ID, view)
}

// InvalidateUserView drops the cached view after a balance-changing mutation
// so the next read reflects the authoritative row.
func (r *UserReadRepository) InvalidateUserView(ctx context.Context, userID string) {
	r.cache.Invalidate(ctx, userID)
}
