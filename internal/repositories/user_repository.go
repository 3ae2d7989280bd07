package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository exposes the user fields the delivery layer owns.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	UpdateQuota(ctx context.Context, userID int, day string, remaining int) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT id, username, is_premium, quota_remaining, quota_day FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateQuota persists the user's quota window.
func (r *UserRepo) UpdateQuota(ctx context.Context, userID int, day string, remaining int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET quota_day=$2, quota_remaining=$3 WHERE id=$1`, userID, day, remaining)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
