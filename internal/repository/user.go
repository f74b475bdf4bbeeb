package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/talksyhq/talksy/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("email or username already taken")
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)
	ByVerifyToken(ctx context.Context, token string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) error
	SetVerifyToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	RedeemVerifyToken(ctx context.Context, token string, now time.Time) (*model.User, error)
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// isUniqueViolation detects unique constraint errors from both SQLite and PostgreSQL.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, username, name, about, password_hash, avatar_path, is_verified, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.Name,
		user.About,
		user.PasswordHash,
		user.AvatarPath,
		user.IsVerified,
		user.CreatedAt,
	)
	if isUniqueViolation(err) {
		// The constraint is the final arbiter: two concurrent registrations
		// can both pass the existence pre-check, only one insert commits.
		return ErrDuplicateUser
	}

	return err
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

// ByEmailOrUsername is the single existence query used by registration.
func (r *userRepository) ByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE email = $1 OR username = $2 LIMIT 1`

	err := r.db.GetContext(ctx, user, query, email, username)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByVerifyToken(ctx context.Context, token string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT * FROM users WHERE verify_token = $1`, token)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) UpdateProfile(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET name = $1, about = $2, username = $3, avatar_path = $4 WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		user.Name,
		user.About,
		user.Username,
		user.AvatarPath,
		user.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetVerifyToken stores a new pending verification token, overwriting any
// prior one. At most one live token per user.
func (r *userRepository) SetVerifyToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	query := `UPDATE users SET verify_token = $1, verify_expires_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, token, expiresAt, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// RedeemVerifyToken atomically marks the user verified and clears the token.
// The conditional UPDATE is a single database operation, so two requests
// racing on the same token cannot both succeed: the loser sees zero rows and
// gets ErrUserNotFound. Expired tokens never match and are left intact.
func (r *userRepository) RedeemVerifyToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	user := &model.User{}
	query := `
		UPDATE users
		SET is_verified = TRUE, verify_token = NULL, verify_expires_at = NULL
		WHERE verify_token = $1
		AND verify_expires_at > $2
		RETURNING *
	`

	err := r.db.GetContext(ctx, user, query, token, now)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}
