package model

import (
	"time"
)

type User struct {
	ID              string     `db:"id"`
	Email           string     `db:"email"`
	Username        string     `db:"username"`
	Name            string     `db:"name"`
	About           string     `db:"about"`
	PasswordHash    string     `db:"password_hash"`
	AvatarPath      *string    `db:"avatar_path"` // Opaque storage reference, nullable
	IsVerified      bool       `db:"is_verified"`
	VerifyToken     *string    `db:"verify_token"`
	VerifyExpiresAt *time.Time `db:"verify_expires_at"`
	CreatedAt       time.Time  `db:"created_at"`

	// Computed field (not in database)
	AvatarURL string `db:"-"`
}

func (u *User) HasAvatar() bool {
	return u.AvatarPath != nil && *u.AvatarPath != ""
}

func (u *User) HasPendingVerification() bool {
	return u.VerifyToken != nil && *u.VerifyToken != ""
}

// PublicUser is the subset of a user record safe to return to clients.
// Password hash and the raw verification token never leave the server.
type PublicUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	About      string `json:"about"`
	Avatar     string `json:"avatar,omitempty"`
	IsVerified bool   `json:"isVerified"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       u.Name,
		About:      u.About,
		Avatar:     u.AvatarURL,
		IsVerified: u.IsVerified,
	}
}
