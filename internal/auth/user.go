// Package auth provides password registration, credential checks and JWT
// session tokens for the API.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account that owns record collections and party directories.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStorage persists accounts. SQLite implements it.
type UserStorage interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
}

func NewUser(email, passwordHash string) *User {
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
}
