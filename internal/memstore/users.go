package memstore

import (
	"context"
	"sync"

	"tally/internal/auth"
)

// Users is the in-memory UserStorage backing the memory backend. Accounts do
// not survive a restart.
type Users struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
}

var _ auth.UserStorage = (*Users)(nil)

func NewUsers() *Users {
	return &Users{byEmail: make(map[string]*auth.User)}
}

func (u *Users) CreateUser(_ context.Context, user *auth.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	copied := *user
	u.byEmail[user.Email] = &copied
	return nil
}

func (u *Users) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byEmail[email]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (u *Users) GetUserByID(_ context.Context, id string) (*auth.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}
