package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memUserStorage struct {
	byEmail map[string]*User
}

func newMemUserStorage() *memUserStorage {
	return &memUserStorage{byEmail: make(map[string]*User)}
}

func (s *memUserStorage) CreateUser(_ context.Context, user *User) error {
	s.byEmail[user.Email] = user
	return nil
}

func (s *memUserStorage) GetUserByEmail(_ context.Context, email string) (*User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, errors.New("not found")
	}
	return u, nil
}

func (s *memUserStorage) GetUserByID(_ context.Context, id string) (*User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errors.New("not found")
}

func TestPasswordAuthenticator_RegisterAndAuthenticate(t *testing.T) {
	a := NewPasswordAuthenticator(newMemUserStorage())
	ctx := context.Background()

	user, err := a.Register(ctx, "mario@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" || user.PasswordHash == "correct horse" {
		t.Fatalf("user not properly created: %+v", user)
	}

	got, err := a.Authenticate(ctx, "mario@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate returned user %q, want %q", got.ID, user.ID)
	}

	if _, err := a.Authenticate(ctx, "mario@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := a.Authenticate(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestPasswordAuthenticator_RejectsWeakAndDuplicate(t *testing.T) {
	a := NewPasswordAuthenticator(newMemUserStorage())
	ctx := context.Background()

	if _, err := a.Register(ctx, "a@b.c", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("weak password = %v, want ErrWeakPassword", err)
	}

	if _, err := a.Register(ctx, "a@b.c", "long enough"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := a.Register(ctx, "a@b.c", "long enough"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email = %v, want ErrEmailExists", err)
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &User{ID: "u1", Email: "mario@example.com"}

	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "mario@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTManager_RejectsBadTokens(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	if _, err := m.Validate("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token = %v, want ErrInvalidToken", err)
	}

	expired := NewJWTManager("test-secret", -time.Minute)
	token, _ := expired.Generate(&User{ID: "u1"})
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token = %v, want ErrInvalidToken", err)
	}

	other := NewJWTManager("other-secret", time.Hour)
	token, _ = other.Generate(&User{ID: "u1"})
	if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key = %v, want ErrInvalidToken", err)
	}
}
