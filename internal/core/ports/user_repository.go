package ports

import (
	"context"

	"github.com/99minutos/user-service/internal/core/domain"
)

//go:generate mockgen -source=user_repository.go -destination=../../mock/user_repository_mock.go -package=mock

// UserRepository persists user accounts.
//
// Lookups return (nil, nil) when no user matches. Insert returns
// domain.ErrDuplicateUser when the storage engine rejects the username as
// already taken.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Insert(ctx context.Context, username, passwordHash string, roles domain.Roles) (*domain.User, error)
}

// PasswordHasher turns plaintext passwords into salted one-way hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	Issue(user *domain.User) (string, error)
	Decode(token string) (domain.Identity, error)
	// DecodeForRefresh verifies the signature but accepts an expired access
	// window as long as the refresh window is still open.
	DecodeForRefresh(token string) (domain.Identity, error)
}
