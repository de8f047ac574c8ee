// Package memory is a process-local user store for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/user-service/internal/core/domain"
)

type UserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*domain.User
	byUsername map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[string]*domain.User),
		byUsername: make(map[string]string),
	}
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.byID[id]), nil
}

func (r *UserRepository) Insert(_ context.Context, username, passwordHash string, roles domain.Roles) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[username]; exists {
		return nil, domain.ErrDuplicateUser
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	u := &domain.User{
		ID:           id.String(),
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        append(domain.Roles{}, roles...),
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[u.ID] = u
	r.byUsername[username] = u.ID
	return clone(u), nil
}

// Ping always succeeds.
func (r *UserRepository) Ping(context.Context) error { return nil }

func clone(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append(domain.Roles{}, u.Roles...)
	return &c
}
