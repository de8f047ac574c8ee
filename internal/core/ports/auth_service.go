package ports

import (
	"context"

	"github.com/99minutos/user-service/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (string, error)
	Refresh(ctx context.Context, token string) (string, error)
	Identify(ctx context.Context, token string) (domain.Identity, error)
	// Profile returns the user a verified identity belongs to.
	Profile(ctx context.Context, identity domain.Identity) (*domain.User, error)
}
