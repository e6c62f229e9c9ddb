package ports

import (
	"context"

	"github.com/userhub/user-api/internal/core/domain"
)

type LoginResult struct {
	Token     string
	User      *domain.User
	ExpiresIn int64
}

type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}
