package ports

import (
	"context"

	"github.com/userhub/user-api/internal/core/domain"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	ActorID  int64
}

type UpdateUserInput struct {
	ID      int64
	Name    string
	Email   string
	Role    string
	ActorID int64
}

type DeleteUserInput struct {
	ID      int64
	ActorID int64
}

// UserService covers the user write transaction and the cached read path.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, in DeleteUserInput) error
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
}
