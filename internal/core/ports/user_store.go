package ports

import (
	"context"

	"github.com/userhub/user-api/internal/core/domain"
)

// UserQuery is the store-level form of a collection read. Zero fields are
// unset; Name wins over RoleID when both are set.
type UserQuery struct {
	Name   string
	RoleID int64
}

// RoleTx is the subset of transactional operations needed to resolve a role.
type RoleTx interface {
	// FindRoleByName returns domain.ErrRoleNotFound when absent.
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)
	// CreateRole returns domain.ErrRoleExists when a concurrent writer won the
	// insert; the enclosing transaction remains usable afterwards.
	CreateRole(ctx context.Context, name string) (*domain.Role, error)
}

// UserTx exposes the writes that must commit or roll back together.
type UserTx interface {
	RoleTx
	// CreateUser assigns user.ID. Duplicate email yields domain.ErrDuplicateEmail.
	CreateUser(ctx context.Context, user *domain.User) error
	// UpdateUser rewrites name, email and role. Missing rows yield domain.ErrUserNotFound.
	UpdateUser(ctx context.Context, user *domain.User) error
}

// UserStore is the persistent store of users and roles.
type UserStore interface {
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	// FindUserByEmail includes the password hash.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUsers(ctx context.Context, q UserQuery) ([]domain.User, error)
	FindRoleByName(ctx context.Context, name string) (*domain.Role, error)
	DeleteUser(ctx context.Context, id int64) error
	// WithinTx runs fn in one transaction, committing only when fn returns nil.
	// fn must issue its statements with the ctx it is given, which carries
	// the store's deadline.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx UserTx) error) error
}
