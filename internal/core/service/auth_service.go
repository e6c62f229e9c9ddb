package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/pkg/token"
)

// AuthService implements signup and login.
type AuthService struct {
	store      ports.UserStore
	users      ports.UserService
	jwtSecret  string
	tokenTTL   time.Duration
	signupRole string
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(store ports.UserStore, users ports.UserService, jwtSecret string, tokenTTL time.Duration, signupRole string) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	if signupRole == "" {
		signupRole = domain.RoleCustomer
	}
	return &AuthService{
		store:      store,
		users:      users,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		signupRole: signupRole,
	}
}

// Signup creates an account with the configured self-signup role.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.users.CreateUser(ctx, ports.CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     s.signupRole,
	})
}

// Login checks credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	user.PasswordHash = ""

	signed, err := token.Issue(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	return &ports.LoginResult{
		Token:     signed,
		User:      user,
		ExpiresIn: int64(s.tokenTTL / time.Second),
	}, nil
}
