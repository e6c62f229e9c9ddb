package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
)

type stubUsers struct {
	ports.UserService
	seen  map[string]bool
	calls []ports.CreateUserInput
}

func (s *stubUsers) CreateUser(_ context.Context, in ports.CreateUserInput) (*domain.User, error) {
	s.calls = append(s.calls, in)
	if s.seen[in.Email] {
		return nil, domain.ErrDuplicateEmail
	}
	s.seen[in.Email] = true
	return &domain.User{ID: int64(len(s.seen)), Name: in.Name, Email: in.Email, Role: &domain.Role{Role: in.Role}}, nil
}

func TestSeed_ContinuesPastFailures(t *testing.T) {
	users := &stubUsers{seen: map[string]bool{"arpit@example.com": true}}

	created := seed(context.Background(), users, accounts, zerolog.Nop())

	if created != len(accounts)-1 {
		t.Fatalf("expected %d created, got %d", len(accounts)-1, created)
	}
	if len(users.calls) != len(accounts) {
		t.Fatalf("every account must be attempted, got %d calls", len(users.calls))
	}
	for _, in := range users.calls {
		if in.Password != in.Email {
			t.Fatalf("seed password for %s must equal the email", in.Email)
		}
	}
}

func TestSeed_Roles(t *testing.T) {
	admins := 0
	for _, a := range accounts {
		if a.role == domain.RoleAdmin {
			admins++
		}
	}
	if admins != 3 || len(accounts) != 6 {
		t.Fatalf("expected 3 admins out of 6 accounts, got %d of %d", admins, len(accounts))
	}
}
