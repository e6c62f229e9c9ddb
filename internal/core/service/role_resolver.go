package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/pkg/metrics"
)

const defaultResolveAttempts = 3

var errRoleContention = errors.New("role contention")

// RoleResolver maps a role name to a role, creating it when absent.
type RoleResolver struct {
	attempts int
	log      zerolog.Logger
}

func NewRoleResolver(log zerolog.Logger) *RoleResolver {
	return &RoleResolver{attempts: defaultResolveAttempts, log: log}
}

// ResolveOrCreate runs inside the caller's transaction. A concurrent insert
// of the same name surfaces as ErrRoleExists, after which the lookup is
// retried so both writers end up with the same role.
func (r *RoleResolver) ResolveOrCreate(ctx context.Context, tx ports.RoleTx, name string) (*domain.Role, error) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		role, err := tx.FindRoleByName(ctx, name)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return nil, fmt.Errorf("find role %q: %w", name, err)
		}

		role, err = tx.CreateRole(ctx, name)
		if err == nil {
			metrics.RolesCreatedTotal.Inc()
			r.log.Info().Str("role", name).Int64("role_id", role.ID).Msg("role created")
			return role, nil
		}
		if !errors.Is(err, domain.ErrRoleExists) {
			return nil, fmt.Errorf("create role %q: %w", name, err)
		}

		r.log.Debug().Str("role", name).Int("attempt", attempt).Msg("role created concurrently, retrying lookup")
	}

	return nil, domain.NewInternalError("resolve role "+name, errRoleContention)
}
