package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/userhub/user-api/internal/core/domain"
)

const (
	uniqueViolation = "23505"

	constraintUserEmail = "users_email_key"
	constraintRoleName  = "roles_role_key"
)

// translateUnique maps unique-constraint violations onto domain errors and
// passes anything else through.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case constraintUserEmail:
		return domain.ErrDuplicateEmail
	case constraintRoleName:
		return domain.ErrRoleExists
	default:
		return err
	}
}
