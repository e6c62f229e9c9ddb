package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
)

const selectUsers = `SELECT u.id, u.name, u.email, u.role_id, r.id, r.role
FROM users u JOIN roles r ON r.id = u.role_id`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// UserStore implements ports.UserStore on PostgreSQL.
type UserStore struct {
	pool    DB
	timeout time.Duration
}

var _ ports.UserStore = (*UserStore)(nil)

func NewUserStore(pool DB, timeout time.Duration) *UserStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &UserStore{pool: pool, timeout: timeout}
}

func (s *UserStore) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, selectUsers+" WHERE u.id = $1", id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return user, nil
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	const q = `SELECT u.id, u.name, u.email, u.password, u.role_id, r.id, r.role
FROM users u JOIN roles r ON r.id = u.role_id WHERE u.email = $1`

	var (
		u    domain.User
		role domain.Role
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &role.ID, &role.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	u.Role = &role
	return &u, nil
}

func (s *UserStore) FindUsers(ctx context.Context, q ports.UserQuery) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sql, args := buildUsersQuery(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return users, nil
}

func (s *UserStore) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return findRoleByName(ctx, s.pool, name)
}

func (s *UserStore) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// WithinTx runs fn at READ COMMITTED and commits when fn returns nil. The
// query timeout bounds the whole transaction, fn included.
func (s *UserStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.UserTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &userTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type userTx struct {
	tx pgx.Tx
}

func (t *userTx) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return findRoleByName(ctx, t.tx, name)
}

// CreateRole inserts inside a savepoint so that losing a concurrent insert
// does not abort the enclosing transaction.
func (t *userTx) CreateRole(ctx context.Context, name string) (*domain.Role, error) {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}

	var role domain.Role
	err = sp.QueryRow(ctx, `INSERT INTO roles (role) VALUES ($1) RETURNING id, role`, name).Scan(&role.ID, &role.Role)
	if err != nil {
		_ = sp.Rollback(ctx)
		return nil, translateUnique(err)
	}
	if err := sp.Commit(ctx); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	return &role, nil
}

func (t *userTx) CreateUser(ctx context.Context, user *domain.User) error {
	const q = `INSERT INTO users (name, email, password, role_id) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := t.tx.QueryRow(ctx, q, user.Name, user.Email, user.PasswordHash, user.RoleID).Scan(&user.ID); err != nil {
		return translateUnique(err)
	}
	return nil
}

func (t *userTx) UpdateUser(ctx context.Context, user *domain.User) error {
	const q = `UPDATE users SET name = $2, email = $3, role_id = $4 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, q, user.ID, user.Name, user.Email, user.RoleID)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func findRoleByName(ctx context.Context, q querier, name string) (*domain.Role, error) {
	var role domain.Role
	err := q.QueryRow(ctx, `SELECT id, role FROM roles WHERE role = $1`, name).Scan(&role.ID, &role.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find role %q: %w", name, err)
	}
	return &role, nil
}

func buildUsersQuery(q ports.UserQuery) (string, []any) {
	switch {
	case q.Name != "":
		return selectUsers + " WHERE u.name = $1 ORDER BY u.id", []any{q.Name}
	case q.RoleID != 0:
		return selectUsers + " WHERE u.role_id = $1 ORDER BY u.id", []any{q.RoleID}
	default:
		return selectUsers + " ORDER BY u.id", nil
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u    domain.User
		role domain.Role
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.RoleID, &role.ID, &role.Role); err != nil {
		return nil, err
	}
	u.Role = &role
	return &u, nil
}
