package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/core/service"
)

var (
	findRoleSQL   = regexp.QuoteMeta(`SELECT id, role FROM roles WHERE role = $1`)
	insertRoleSQL = regexp.QuoteMeta(`INSERT INTO roles (role) VALUES ($1) RETURNING id, role`)
	insertUserSQL = regexp.QuoteMeta(`INSERT INTO users (name, email, password, role_id)`)
	updateUserSQL = regexp.QuoteMeta(`UPDATE users SET name = $2, email = $3, role_id = $4 WHERE id = $1`)
	deleteUserSQL = regexp.QuoteMeta(`DELETE FROM users WHERE id = $1`)
	userByIDSQL   = regexp.QuoteMeta(`FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`)

	readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	userColumns   = []string{"id", "name", "email", "role_id", "id", "role"}
)

func newMockStore(t *testing.T) (*UserStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewUserStore(mock, time.Second), mock
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWithinTx_CallbackContextCarriesDeadline(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, _ ports.UserTx) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("transaction callback must run under the query timeout")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectationsMet(t, mock)
}

func TestWithinTx_RollsBackOnDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectQuery(insertUserSQL).
		WithArgs("a", "a@example.com", "hash", int64(1)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintUserEmail})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.UserTx) error {
		return tx.CreateUser(ctx, &domain.User{Name: "a", Email: "a@example.com", PasswordHash: "hash", RoleID: 1})
	})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestWithinTx_LostRoleRaceRollsBackSavepointOnly(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectQuery(findRoleSQL).WithArgs("SUPPORT").WillReturnRows(pgxmock.NewRows([]string{"id", "role"}))
	mock.ExpectBegin()
	mock.ExpectQuery(insertRoleSQL).WithArgs("SUPPORT").
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintRoleName})
	mock.ExpectRollback()
	mock.ExpectQuery(findRoleSQL).WithArgs("SUPPORT").
		WillReturnRows(pgxmock.NewRows([]string{"id", "role"}).AddRow(int64(7), "SUPPORT"))
	mock.ExpectQuery(insertUserSQL).
		WithArgs("a", "a@example.com", "hash", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	resolver := service.NewRoleResolver(zerolog.Nop())
	user := &domain.User{Name: "a", Email: "a@example.com", PasswordHash: "hash"}
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.UserTx) error {
		role, err := resolver.ResolveOrCreate(ctx, tx, "SUPPORT")
		if err != nil {
			return err
		}
		user.RoleID = role.ID
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 11 || user.RoleID != 7 {
		t.Fatalf("expected user 11 with role 7, got %+v", user)
	}
	expectationsMet(t, mock)
}

func TestCreateRole_ReleasesSavepoint(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectBegin()
	mock.ExpectQuery(insertRoleSQL).WithArgs("AUDITOR").
		WillReturnRows(pgxmock.NewRows([]string{"id", "role"}).AddRow(int64(3), "AUDITOR"))
	mock.ExpectCommit()
	mock.ExpectCommit()

	var role *domain.Role
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.UserTx) error {
		var err error
		role, err = tx.CreateRole(ctx, "AUDITOR")
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if role.ID != 3 || role.Role != "AUDITOR" {
		t.Fatalf("unexpected role: %+v", role)
	}
	expectationsMet(t, mock)
}

func TestUpdateUser_MissingRowIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec(updateUserSQL).
		WithArgs(int64(404), "a", "a@example.com", int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.UserTx) error {
		return tx.UpdateUser(ctx, &domain.User{ID: 404, Name: "a", Email: "a@example.com", RoleID: 1})
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestDeleteUser(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(deleteUserSQL).WithArgs(int64(404)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(deleteUserSQL).WithArgs(int64(5)).WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := store.DeleteUser(context.Background(), 404); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.DeleteUser(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectationsMet(t, mock)
}

func TestFindUserByID_JoinsRole(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(userByIDSQL).WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(3), "cherry", "cherry@example.com", int64(1), int64(1), domain.RoleAdmin))
	mock.ExpectQuery(userByIDSQL).WithArgs(int64(404)).WillReturnRows(pgxmock.NewRows(userColumns))

	u, err := store.FindUserByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role == nil || u.Role.Role != domain.RoleAdmin || u.Role.ID != u.RoleID {
		t.Fatalf("role not joined: %+v", u)
	}
	if u.PasswordHash != "" {
		t.Fatalf("password hash must not be loaded")
	}

	if _, err := store.FindUserByID(context.Background(), 404); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}
