package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/pkg/metrics"
)

const (
	opGetUser   = "get_user"
	opListUsers = "list_users"
)

// UserService implements the user write transaction and the cached read path.
type UserService struct {
	store    ports.UserStore
	cache    ports.Cache
	roles    *RoleResolver
	audit    ports.AuditSink
	cacheTTL time.Duration
	log      zerolog.Logger
}

var _ ports.UserService = (*UserService)(nil)

// NewUserService wires the service. audit may be nil.
func NewUserService(
	store ports.UserStore,
	cache ports.Cache,
	audit ports.AuditSink,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		store:    store,
		cache:    cache,
		roles:    NewRoleResolver(log),
		audit:    audit,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// CreateUser resolves (or creates) the role and inserts the user atomically.
// The returned user carries its role and no password hash.
func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{Name: in.Name, Email: in.Email, PasswordHash: hash}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ports.UserTx) error {
		role, err := s.roles.ResolveOrCreate(ctx, tx, in.Role)
		if err != nil {
			return err
		}
		user.RoleID = role.ID
		user.Role = role
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		recordWrite("create", err)
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.PasswordHash = ""

	s.recordAudit(domain.AuditUserCreated, user, in.ActorID)
	s.log.Info().Int64("user_id", user.ID).Str("role", user.RoleName()).Msg("user created")

	// A missing entry is never stale here, so a failed populate only costs a later miss.
	if err := s.cache.Set(ctx, userKey(user.ID), user, s.cacheTTL); err != nil {
		metrics.CacheWriteFailuresTotal.WithLabelValues("populate").Inc()
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("cache populate after create failed")
	}
	// The row is already committed: a client retrying after this error gets
	// a duplicate-email conflict, not a second user.
	if err := s.invalidateLists(ctx); err != nil {
		recordWrite("create", err)
		return nil, err
	}

	recordWrite("create", nil)
	return user, nil
}

// UpdateUser rewrites name, email and role, then writes the new value
// through to the cache.
func (s *UserService) UpdateUser(ctx context.Context, in ports.UpdateUserInput) (*domain.User, error) {
	user := &domain.User{ID: in.ID, Name: in.Name, Email: in.Email}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.UserTx) error {
		role, err := s.roles.ResolveOrCreate(ctx, tx, in.Role)
		if err != nil {
			return err
		}
		user.RoleID = role.ID
		user.Role = role
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		recordWrite("update", err)
		return nil, fmt.Errorf("update user %d: %w", in.ID, err)
	}

	s.recordAudit(domain.AuditUserUpdated, user, in.ActorID)
	s.log.Info().Int64("user_id", user.ID).Str("role", user.RoleName()).Msg("user updated")

	key := userKey(user.ID)
	if err := s.cache.Set(ctx, key, user, s.cacheTTL); err != nil {
		metrics.CacheWriteFailuresTotal.WithLabelValues("write_through").Inc()
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("cache write-through failed, dropping entry")
		if derr := s.cache.Delete(ctx, key); derr != nil {
			metrics.CacheWriteFailuresTotal.WithLabelValues("delete").Inc()
			s.log.Error().Err(derr).Int64("user_id", user.ID).Msg("stale cache entry could not be removed")
			recordWrite("update", derr)
			return nil, domain.NewInternalError("cache update failed", errors.Join(err, derr))
		}
	}
	if err := s.invalidateLists(ctx); err != nil {
		recordWrite("update", err)
		return nil, err
	}

	recordWrite("update", nil)
	return user, nil
}

// DeleteUser removes the user and its cache entry.
func (s *UserService) DeleteUser(ctx context.Context, in ports.DeleteUserInput) error {
	if err := s.store.DeleteUser(ctx, in.ID); err != nil {
		recordWrite("delete", err)
		return fmt.Errorf("delete user %d: %w", in.ID, err)
	}

	s.recordAudit(domain.AuditUserDeleted, &domain.User{ID: in.ID}, in.ActorID)
	s.log.Info().Int64("user_id", in.ID).Msg("user deleted")

	if err := s.cache.Delete(ctx, userKey(in.ID)); err != nil {
		metrics.CacheWriteFailuresTotal.WithLabelValues("delete").Inc()
		s.log.Error().Err(err).Int64("user_id", in.ID).Msg("cache delete failed after user delete")
		recordWrite("delete", err)
		return domain.NewInternalError("cache invalidation failed", err)
	}
	if err := s.invalidateLists(ctx); err != nil {
		recordWrite("delete", err)
		return err
	}

	recordWrite("delete", nil)
	return nil
}

// GetUserByID serves from the cache when possible and populates it on a miss.
// Unknown ids are never cached.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	key := userKey(id)

	var cached domain.User
	if s.lookup(ctx, opGetUser, key, &cached) {
		return &cached, nil
	}

	user, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	s.populate(ctx, key, user)
	return user, nil
}

// ListUsers returns users matching filter. A role that does not exist
// matches nobody.
func (s *UserService) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	key := usersKey(filter)

	var cached []domain.User
	if s.lookup(ctx, opListUsers, key, &cached) {
		if cached == nil {
			cached = []domain.User{}
		}
		return cached, nil
	}

	var q ports.UserQuery
	switch {
	case filter.ByName():
		q.Name = filter.Name()
	case filter.ByRole():
		role, err := s.store.FindRoleByName(ctx, filter.Role())
		if errors.Is(err, domain.ErrRoleNotFound) {
			users := []domain.User{}
			s.populate(ctx, key, users)
			return users, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		q.RoleID = role.ID
	}

	users, err := s.store.FindUsers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}

	s.populate(ctx, key, users)
	return users, nil
}

// lookup treats every cache failure as a miss.
func (s *UserService) lookup(ctx context.Context, op, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	switch {
	case err != nil:
		metrics.CacheLookupsTotal.WithLabelValues(op, "error").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to store")
		return false
	case hit:
		metrics.CacheLookupsTotal.WithLabelValues(op, "hit").Inc()
		return true
	default:
		metrics.CacheLookupsTotal.WithLabelValues(op, "miss").Inc()
		return false
	}
}

func (s *UserService) populate(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.cacheTTL); err != nil {
		metrics.CacheWriteFailuresTotal.WithLabelValues("populate").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("cache populate failed")
	}
}

func (s *UserService) invalidateLists(ctx context.Context) error {
	if err := s.cache.DeletePrefix(ctx, usersKeyPrefix); err != nil {
		metrics.CacheWriteFailuresTotal.WithLabelValues("invalidate").Inc()
		s.log.Error().Err(err).Msg("user list invalidation failed")
		return domain.NewInternalError("cache invalidation failed", err)
	}
	return nil
}

func (s *UserService) recordAudit(action domain.AuditAction, user *domain.User, actorID int64) {
	if s.audit == nil {
		return
	}
	s.audit.Record(domain.AuditEvent{
		Action:  action,
		UserID:  user.ID,
		ActorID: actorID,
		Email:   user.Email,
		At:      time.Now().UTC(),
	})
}

func recordWrite(op string, err error) {
	result := "ok"
	if err != nil {
		result = domain.KindOf(err).String()
	}
	metrics.UserWritesTotal.WithLabelValues(op, result).Inc()
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.NewValidationError("invalid data", domain.FieldError{
			Field:   "password",
			Message: "password must be at most 72 bytes",
		})
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
