package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
)

// memStore is an in-memory UserStore. WithinTx stages changes on copies and
// publishes them only when fn succeeds.
type memStore struct {
	mu             sync.Mutex
	roles          map[int64]domain.Role
	users          map[int64]domain.User
	nextRoleID     int64
	nextUserID     int64
	findByIDCalls  int
	findUsersCalls int
	// unboundedTxCalls counts tx statements issued without a deadline.
	unboundedTxCalls int
}

func newMemStore(roles ...string) *memStore {
	s := &memStore{roles: make(map[int64]domain.Role), users: make(map[int64]domain.User)}
	for _, r := range roles {
		s.nextRoleID++
		s.roles[s.nextRoleID] = domain.Role{ID: s.nextRoleID, Role: r}
	}
	return s
}

func joinRole(u domain.User, roles map[int64]domain.Role) domain.User {
	if r, ok := roles[u.RoleID]; ok {
		role := r
		u.Role = &role
	}
	return u
}

func findRole(roles map[int64]domain.Role, name string) (*domain.Role, error) {
	for _, r := range roles {
		if r.Role == name {
			role := r
			return &role, nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (s *memStore) roleByName(name string) (*domain.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := findRole(s.roles, name)
	return r, err == nil
}

func (s *memStore) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findByIDCalls++
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u = joinRole(u, s.roles)
	u.PasswordHash = ""
	return &u, nil
}

func (s *memStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u = joinRole(u, s.roles)
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memStore) FindUsers(_ context.Context, q ports.UserQuery) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findUsersCalls++
	var out []domain.User
	for _, u := range s.users {
		switch {
		case q.Name != "" && u.Name != q.Name:
			continue
		case q.Name == "" && q.RoleID != 0 && u.RoleID != q.RoleID:
			continue
		}
		u = joinRole(u, s.roles)
		u.PasswordHash = ""
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) FindRoleByName(_ context.Context, name string) (*domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return findRole(s.roles, name)
}

func (s *memStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.UserTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	tx := &memTx{store: s, roles: make(map[int64]domain.Role), users: make(map[int64]domain.User)}
	for k, v := range s.roles {
		tx.roles[k] = v
	}
	for k, v := range s.users {
		tx.users[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.roles, s.users = tx.roles, tx.users
	return nil
}

// memTx runs with memStore.mu held.
type memTx struct {
	store *memStore
	roles map[int64]domain.Role
	users map[int64]domain.User
}

func (t *memTx) track(ctx context.Context) {
	if _, ok := ctx.Deadline(); !ok {
		t.store.unboundedTxCalls++
	}
}

func (t *memTx) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	t.track(ctx)
	return findRole(t.roles, name)
}

func (t *memTx) CreateRole(ctx context.Context, name string) (*domain.Role, error) {
	t.track(ctx)
	if _, err := findRole(t.roles, name); err == nil {
		return nil, domain.ErrRoleExists
	}
	t.store.nextRoleID++
	role := domain.Role{ID: t.store.nextRoleID, Role: name}
	t.roles[role.ID] = role
	return &role, nil
}

func (t *memTx) CreateUser(ctx context.Context, user *domain.User) error {
	t.track(ctx)
	for _, u := range t.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	t.store.nextUserID++
	user.ID = t.store.nextUserID
	stored := *user
	stored.Role = nil
	t.users[user.ID] = stored
	return nil
}

func (t *memTx) UpdateUser(ctx context.Context, user *domain.User) error {
	t.track(ctx)
	existing, ok := t.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for _, u := range t.users {
		if u.ID != user.ID && u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	existing.Name = user.Name
	existing.Email = user.Email
	existing.RoleID = user.RoleID
	t.users[user.ID] = existing
	return nil
}

// memCache mirrors the JSON round-trip of the real backends and lets tests
// inject failures per operation.
type memCache struct {
	mu        sync.Mutex
	data      map[string][]byte
	getErr    error
	setErr    error
	deleteErr error
	prefixErr error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *memCache) raw(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return string(b), ok
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.data, key)
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prefixErr != nil {
		return c.prefixErr
	}
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *recordingAudit) Record(e domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}
