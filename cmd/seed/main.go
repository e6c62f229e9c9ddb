// Command seed loads the demo accounts. Re-running it is safe: accounts that
// already exist are reported and skipped.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/core/service"
	"github.com/userhub/user-api/internal/infrastructure/config"
	"github.com/userhub/user-api/internal/infrastructure/db/memory"
	"github.com/userhub/user-api/internal/infrastructure/db/postgres"
	"github.com/userhub/user-api/internal/infrastructure/db/redis"
	"github.com/userhub/user-api/pkg/logger"
)

type account struct {
	name  string
	email string
	role  string
}

// Each demo account uses its email as password.
var accounts = []account{
	{name: "John Doe", email: "john.doe@example.com", role: domain.RoleAdmin},
	{name: "Arpit", email: "arpit@example.com", role: domain.RoleAdmin},
	{name: "cherry", email: "cherry@example.com", role: domain.RoleAdmin},
	{name: "bhargav", email: "bhargav@example.com", role: domain.RoleCustomer},
	{name: "sarath", email: "nettemsarath@example.com", role: domain.RoleCustomer},
	{name: "nettem", email: "nettem@example.com", role: domain.RoleCustomer},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: true, Service: "seed"})

	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxConns:     cfg.Postgres.MaxConns,
		QueryTimeout: cfg.Postgres.QueryTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}

	// List entries cached by a running API must be invalidated, so seed
	// through the same backend.
	var cache ports.Cache
	if cfg.Cache.Backend == config.CacheBackendRedis {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			Timeout:    cfg.Redis.Timeout,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		cache = redis.NewCache(client, cfg.Cache.TTL(), cfg.Redis.Timeout, log)
	} else {
		cache = memory.NewCache(memory.Config{Capacity: cfg.Cache.Capacity, DefaultTTL: cfg.Cache.TTL()})
	}

	users := service.NewUserService(postgres.NewUserStore(pool, cfg.Postgres.QueryTimeout), cache, nil, cfg.Cache.TTL(), log)
	created := seed(ctx, users, accounts, log)
	log.Info().Int("created", created).Int("total", len(accounts)).Msg("seed finished")
	return nil
}

// seed creates every account, logging and skipping the ones that fail.
func seed(ctx context.Context, users ports.UserService, list []account, log zerolog.Logger) int {
	created := 0
	for _, a := range list {
		u, err := users.CreateUser(ctx, ports.CreateUserInput{
			Name:     a.name,
			Email:    a.email,
			Password: a.email,
			Role:     a.role,
		})
		if err != nil {
			log.Error().Err(err).Str("email", a.email).Msg("create user")
			continue
		}
		created++
		log.Info().Int64("id", u.ID).Str("email", u.Email).Str("role", u.RoleName()).Msg("user created")
	}
	return created
}
