package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/userhub/user-api/internal/api"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/core/service"
	"github.com/userhub/user-api/internal/infrastructure/config"
	"github.com/userhub/user-api/internal/infrastructure/db/memory"
	"github.com/userhub/user-api/internal/infrastructure/db/mongo"
	"github.com/userhub/user-api/internal/infrastructure/db/postgres"
	"github.com/userhub/user-api/internal/infrastructure/db/redis"
	"github.com/userhub/user-api/internal/infrastructure/http/handlers"
	"github.com/userhub/user-api/internal/infrastructure/queue"
	"github.com/userhub/user-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		l := logger.Get()
		l.Error().Err(err).Msg("user-api exited")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "user-api",
	})

	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:          cfg.Postgres.DSN,
		MaxConns:     cfg.Postgres.MaxConns,
		QueryTimeout: cfg.Postgres.QueryTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Postgres.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info().Msg("migrations applied")
	}

	health := map[string]handlers.PingFunc{"postgres": pool.Ping}

	cache, closeCache, err := openCache(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeCache()

	var audit ports.AuditSink
	if cfg.Mongo.Enabled() {
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			if err := mongo.Disconnect(context.Background(), client); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect")
			}
		}()

		repo := mongo.NewAuditRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return err
		}

		dispatcher := queue.NewDispatcher(cfg.Mongo.AuditWorkers, repo, log)
		dispatcher.Start(context.WithoutCancel(ctx))
		defer dispatcher.Close()

		audit = dispatcher
		health["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	}

	store := postgres.NewUserStore(pool, cfg.Postgres.QueryTimeout)
	users := service.NewUserService(store, cache, audit, cfg.Cache.TTL(), log)
	auth := service.NewAuthService(store, users, cfg.JWTSecret, cfg.TokenTTL, cfg.SignupRole)

	e := api.NewRouter(api.Deps{
		Users:         users,
		Auth:          auth,
		JWTSecret:     cfg.JWTSecret,
		AuthRateLimit: cfg.AuthRateLimit,
		Health:        health,
		Log:           log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("cache", cfg.Cache.Backend).Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	return nil
}

// openCache picks the cache backend and registers its readiness probe.
func openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger, health map[string]handlers.PingFunc) (ports.Cache, func(), error) {
	if cfg.Cache.Backend == config.CacheBackendMemory {
		return memory.NewCache(memory.Config{
			Capacity:   cfg.Cache.Capacity,
			DefaultTTL: cfg.Cache.TTL(),
		}), func() {}, nil
	}

	client, err := redis.Connect(ctx, redis.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		Timeout:    cfg.Redis.Timeout,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}
	health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

	closeFn := func() {
		if err := client.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			log.Warn().Err(err).Msg("redis close")
		}
	}
	return redis.NewCache(client, cfg.Cache.TTL(), cfg.Redis.Timeout, log), closeFn, nil
}
