package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/userhub/user-api/docs"
	"github.com/userhub/user-api/internal/api/handler"
	"github.com/userhub/user-api/internal/api/middleware"
	"github.com/userhub/user-api/internal/core/policy"
	"github.com/userhub/user-api/internal/core/ports"
	"github.com/userhub/user-api/internal/infrastructure/http/handlers"
)

const defaultAuthRateLimit = 5

// Deps carries everything the router needs. Registerer and Gatherer default
// to the global Prometheus registry.
type Deps struct {
	Users         ports.UserService
	Auth          ports.AuthService
	JWTSecret     string
	AuthRateLimit float64
	Health        map[string]handlers.PingFunc
	Registerer    prometheus.Registerer
	Gatherer      prometheus.Gatherer
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	if deps.Registerer == nil {
		deps.Registerer = prometheus.DefaultRegisterer
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.AuthRateLimit <= 0 {
		deps.AuthRateLimit = defaultAuthRateLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: deps.Registerer,
	}))

	// --- Operational endpoints (no auth required) ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/docs/*", echoSwagger.WrapHandler)
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(deps.Health).Readiness)

	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)

	v1 := e.Group("/v1")

	// --- Auth routes ---
	limiter := echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStore(rate.Limit(deps.AuthRateLimit)))
	v1.POST("/signup", authHandler.Signup, limiter)
	v1.POST("/login", authHandler.Login, limiter)

	// --- User routes ---
	users := v1.Group("/user", middleware.Authenticate(deps.JWTSecret, deps.Users))
	users.GET("", userHandler.List, middleware.Authorize(policy.ActionGet, policy.SubjectUser))
	users.GET("/:id", userHandler.Get, middleware.Authorize(policy.ActionGet, policy.SubjectUser))
	users.POST("", userHandler.Create, middleware.Authorize(policy.ActionCreate, policy.SubjectUser))
	users.PUT("/:id", userHandler.Update, middleware.Authorize(policy.ActionUpdate, policy.SubjectUser))
	users.DELETE("/:id", userHandler.Delete, middleware.Authorize(policy.ActionDelete, policy.SubjectUser))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
