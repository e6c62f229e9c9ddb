package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/pkg/token"
)

const principalKey = "principal"

var (
	errMissingHeader = &domain.Error{Kind: domain.KindAuthentication, Message: "missing authorization header"}
	errInvalidHeader = &domain.Error{Kind: domain.KindAuthentication, Message: "invalid authorization header"}
	errInvalidToken  = &domain.Error{Kind: domain.KindAuthentication, Message: "invalid token"}
)

// PrincipalLoader resolves the user a token was issued to.
type PrincipalLoader interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticate validates the bearer token, loads the user it names and
// stores it as the request principal. Tokens for deleted users are rejected.
func Authenticate(jwtSecret string, loader PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return errMissingHeader
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || raw == "" {
				return errInvalidHeader
			}

			claims, err := token.Parse(jwtSecret, raw)
			if err != nil {
				return errInvalidToken
			}

			user, err := loader.GetUserByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, domain.ErrUserNotFound) {
				return domain.ErrUnauthenticated
			}
			if err != nil {
				return err
			}

			c.Set(principalKey, user)
			return next(c)
		}
	}
}

// Principal returns the user stored by Authenticate.
func Principal(c echo.Context) (*domain.User, bool) {
	u, ok := c.Get(principalKey).(*domain.User)
	return u, ok && u != nil
}
