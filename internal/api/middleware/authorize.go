package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/userhub/user-api/internal/core/domain"
	"github.com/userhub/user-api/internal/core/policy"
)

// Authorize rejects the request before the handler runs unless the
// principal's role may perform action on subject.
func Authorize(action policy.Action, subject policy.Subject) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := Principal(c)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !policy.Can(user.RoleName(), action, subject) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
