package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/userhub/user-api/internal/api/middleware"
)

// actorID returns the authenticated caller's id, or 0 on public routes.
func actorID(c echo.Context) int64 {
	if p, ok := middleware.Principal(c); ok {
		return p.ID
	}
	return 0
}
