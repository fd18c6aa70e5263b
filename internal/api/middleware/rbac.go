package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boostly/boosting-marketplace/internal/core/domain"
)

// RBAC enforces role-based access control on the principal set by Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, _ := c.Get(PrincipalKey).(domain.Principal)
			if _, ok := allowed[p.Role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error":   domain.CodeForbidden,
					"message": "role " + string(p.Role) + " may not access this resource",
				})
			}
			return next(c)
		}
	}
}
