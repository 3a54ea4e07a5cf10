package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/ecommerce-api/internal/api/middleware"
	"github.com/storefront/ecommerce-api/internal/core/domain"
	"github.com/storefront/ecommerce-api/internal/core/ports"
)

// ctxClaims reads the identity injected by the Auth middleware. A missing
// subject means the route was wired without the middleware.
func ctxClaims(c echo.Context) (email string, role domain.Role, fullName string, err error) {
	email, _ = c.Get(middleware.CtxEmail).(string)
	role, _ = c.Get(middleware.CtxRole).(domain.Role)
	fullName, _ = c.Get(middleware.CtxFullName).(string)
	if email == "" || !role.Valid() {
		return "", "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return email, role, fullName, nil
}

// requestContext carries the caller address down to the services for auditing.
func requestContext(c echo.Context) context.Context {
	return ports.WithRemoteIP(c.Request().Context(), c.RealIP())
}
