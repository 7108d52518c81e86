package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/memberhub/member-portal/internal/api/middleware"
	"github.com/memberhub/member-portal/internal/core/domain"
)

// currentIdentity returns the identity injected by the RequireLoggedIn
// guard, or nil when the request is anonymous.
func currentIdentity(c echo.Context) *domain.Identity {
	identity, _ := c.Get(middleware.ContextIdentity).(*domain.Identity)
	return identity
}
