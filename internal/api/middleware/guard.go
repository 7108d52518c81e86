package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memberhub/member-portal/internal/core/domain"
	"github.com/memberhub/member-portal/internal/core/ports"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "portal_session"

// ContextIdentity is the context key under which RequireLoggedIn exposes
// the authenticated identity.
const ContextIdentity = "identity"

// RequireLoggedIn guards routes that need an authenticated identity.
// Requests without a live session are redirected to /login before the
// route's handler runs; otherwise the identity is injected into context.
func RequireLoggedIn(sessions ports.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := sessionIdentity(c, sessions)
			if err != nil {
				return err
			}
			if identity == nil {
				return c.Redirect(http.StatusFound, "/login")
			}
			c.Set(ContextIdentity, identity)
			return next(c)
		}
	}
}

// RequireLoggedOut guards routes that only make sense for anonymous
// visitors. Requests carrying a live session are redirected to /profile.
func RequireLoggedOut(sessions ports.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := sessionIdentity(c, sessions)
			if err != nil {
				return err
			}
			if identity != nil {
				return c.Redirect(http.StatusFound, "/profile")
			}
			return next(c)
		}
	}
}

// sessionIdentity resolves the session cookie to an identity. A missing
// cookie or an expired session yields (nil, nil); only store faults return
// an error.
func sessionIdentity(c echo.Context, sessions ports.SessionStore) (*domain.Identity, error) {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	identity, err := sessions.Get(c.Request().Context(), cookie.Value)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return identity, nil
}
