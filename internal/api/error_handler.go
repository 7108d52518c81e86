package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/memberhub/member-portal/internal/api/view"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the generic error page.
//   - Skips rendering when a response is already committed (e.g. the logout
//     flow redirects before forwarding a teardown fault), so the fault is
//     recorded but the committed response stands.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, msg := resolveError(err, log, c)

		if c.Response().Committed {
			return
		}
		if rerr := c.Render(code, "error", view.Data{Error: msg}); rerr != nil {
			_ = c.String(code, msg)
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (404 from router, method not allowed, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Something went wrong. Please try again later."
}
