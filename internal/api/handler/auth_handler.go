package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/memberhub/member-portal/internal/api/metrics"
	"github.com/memberhub/member-portal/internal/api/middleware"
	"github.com/memberhub/member-portal/internal/api/view"
	"github.com/memberhub/member-portal/internal/core/domain"
	"github.com/memberhub/member-portal/internal/core/ports"
)

// User-facing messages, fixed wording.
const (
	msgAllFieldsRequired = "All fields are required!"
	msgWeakPassword      = "Password needs to be at least 6 characters and must contain one uppercase letter, one lowercase letter, a number and a special character."
	msgDuplicateAccount  = "Username or email already in use."
	msgMissingLogin      = "Please enter both email and password."
	msgBadCredentials    = "Wrong password or username"
)

type AuthHandler struct {
	auth     ports.AuthService
	sessions ports.SessionStore
	google   ports.FederatedAuthenticator
	states   ports.StateStore
	audit    ports.EventRecorder
	hostname string
	log      zerolog.Logger
}

func NewAuthHandler(
	auth ports.AuthService,
	sessions ports.SessionStore,
	google ports.FederatedAuthenticator,
	states ports.StateStore,
	audit ports.EventRecorder,
	hostname string,
	log zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		google:   google,
		states:   states,
		audit:    audit,
		hostname: strings.TrimSuffix(hostname, "/"),
		log:      log,
	}
}

type signupForm struct {
	Username string `form:"username" validate:"required"`
	Email    string `form:"email"    validate:"required"`
	Password string `form:"password" validate:"required"`
}

// Home renders the landing page.
func (h *AuthHandler) Home(c echo.Context) error {
	return c.Render(http.StatusOK, "home", view.Data{})
}

// SignupPage renders the signup form.
func (h *AuthHandler) SignupPage(c echo.Context) error {
	return c.Render(http.StatusOK, "signup", view.Data{})
}

// Signup creates a new user account from the submitted form.
//
// Rejections re-render the form with an inline message; weak-password,
// duplicate-key and store-validation rejections keep the historical 500
// status, missing fields render 200. A successful signup redirects to
// /profile without establishing a session.
func (h *AuthHandler) Signup(c echo.Context) error {
	var form signupForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusOK, "signup", view.Data{Error: msgAllFieldsRequired})
	}
	if err := c.Validate(&form); err != nil {
		metrics.SignupsTotal.WithLabelValues("missing_fields").Inc()
		return c.Render(http.StatusOK, "signup", view.Data{Error: msgAllFieldsRequired})
	}

	user, err := h.auth.Signup(c.Request().Context(), form.Username, form.Email, form.Password)
	if err != nil {
		return h.signupRejection(c, err)
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	h.audit.Submit(domain.AuthEvent{Type: domain.EventSignup, Email: user.Email, Method: "local"})

	return c.Redirect(http.StatusFound, "/profile")
}

func (h *AuthHandler) signupRejection(c echo.Context, err error) error {
	var dup *domain.DuplicateKeyError
	var ve *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrMissingFields):
		metrics.SignupsTotal.WithLabelValues("missing_fields").Inc()
		return c.Render(http.StatusOK, "signup", view.Data{Error: msgAllFieldsRequired})
	case errors.Is(err, domain.ErrWeakPassword):
		metrics.SignupsTotal.WithLabelValues("weak_password").Inc()
		return c.Render(http.StatusInternalServerError, "signup", view.Data{Error: msgWeakPassword})
	case errors.As(err, &dup):
		metrics.SignupsTotal.WithLabelValues("duplicate").Inc()
		return c.Render(http.StatusInternalServerError, "signup", view.Data{Error: msgDuplicateAccount})
	case errors.As(err, &ve):
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return c.Render(http.StatusInternalServerError, "signup", view.Data{Error: ve.Error()})
	}

	// Infrastructure fault: let the central error handler respond.
	return err
}

// LoginPage renders the login form.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login", view.Data{})
}

// Login verifies local credentials and establishes a session.
//
// Empty fields are rejected before any credential lookup. Failed
// verification renders a deliberately generic message so the response does
// not reveal whether the email exists.
func (h *AuthHandler) Login(c echo.Context) error {
	email := c.FormValue("email")
	password := c.FormValue("password")
	if email == "" || password == "" {
		return c.Render(http.StatusOK, "login", view.Data{Error: msgMissingLogin})
	}

	user, err := h.auth.Login(c.Request().Context(), email, password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		metrics.LoginsTotal.WithLabelValues("local", "failure").Inc()
		h.audit.Submit(domain.AuthEvent{
			Type:   domain.EventLoginFailure,
			Email:  email,
			Method: "local",
			Reason: "invalid_credentials",
		})
		return c.Render(http.StatusOK, "login", view.Data{Error: msgBadCredentials})
	}
	if err != nil {
		return err
	}

	token, err := h.sessions.Create(c.Request().Context(), domain.IdentityOf(user))
	if err != nil {
		return fmt.Errorf("establish session: %w", err)
	}
	h.setSessionCookie(c, token)

	metrics.LoginsTotal.WithLabelValues("local", "success").Inc()
	h.audit.Submit(domain.AuthEvent{Type: domain.EventLoginSuccess, Email: user.Email, Method: "local"})

	return c.Redirect(http.StatusFound, "/profile")
}

// Profile renders the profile view for the authenticated identity.
func (h *AuthHandler) Profile(c echo.Context) error {
	return c.Render(http.StatusOK, "profile", view.Data{Identity: currentIdentity(c)})
}

// Logout tears down the current session and redirects to the home view.
// The redirect is issued even when teardown faults; the fault is still
// forwarded to the central error handler, which records it.
func (h *AuthHandler) Logout(c echo.Context) error {
	var teardownErr error

	cookie, err := c.Cookie(middleware.SessionCookie)
	if err == nil && cookie.Value != "" {
		teardownErr = h.sessions.Destroy(c.Request().Context(), cookie.Value)
	}
	h.clearSessionCookie(c)

	metrics.LogoutsTotal.Inc()
	h.audit.Submit(domain.AuthEvent{Type: domain.EventLogout, Method: "local"})

	if rerr := c.Redirect(http.StatusFound, "/"); rerr != nil {
		return rerr
	}
	if teardownErr != nil {
		return fmt.Errorf("destroy session: %w", teardownErr)
	}
	return nil
}

// GoogleLogin initiates the federated handshake, redirecting the client to
// the provider consent screen.
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	state, err := h.states.Issue(c.Request().Context())
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, h.google.ConsentURL(state))
}

// GoogleCallback completes the federated handshake. Both outcomes are hard
// redirects against the configured application origin; no message is
// rendered on this path.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	loginURL := h.hostname + "/login"

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if errParam := c.QueryParam("error"); errParam != "" || code == "" || state == "" {
		return c.Redirect(http.StatusFound, loginURL)
	}

	ok, err := h.states.Consume(c.Request().Context(), state)
	if err != nil || !ok {
		if err != nil {
			h.log.Warn().Err(err).Msg("oauth state check failed")
		}
		return c.Redirect(http.StatusFound, loginURL)
	}

	user, err := h.google.Complete(c.Request().Context(), code)
	if err != nil {
		h.log.Warn().Err(err).Msg("google handshake failed")
		metrics.LoginsTotal.WithLabelValues("google", "failure").Inc()
		return c.Redirect(http.StatusFound, loginURL)
	}

	token, err := h.sessions.Create(c.Request().Context(), domain.IdentityOf(user))
	if err != nil {
		h.log.Error().Err(err).Msg("session creation failed after google login")
		return c.Redirect(http.StatusFound, loginURL)
	}
	h.setSessionCookie(c, token)

	metrics.LoginsTotal.WithLabelValues("google", "success").Inc()
	h.audit.Submit(domain.AuthEvent{Type: domain.EventLoginSuccess, Email: user.Email, Method: "google"})

	return c.Redirect(http.StatusFound, h.hostname+"/profile")
}

func (h *AuthHandler) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
