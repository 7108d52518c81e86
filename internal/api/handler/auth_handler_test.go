package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/memberhub/member-portal/internal/api/middleware"
	"github.com/memberhub/member-portal/internal/api/view"
	"github.com/memberhub/member-portal/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuthService struct {
	signupFn func(ctx context.Context, username, email, password string) (*domain.User, error)
	loginFn  func(ctx context.Context, email, password string) (*domain.User, error)
}

func (s *stubAuthService) Signup(ctx context.Context, username, email, password string) (*domain.User, error) {
	return s.signupFn(ctx, username, email, password)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return s.loginFn(ctx, email, password)
}

type stubSessionStore struct {
	sessions   map[string]domain.Identity
	createErr  error
	destroyErr error
	destroyed  []string
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]domain.Identity)}
}

func (s *stubSessionStore) Create(_ context.Context, identity domain.Identity) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	token := "tok-" + identity.UserID
	s.sessions[token] = identity
	return token, nil
}

func (s *stubSessionStore) Get(_ context.Context, token string) (*domain.Identity, error) {
	identity, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &identity, nil
}

func (s *stubSessionStore) Destroy(_ context.Context, token string) error {
	s.destroyed = append(s.destroyed, token)
	if s.destroyErr != nil {
		return s.destroyErr
	}
	delete(s.sessions, token)
	return nil
}

type stubFederated struct {
	consentFn  func(state string) string
	completeFn func(ctx context.Context, code string) (*domain.User, error)
}

func (s *stubFederated) ConsentURL(state string) string {
	return s.consentFn(state)
}

func (s *stubFederated) Complete(ctx context.Context, code string) (*domain.User, error) {
	return s.completeFn(ctx, code)
}

type stubStateStore struct {
	issued   string
	issueErr error
	live     map[string]bool
}

func (s *stubStateStore) Issue(_ context.Context) (string, error) {
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return s.issued, nil
}

func (s *stubStateStore) Consume(_ context.Context, state string) (bool, error) {
	if s.live == nil {
		return false, nil
	}
	ok := s.live[state]
	delete(s.live, state)
	return ok, nil
}

type stubRecorder struct {
	events []domain.AuthEvent
}

func (s *stubRecorder) Submit(event domain.AuthEvent) {
	s.events = append(s.events, event)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const testHostname = "http://app.example.com"

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	renderer, err := view.New()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	e.Renderer = renderer
	e.Validator = NewValidator()
	return e
}

type handlerDeps struct {
	auth     *stubAuthService
	sessions *stubSessionStore
	google   *stubFederated
	states   *stubStateStore
	audit    *stubRecorder
}

func newTestHandler(deps handlerDeps) *AuthHandler {
	if deps.sessions == nil {
		deps.sessions = newStubSessionStore()
	}
	if deps.audit == nil {
		deps.audit = &stubRecorder{}
	}
	if deps.states == nil {
		deps.states = &stubStateStore{}
	}
	return NewAuthHandler(deps.auth, deps.sessions, deps.google, deps.states, deps.audit, testHostname, zerolog.Nop())
}

func formRequest(t *testing.T, e *echo.Echo, path string, form url.Values) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// ---------------------------------------------------------------------------
// Signup
// ---------------------------------------------------------------------------

func TestAuthHandler_Signup_MissingFields(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := newTestHandler(handlerDeps{auth: auth})

	c, rec := formRequest(t, e, "/signup", url.Values{"username": {"alice"}, "email": {"a@b.com"}})
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgAllFieldsRequired) {
		t.Fatalf("expected %q in body", msgAllFieldsRequired)
	}
}

func TestAuthHandler_Signup_WeakPassword(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			return nil, domain.ErrWeakPassword
		},
	}
	h := newTestHandler(handlerDeps{auth: auth})

	c, rec := formRequest(t, e, "/signup", url.Values{
		"username": {"alice"}, "email": {"a@b.com"}, "password": {"alllower1"},
	})
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "at least 6 characters") {
		t.Fatalf("expected password policy message in body")
	}
}

func TestAuthHandler_Signup_Duplicate(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			return nil, &domain.DuplicateKeyError{Field: "email"}
		},
	}
	h := newTestHandler(handlerDeps{auth: auth})

	c, rec := formRequest(t, e, "/signup", url.Values{
		"username": {"bob"}, "email": {"a@b.com"}, "password": {"Abcdef1"},
	})
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgDuplicateAccount) {
		t.Fatalf("expected %q in body", msgDuplicateAccount)
	}
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			if username != "alice" || email != "a@b.com" || password != "Abcdef1" {
				t.Fatalf("unexpected args: %s %s %s", username, email, password)
			}
			return &domain.User{ID: "1", Username: username, Email: email}, nil
		},
	}
	audit := &stubRecorder{}
	sessions := newStubSessionStore()
	h := newTestHandler(handlerDeps{auth: auth, audit: audit, sessions: sessions})

	c, rec := formRequest(t, e, "/signup", url.Values{
		"username": {"alice"}, "email": {"a@b.com"}, "password": {"Abcdef1"},
	})
	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/profile" {
		t.Fatalf("expected redirect to /profile, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	// Signup never establishes a session; the profile guard bounces to /login.
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected no session after signup")
	}
	if len(audit.events) != 1 || audit.events[0].Type != domain.EventSignup {
		t.Fatalf("expected signup audit event, got %+v", audit.events)
	}
}

func TestAuthHandler_Signup_InfrastructureFault(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		signupFn: func(ctx context.Context, username, email, password string) (*domain.User, error) {
			return nil, errors.New("store unreachable")
		},
	}
	h := newTestHandler(handlerDeps{auth: auth})

	c, _ := formRequest(t, e, "/signup", url.Values{
		"username": {"alice"}, "email": {"a@b.com"}, "password": {"Abcdef1"},
	})
	if err := h.Signup(c); err == nil {
		t.Fatalf("expected fault to propagate to the error handler")
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthHandler_Login_EmptyFields(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*domain.User, error) {
			t.Fatalf("credential lookup must not run")
			return nil, nil
		},
	}
	h := newTestHandler(handlerDeps{auth: auth})

	c, rec := formRequest(t, e, "/login", url.Values{"email": {""}, "password": {"x"}})
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgMissingLogin) {
		t.Fatalf("expected %q in body", msgMissingLogin)
	}
}

func TestAuthHandler_Login_BadCredentials(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*domain.User, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	sessions := newStubSessionStore()
	audit := &stubRecorder{}
	h := newTestHandler(handlerDeps{auth: auth, sessions: sessions, audit: audit})

	c, rec := formRequest(t, e, "/login", url.Values{"email": {"a@b.com"}, "password": {"Abcdef2"}})
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), msgBadCredentials) {
		t.Fatalf("expected %q in body", msgBadCredentials)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected no session established")
	}
	if len(audit.events) != 1 || audit.events[0].Type != domain.EventLoginFailure {
		t.Fatalf("expected login failure audit event, got %+v", audit.events)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*domain.User, error) {
			return &domain.User{ID: "1", Username: "alice", Email: email}, nil
		},
	}
	sessions := newStubSessionStore()
	h := newTestHandler(handlerDeps{auth: auth, sessions: sessions})

	c, rec := formRequest(t, e, "/login", url.Values{"email": {"a@b.com"}, "password": {"Abcdef1"}})
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/profile" {
		t.Fatalf("expected redirect to /profile, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected a session to be established")
	}

	var sessionCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookie {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatalf("expected session cookie to be set")
	}
	if !sessionCookie.HttpOnly {
		t.Fatalf("session cookie must be HttpOnly")
	}
}

func TestAuthHandler_Login_SessionFault(t *testing.T) {
	e := newTestEcho(t)
	auth := &stubAuthService{
		loginFn: func(ctx context.Context, email, password string) (*domain.User, error) {
			return &domain.User{ID: "1", Username: "alice", Email: email}, nil
		},
	}
	sessions := newStubSessionStore()
	sessions.createErr = errors.New("redis down")
	h := newTestHandler(handlerDeps{auth: auth, sessions: sessions})

	c, _ := formRequest(t, e, "/login", url.Values{"email": {"a@b.com"}, "password": {"Abcdef1"}})
	if err := h.Login(c); err == nil {
		t.Fatalf("expected session fault to propagate")
	}
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func TestAuthHandler_Logout_Success(t *testing.T) {
	e := newTestEcho(t)
	sessions := newStubSessionStore()
	token, _ := sessions.Create(context.Background(), domain.Identity{UserID: "1"})
	h := newTestHandler(handlerDeps{sessions: sessions})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected session destroyed")
	}
}

func TestAuthHandler_Logout_RedirectsDespiteFault(t *testing.T) {
	e := newTestEcho(t)
	sessions := newStubSessionStore()
	token, _ := sessions.Create(context.Background(), domain.Identity{UserID: "1"})
	sessions.destroyErr = errors.New("redis down")
	h := newTestHandler(handlerDeps{sessions: sessions})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Logout(c)
	if err == nil {
		t.Fatalf("expected teardown fault to be forwarded")
	}
	// The redirect is issued regardless of the fault.
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Fatalf("expected redirect to / despite fault, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

// ---------------------------------------------------------------------------
// Google
// ---------------------------------------------------------------------------

func TestAuthHandler_GoogleLogin(t *testing.T) {
	e := newTestEcho(t)
	states := &stubStateStore{issued: "state-abc"}
	google := &stubFederated{
		consentFn: func(state string) string {
			return "https://accounts.example.com/consent?state=" + state
		},
	}
	h := newTestHandler(handlerDeps{google: google, states: states})

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GoogleLogin(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "https://accounts.example.com/consent?state=state-abc" {
		t.Fatalf("unexpected consent redirect: %q", rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GoogleCallback_Success(t *testing.T) {
	e := newTestEcho(t)
	states := &stubStateStore{live: map[string]bool{"state-abc": true}}
	google := &stubFederated{
		completeFn: func(ctx context.Context, code string) (*domain.User, error) {
			if code != "code-1" {
				t.Fatalf("unexpected code: %q", code)
			}
			return &domain.User{ID: "1", Username: "dana", Email: "dana@example.com"}, nil
		},
	}
	sessions := newStubSessionStore()
	h := newTestHandler(handlerDeps{google: google, states: states, sessions: sessions})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=code-1&state=state-abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GoogleCallback(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != testHostname+"/profile" {
		t.Fatalf("expected redirect to %s/profile, got %d %q", testHostname, rec.Code, rec.Header().Get("Location"))
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected a session to be established")
	}
}

func TestAuthHandler_GoogleCallback_HandshakeFailure(t *testing.T) {
	e := newTestEcho(t)
	states := &stubStateStore{live: map[string]bool{"state-abc": true}}
	google := &stubFederated{
		completeFn: func(ctx context.Context, code string) (*domain.User, error) {
			return nil, errors.New("exchange failed")
		},
	}
	h := newTestHandler(handlerDeps{google: google, states: states})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=code-1&state=state-abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GoogleCallback(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != testHostname+"/login" {
		t.Fatalf("expected redirect to %s/login, got %d %q", testHostname, rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GoogleCallback_UnknownState(t *testing.T) {
	e := newTestEcho(t)
	states := &stubStateStore{live: map[string]bool{}}
	google := &stubFederated{
		completeFn: func(ctx context.Context, code string) (*domain.User, error) {
			t.Fatalf("handshake must not complete with an unknown state")
			return nil, nil
		},
	}
	h := newTestHandler(handlerDeps{google: google, states: states})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=code-1&state=forged", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GoogleCallback(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get("Location") != testHostname+"/login" {
		t.Fatalf("expected redirect to login, got %q", rec.Header().Get("Location"))
	}
}

func TestAuthHandler_GoogleCallback_ProviderError(t *testing.T) {
	e := newTestEcho(t)
	h := newTestHandler(handlerDeps{google: &stubFederated{}, states: &stubStateStore{}})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GoogleCallback(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Header().Get("Location") != testHostname+"/login" {
		t.Fatalf("expected redirect to login, got %q", rec.Header().Get("Location"))
	}
}
