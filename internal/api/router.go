package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/memberhub/member-portal/internal/api/handler"
	"github.com/memberhub/member-portal/internal/api/middleware"
	"github.com/memberhub/member-portal/internal/api/view"
	"github.com/memberhub/member-portal/internal/core/ports"
)

// Deps carries the wired collaborators the router needs.
type Deps struct {
	Auth     ports.AuthService
	Sessions ports.SessionStore
	Google   ports.FederatedAuthenticator
	States   ports.StateStore
	Audit    ports.EventRecorder
	Hostname string
	Log      zerolog.Logger

	Mongo *mongo.Database
	Redis *redis.Client
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	renderer, err := view.New()
	if err != nil {
		return nil, err
	}
	e.Renderer = renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("portal"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(
		deps.Auth, deps.Sessions, deps.Google, deps.States,
		deps.Audit, deps.Hostname, deps.Log,
	)
	loggedIn := middleware.RequireLoggedIn(deps.Sessions)
	loggedOut := middleware.RequireLoggedOut(deps.Sessions)

	// --- Auth routes ---
	e.GET("/", authHandler.Home)
	e.GET("/signup", authHandler.SignupPage, loggedOut)
	e.POST("/signup", authHandler.Signup, loggedOut)
	e.GET("/login", authHandler.LoginPage, loggedOut)
	e.POST("/login", authHandler.Login, loggedOut)
	e.GET("/profile", authHandler.Profile, loggedIn)
	e.POST("/logout", authHandler.Logout)
	e.GET("/auth/google", authHandler.GoogleLogin)
	e.GET("/auth/google/callback", authHandler.GoogleCallback)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	return e, nil
}
