package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/memberhub/member-portal/internal/api"
	"github.com/memberhub/member-portal/internal/core/service"
	"github.com/memberhub/member-portal/internal/infrastructure/config"
	mongodb "github.com/memberhub/member-portal/internal/infrastructure/db/mongo"
	redisdb "github.com/memberhub/member-portal/internal/infrastructure/db/redis"
	"github.com/memberhub/member-portal/internal/infrastructure/queue"
	"github.com/memberhub/member-portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- MongoDB ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	userRepo := mongodb.NewUserRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("user index creation failed")
	}
	eventRepo := mongodb.NewEventRepository(db)

	// --- Redis ---
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		_ = rdb.Close()
	}()

	sessions := redisdb.NewSessionStore(rdb, cfg.SessionTTL)
	states := redisdb.NewStateStore(rdb)

	// --- Core services ---
	authService := service.NewAuthService(userRepo, service.NewBcryptHasher())
	googleProvider := service.NewGoogleProvider(
		cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.AppHostname, userRepo,
	)

	// --- Audit pipeline ---
	dispatcher := queue.NewDispatcher(0, service.NewEventService(eventRepo, log), log)
	dispatcher.Start(ctx)

	// --- HTTP ---
	e, err := api.NewRouter(api.Deps{
		Auth:     authService,
		Sessions: sessions,
		Google:   googleProvider,
		States:   states,
		Audit:    dispatcher,
		Hostname: cfg.AppHostname,
		Log:      log,
		Mongo:    db,
		Redis:    rdb,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
