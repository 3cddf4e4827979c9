package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saltedfishops/core"
)

func main() {
	cfg := core.Load()
	log := core.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	defer db.Close()

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	hasher := core.NewPasswordHasher(cfg.BcryptCost)
	tokens, err := core.NewTokenService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid token configuration")
	}

	userRepo := core.NewPgUserRepository(db)
	authService := core.NewAuthService(userRepo, hasher, tokens)

	if err := core.BootstrapAdmin(ctx, userRepo, hasher, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("bootstrap admin failed")
	}

	heartbeat := core.NewHeartbeatState(core.NewInstanceID(), cfg.Environment)
	go heartbeat.Start(ctx, redisClient)

	router := core.NewRouter(cfg, log, authService, userRepo, hasher, db, redisClient)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
