package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"latiafanny/backend/internal/app"
	"latiafanny/backend/internal/config"
	"latiafanny/backend/internal/httpapi"
	"latiafanny/backend/internal/logging"
	"latiafanny/backend/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open application")
	}
	defer a.Close()

	auth, err := httpapi.NewAuthManager(cfg.Auth.Secret, cfg.Auth.AccessTokenTTL, a.Repo, a.Denylist)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth manager")
	}
	api := httpapi.New(a.Service, auth, cfg.Server.AllowedOrigin, logger)

	jobs := scheduler.New(a.Service, cfg.Scheduler, a.Location, logger)
	if err := jobs.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	api.ReportJobs(jobs)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Address()).Str("timezone", a.Location.String()).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if cfg.Server.AllowedOrigin == "*" {
		return fmt.Errorf("ALLOWED_ORIGIN must name a single origin, not *")
	}
	return nil
}
