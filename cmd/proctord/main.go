package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ferrandin/proctor/internal/app"
	"github.com/ferrandin/proctor/internal/config"
)

func main() {
	// Local deployments keep their settings in a .env file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config error")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	ctx := context.Background()
	result, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build failed")
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			log.Error().Err(err).Msg("cleanup failed")
		}
	}()

	runCtx, runCancel := context.WithCancel(ctx)
	defer runCancel()
	result.Persister.Start(runCtx)
	result.Engine.StartJanitor(runCtx, cfg.JanitorInterval)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: result.API.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	// Stop the write-behind worker before the store closes.
	runCancel()
	result.Persister.Wait()

	log.Info().Msg("shutdown complete")
}
