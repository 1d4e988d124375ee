package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/settlement_center/backend/internal/artifact"
	"github.com/settlement_center/backend/internal/config"
	"github.com/settlement_center/backend/internal/db"
	httpapi "github.com/settlement_center/backend/internal/http"
	"github.com/settlement_center/backend/internal/settlement"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "settlement-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	artifacts, err := artifact.NewXLSXStore(cfg.ArtifactDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.ArtifactDir).Msg("failed to prepare artifact dir")
	}

	engine := &settlement.Engine{
		Sources:   store,
		Artifacts: artifacts,
		Config:    settlement.DefaultConfig(),
		Logger:    logger,
		Notify: func(msg string) {
			logger.Warn().Msg(msg)
		},
	}

	router := httpapi.Router(cfg, store, engine, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
