// Package main is the entry point for the cargo-realm reference API server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/config"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/server"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/store"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/status"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "cargo-realm-api").Str("version", version).Logger()
	}

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Str("version", version).Str("commit", commit).Str("build_date", buildDate).Msg("starting cargo-realm-api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	st := store.NewSQLiteStore(db)
	if err := st.Init(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database schema")
	}
	logger.Info().Str("path", cfg.DBPath).Msg("database ready")

	srv := server.New(st, status.NewMachine(), cfg, version, commit, buildDate)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case serveErr := <-errCh:
		logger.Error().Err(serveErr).Msg("HTTP server error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
	}
	logger.Info().Msg("server stopped gracefully")
}
