package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := NewFlagSet("squadron-server")
	if err := flags.Parse(args); err != nil {
		return err
	}
	configDir, _ := flags.GetString("config-dir")
	cfg, err := LoadConfig(configDir, flags)
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogPretty)

	deps := HubDeps{Logger: logger}
	if cfg.DBPath != "" {
		db, err := OpenDB(cfg.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		auth, err := NewAuth(db, logger)
		if err != nil {
			return err
		}
		analytics := NewAnalytics(db, logger)
		defer analytics.Stop()

		deps.DB = db
		deps.Auth = auth
		deps.Analytics = analytics
	} else {
		logger.Warn().Msg("no database configured, accounts and leaderboard disabled")
	}

	hub := NewHub(cfg, deps)
	done := make(chan struct{})
	go hub.Run(done)
	defer close(done)

	server := &http.Server{Addr: cfg.Addr, Handler: SetupRoutes(hub)}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("client", cfg.ClientDir).
			Int("tickRate", cfg.TickRate).
			Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown")
	}
	return nil
}
