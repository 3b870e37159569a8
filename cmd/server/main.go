package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"volleysim/internal/config"
	"volleysim/internal/game"
	"volleysim/internal/roster"
	"volleysim/internal/server"
	"volleysim/internal/session"
	"volleysim/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load-config")
	}
	if err := config.SetupLogging(cfg.LogLevel, false); err != nil {
		log.Fatal().Err(err).Msg("setup-logging")
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open-database")
	}
	defer store.Close()

	rs, err := roster.Load(cfg.RosterPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load-roster")
	}

	registry := game.DefaultRegistry()

	mgr := session.NewManager(registry, rs, store, session.Options{
		Depth:            cfg.SearchDepth,
		Playouts:         cfg.Rollouts,
		ManagerInterval:  cfg.ManagerInterval,
		MaxSubstitutions: cfg.MaxSubstitutions,
	})
	if err := mgr.Restore(); err != nil {
		log.Warn().Err(err).Msg("restore-matches")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go mgr.CleanupLoop(ctx, cfg.CleanupInterval, cfg.SessionMaxAge)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(registry, rs, mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http-shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Strs("teams", rs.Names()).Msg("listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server")
	}
	mgr.Shutdown()
	log.Info().Msg("stopped")
}
