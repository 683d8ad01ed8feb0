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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/PartyCast/internal/adapters/http"
	"github.com/dkeye/PartyCast/internal/app"
	"github.com/dkeye/PartyCast/internal/catalog"
	"github.com/dkeye/PartyCast/internal/config"
	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/discovery"
	"github.com/dkeye/PartyCast/internal/player"
)

// dummyLength is how long a track lasts when no sound card is driven.
const dummyLength = 3 * time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	lib := catalog.NewFilesystem(cfg.LibraryPath, cfg.ArtworkCachePath)
	lobby, err := app.NewLobby(app.Options{
		Title:      cfg.Title,
		Port:       cfg.Port,
		HostName:   cfg.HostUsername,
		Moderators: cfg.Moderators,
		Catalog:    lib,
		Device:     selectDevice(cfg),
		Policy:     app.SimplePolicy{},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create lobby")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := lobby.Run(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := lobby.Reload(gctx); err != nil {
			log.Error().Err(err).Msg("initial library load")
		}
		err := lib.Watch(gctx, cfg.WatchDebounce, func() {
			if err := lobby.Reload(gctx); err != nil {
				log.Warn().Err(err).Msg("library reload")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("library watcher stopped")
		}
		return nil
	})
	if cfg.Discovery {
		g.Go(func() error {
			conn, err := discovery.Listen(cfg.Port, cfg.MulticastGroup)
			if err != nil {
				log.Warn().Err(err).Msg("discovery disabled")
				return nil
			}
			return discovery.Serve(gctx, conn, cfg.Title)
		})
	}

	r := router.SetupRouter(gctx, cfg, lobby, lib)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("title", cfg.Title).Msg("PartyCast server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func selectDevice(cfg *config.Config) core.Device {
	switch cfg.Player {
	case "dummy":
		return player.NewDummy(dummyLength, cfg.Volume)
	case "beep":
		return player.NewBeep(cfg.Volume)
	}
	if !player.AudioAvailable {
		log.Info().Msg("built without audio output, using dummy player")
		return player.NewDummy(dummyLength, cfg.Volume)
	}
	b := player.NewBeep(cfg.Volume)
	if err := b.Prepare(cfg.Title); err != nil {
		log.Warn().Err(err).Msg("no audio output, falling back to dummy player")
		return player.NewDummy(dummyLength, cfg.Volume)
	}
	return b
}
