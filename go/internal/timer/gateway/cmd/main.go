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

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/cueclock/go/internal/config"
	"github.com/mcdev12/cueclock/go/internal/timer"
	"github.com/mcdev12/cueclock/go/internal/timer/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("timer gateway failed")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing LOG_LEVEL: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	defaults, err := config.LoadTimerDefaults(cfg.TimerDefaultsFile)
	if err != nil {
		return fmt.Errorf("loading timer defaults: %w", err)
	}

	coordinator := timer.NewCoordinator(timer.Config{
		Clock:        clockwork.NewRealClock(),
		TickInterval: cfg.TickInterval,
		Defaults:     defaults,
	})

	var mirror *gateway.JetStreamMirror
	if cfg.NATS.URL != "" {
		mirrorCfg := gateway.DefaultJetStreamMirrorConfig()
		mirrorCfg.URL = cfg.NATS.URL
		mirrorCfg.StreamName = cfg.NATS.Stream
		mirrorCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

		mirror, err = gateway.NewJetStreamMirror(ctx, mirrorCfg)
		if err != nil {
			return fmt.Errorf("creating JetStream mirror: %w", err)
		}
		defer mirror.Close()
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.StaticDir = cfg.StaticDir
	gatewayConfig.AllowedOrigins = cfg.CORSAllowedOrigins

	gatewayService := gateway.NewService(gatewayConfig, coordinator, mirror)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gatewayService.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str("addr", server.Addr).
		Dur("tick_interval", cfg.TickInterval).
		Bool("nats_mirror", mirror != nil).
		Msg("starting timer gateway")

	g, gctx := errgroup.WithContext(ctx)

	// Start gateway service (coordinator, ticker and mirror)
	g.Go(func() error {
		return gatewayService.Start(gctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		log.Info().Msgf("control panel: http://localhost:%d/control", cfg.Port)
		log.Info().Msgf("display: http://localhost:%d/display", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("timer gateway shutdown complete")
	return nil
}
