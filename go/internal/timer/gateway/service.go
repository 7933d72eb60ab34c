package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/cueclock/go/internal/timer"
)

// Service is the timer gateway: it runs the coordinator and connects
// WebSocket observers and the optional JetStream mirror to it.
type Service struct {
	coordinator       *timer.Coordinator
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	mirror            *JetStreamMirror
	config            Config
}

// Config holds configuration for the timer gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	StaticDir        string
	AllowedOrigins   []string
}

// DefaultConfig returns default configuration for the timer gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		StaticDir:        "public",
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates a new timer gateway service. mirror may be nil.
func NewService(config Config, coordinator *timer.Coordinator, mirror *JetStreamMirror) *Service {
	connectionManager := NewConnectionManager(coordinator, config.ConnectionConfig)

	return &Service{
		coordinator:       coordinator,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(coordinator),
		mirror:            mirror,
		config:            config,
	}
}

// Start runs the coordinator, and the mirror when configured, until ctx
// is cancelled. Open connections are dropped on the way out.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting timer gateway service")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.coordinator.Run(gctx)
	})

	if s.mirror != nil {
		g.Go(func() error {
			if err := s.coordinator.Subscribe(gctx, s.mirror); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, timer.ErrCoordinatorStopped) {
					return nil
				}
				return fmt.Errorf("subscribe mirror: %w", err)
			}
			return s.mirror.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.connectionManager.CloseAll()
		return nil
	})

	err := g.Wait()
	log.Info().Msg("timer gateway service stopped")
	return err
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(r chi.Router) {
	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)
	log.Info().Msg("timer gateway routes registered")
}

// Handler builds the full HTTP handler: middleware, gateway routes,
// health check, pages, CORS and h2c.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	s.RegisterRoutes(r)
	RegisterPageRoutes(r, s.config.StaticDir)

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})

	return h2c.NewHandler(c.Handler(r), &http2.Server{})
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
