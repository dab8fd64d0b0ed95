// Package server assembles the snapshot server: storage, HTTP routes,
// websocket notifications and background maintenance.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/daybook/internal/server/config"
	"github.com/iudanet/daybook/internal/server/handlers"
	"github.com/iudanet/daybook/internal/server/middleware"
	"github.com/iudanet/daybook/internal/server/notify"
	"github.com/iudanet/daybook/internal/server/storage"
)

// Storage - все, что серверу нужно от базы данных
type Storage interface {
	storage.UserStorage
	storage.TokenStorage
	storage.DocumentStorage
	handlers.Pinger
}

// Server - HTTP сервер снимков
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	storage Storage
	hub     *notify.Hub
	limiter *middleware.RateLimiter
	http    *http.Server
}

// New собирает сервер поверх готового хранилища
func New(cfg *config.Config, store Storage, logger *slog.Logger, version string) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		storage: store,
		hub:     notify.NewHub(logger),
		limiter: middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, logger),
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(version),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	// Shutdown не закрывает hijacked websocket соединения
	s.http.RegisterOnShutdown(s.hub.Close)
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes(version string) http.Handler {
	jwtConfig := s.cfg.JWT.Handlers()

	health := handlers.NewHealthHandler(s.logger, s.storage, version)
	auth := handlers.NewAuthHandler(s.logger, s.storage, s.storage, jwtConfig)
	documents := handlers.NewDocumentHandler(s.logger, s.storage, s.hub)
	notifications := handlers.NewNotifyHandler(s.logger, s.hub)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logging(s.logger, "/api/v1/health"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, s.logger, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, s.logger, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.limiter.Middleware)
			r.Post("/register", auth.Register)
			r.Get("/salt/{username}", auth.GetSalt)
			r.Post("/login", auth.Login)
			r.Post("/refresh", auth.Refresh)
			r.Post("/logout", auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(s.logger, jwtConfig))
			r.Get("/documents", documents.List)
			r.Post("/documents", documents.Create)
			r.Get("/documents/{key}", documents.Get)
			r.Put("/documents/{key}", documents.Put)
			r.Get("/notify", notifications.Subscribe)
		})
	})

	return r
}

// Run слушает cfg.Addr до отмены ctx, затем корректно останавливается
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает уже открытый listener (используется в тестах)
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.cleanupTokens(gctx)
		return nil
	})

	return g.Wait()
}

// cleanupTokens периодически удаляет истекшие refresh токены
func (s *Server) cleanupTokens(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.storage.DeleteExpiredTokens(ctx)
			if err != nil {
				s.logger.Error("failed to delete expired tokens", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("expired refresh tokens deleted", "count", n)
			}
		}
	}
}
