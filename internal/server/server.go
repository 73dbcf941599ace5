// Package server is the composition root of the HTTP API.
//
// New assembles the dependency chain:
//
//	config → sqlite.DB → repositories → services → handlers → routes
//
// and Start runs the listener until SIGINT/SIGTERM, then drains in-flight
// requests. The executor is built by the caller and passed in, so the same
// server runs on the local or the docker backend.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/classroom/internal/auth"
	"github.com/sakif/classroom/internal/config"
	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/handler"
	"github.com/sakif/classroom/internal/middleware"
	"github.com/sakif/classroom/internal/ratelimit"
	sqliteRepo "github.com/sakif/classroom/internal/repository/sqlite"
	"github.com/sakif/classroom/internal/service"
)

// Server owns the router and every resource that must be closed on shutdown.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	closers []io.Closer
}

// New wires the application. On error everything opened so far is closed.
func New(cfg *config.Config, exec executor.Executor, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(exec); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes(exec executor.Executor) error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth.jwt_secret: %w", err)
	}

	limiter, err := s.newLimiter()
	if err != nil {
		return err
	}

	var github handler.OAuthProvider
	if gh := s.config.Auth.GitHub; gh.Enabled() {
		callback := gh.CallbackURL
		if callback == "" {
			callback = fmt.Sprintf("http://localhost:%d/auth/github/callback", s.config.Server.Port)
		}
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, callback)
	}

	authService := service.NewAuthService(s.db.Users(), tokens, auth.NewPasswordService(auth.DefaultPasswordCost), s.logger)
	codeService := service.NewCodeService(exec, s.db.Sessions(), limiter, s.logger)

	authHandler := handler.NewAuthHandler(authService, github, tokens, s.logger)
	codeHandler := handler.NewCodeHandler(codeService, s.logger)

	// Global middleware, outermost first.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", handler.HandleHealth(s.db))

	s.router.Route("/auth", func(r chi.Router) {
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
		r.With(auth.RequireAuth(tokens)).Post("/logout", authHandler.HandleLogout)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/languages", codeHandler.HandleLanguages)
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/profile", authHandler.HandleProfile)

			r.Route("/courses/{courseID}/code", func(r chi.Router) {
				r.Post("/execute", codeHandler.HandleExecute)
				r.Post("/sessions", codeHandler.HandleCreateSession)
				r.Get("/sessions", codeHandler.HandleListSessions)
				r.Get("/sessions/{sessionID}", codeHandler.HandleGetSession)
			})
		})
	})

	return nil
}

// newLimiter connects to Redis when rate limiting is enabled.
func (s *Server) newLimiter() (ratelimit.Limiter, error) {
	rl := s.config.RateLimit
	if !rl.Enabled {
		return ratelimit.Noop{}, nil
	}

	rdb, err := ratelimit.Open(context.Background(), rl.RedisAddr, rl.RedisPassword)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, rdb)

	s.logger.Info("execution rate limiting enabled",
		slog.String("redis", rl.RedisAddr),
		slog.Int("limit", rl.Limit),
		slog.Duration("window", rl.Window),
	)
	return ratelimit.NewRedis(rdb, rl.Limit, rl.Window, s.logger)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and any other owned connection.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start serves until the process receives SIGINT or SIGTERM.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Storage.DBPath),
			slog.String("executor", s.config.Executor.Backend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Running executions get the remaining time to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
