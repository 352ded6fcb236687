// Package server exposes the gateway over HTTP: the chat endpoint, session
// diagnostics, health probes, and the account endpoints when a user store is
// configured.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	contractx "github.com/shreyvishal/beckn-deg-bot/agent/contract"
	"github.com/shreyvishal/beckn-deg-bot/agent/router"
)

// Config is the HTTP listener configuration, loaded from SERVER_* env vars.
type Config struct {
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"PORT" default:"8000"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func (c Config) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Gateway is the conversational surface the server forwards chat traffic to.
type Gateway interface {
	Handle(ctx context.Context, in router.Input) (contractx.Result, error)
	SessionSnapshot(ctx context.Context, sessionKey string) ([]contractx.Turn, error)
}

type Server struct {
	cfg      Config
	gateway  Gateway
	accounts *AccountHandler
	mux      *chi.Mux
}

// New builds the route tree. accounts may be nil, in which case the /auth
// endpoints report unavailable and chat runs unauthenticated.
func New(cfg Config, gateway Gateway, accounts *AccountHandler) (*Server, error) {
	if gateway == nil {
		return nil, errors.New("gateway is required")
	}

	s := &Server{
		cfg:      cfg,
		gateway:  gateway,
		accounts: accounts,
	}

	mux := chi.NewRouter()
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(requestLogger)
	mux.Use(chimiddleware.Recoverer)
	mux.Use(corsAllowAll)

	mux.Get("/ping", s.handlePing)

	mux.Route("/ai", func(r chi.Router) {
		r.Get("/health", s.handleAIHealth)
		r.Group(func(r chi.Router) {
			if accounts != nil {
				r.Use(accounts.Authenticate)
			}
			r.Post("/chat", s.handleChat)
			r.Get("/session/{sessionID}", s.handleSessionSnapshot)
		})
	})

	mux.Route("/auth", func(r chi.Router) {
		r.Get("/health", s.handleAuthHealth)
		if accounts != nil {
			r.Post("/register", accounts.HandleRegister)
			r.Post("/login", accounts.HandleLogin)
			r.Group(func(r chi.Router) {
				r.Use(accounts.Authenticate)
				r.Post("/logout", accounts.HandleLogout)
				r.Get("/me", accounts.HandleMe)
			})
		}
	})

	s.mux = mux
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.addr(),
		Handler:      s.mux,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}
