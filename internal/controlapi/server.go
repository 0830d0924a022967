// Package controlapi implements the admin control plane (NEW feature,
// supplementing the distilled wire protocol): a small chi-mounted HTTP API
// exposing operational endpoints the wire protocol has no opcode for
// (session listing/kicking, health, metrics). Grounded on the teacher's
// internal/controlplane/api package, adapted from DittoFS's share/adapter
// resource model down to vaultd's single "sessions" resource.
package controlapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudvault/vaultd/internal/controlapi/auth"
	"github.com/cloudvault/vaultd/internal/logger"
	"github.com/cloudvault/vaultd/internal/store/identity"
)

// Config configures the control-plane HTTP server.
type Config struct {
	Port      int
	JWTSecret string
	TokenTTL  time.Duration
	Registry  http.Handler // promhttp handler for /metrics, may be nil
}

// Server is the admin control-plane HTTP server. It never duplicates a
// wire-protocol opcode; it is an operational surface only.
type Server struct {
	http         *http.Server
	shutdownOnce sync.Once
}

// NewServer builds a Server wired to users (for login) and sessions (for
// the session-management endpoints).
func NewServer(cfg Config, users identity.Store, sessions SessionLister) (*Server, error) {
	jwtSvc, err := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("controlapi: %w", err)
	}

	router := newRouter(jwtSvc, users, sessions, cfg.Registry)

	return &Server{
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}, nil
}

func newRouter(jwtSvc *auth.Service, users identity.Store, sessions SessionLister, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	health := &healthHandler{startedAt: time.Now()}
	r.Get("/healthz", health.Healthz)

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	authH := &authHandler{users: users, jwt: jwtSvc}
	r.Post("/api/v1/auth/login", authH.Login)

	r.Group(func(r chi.Router) {
		r.Use(jwtAuth(jwtSvc))

		r.Get("/api/v1/auth/me", authH.Me)

		sessH := &sessionHandler{sessions: sessions}
		r.Route("/api/v1/sessions", func(r chi.Router) {
			r.Get("/", sessH.List)
			r.Post("/{id}/kick", sessH.Kick)
		})
	})

	return r
}

// Serve runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("controlapi listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Stop gracefully shuts the server down; safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.http.Shutdown(ctx)
	})
	return err
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("controlapi request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
