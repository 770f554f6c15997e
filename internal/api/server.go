// Package api serves the public MagicPic HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/auth"
	"github.com/digkill/magicpic/internal/httpx"
	"github.com/digkill/magicpic/internal/service"
)

type Deps struct {
	Auth        *service.AuthService
	Catalog     *service.CatalogService
	Generation  *service.GenerationService
	Guest       *service.GuestService
	Creations   *service.CreationService
	Images      ImageSource
	Issuer      *auth.Issuer
	Metrics     Metrics
	Log         *zap.Logger
	CORSOrigins []string
	ReadyCheck  func(ctx context.Context) error
}

// Metrics is the slice of the Prometheus registry the router touches.
type Metrics interface {
	httpx.HTTPObserver
	Handler() http.Handler
}

type Server struct {
	addr   string
	deps   Deps
	log    *zap.Logger
	router *chi.Mux
}

func NewServer(addr string, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	s := &Server{addr: addr, deps: d, log: d.Log}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(s.log))
	if s.deps.Metrics != nil {
		r.Use(httpx.Instrument(s.deps.Metrics))
	}
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, service.CodeNotFound, "Not found")
	})

	r.Get("/healthz", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	requireUser := auth.Bearer(s.deps.Issuer, func(w http.ResponseWriter, _ *http.Request, msg string) {
		writeError(w, http.StatusUnauthorized, service.CodeUnauthorized, msg)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Post("/logout", s.handleLogout)
				r.Get("/me", s.handleMe)
			})
		})

		r.Get("/styles", s.handleListStyles)
		r.Get("/styles/trending", s.handleTrending)
		r.Get("/categories", s.handleCategories)

		r.Route("/creations", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/generate", s.handleGenerate)
			r.Get("/mine", s.handleMine)
			r.Delete("/{id}", s.handleDeleteCreation)
		})

		r.Post("/guest/generate", s.handleGuestGenerate)
		r.Get("/images/*", s.handleImage)
	})
	return r
}

// Run serves until ctx is cancelled. Write timeout covers the whole model
// fallback chain, which can take minutes.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", zap.Error(err))
		}
	}()

	s.log.Info("api listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, service.CodeInternal, "unhealthy")
			return
		}
	}
	writeOK(w, http.StatusOK, map[string]string{"status": "healthy"}, "")
}

func (s *Server) cors(next http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, o := range s.deps.CORSOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (allowed["*"] || allowed[origin]) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && origin != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
