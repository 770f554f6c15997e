package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/digkill/magicpic/internal/httpx"
	"github.com/digkill/magicpic/internal/repository"
	"github.com/digkill/magicpic/internal/service"
)

type Server struct {
	addr      string
	username  string
	password  string
	log       *zap.Logger
	catalog   *service.CatalogService
	users     *service.UserService
	creations *service.CreationService
	analytics *service.AnalyticsService
	router    *chi.Mux
}

func NewServer(addr, username, password string, log *zap.Logger, catalog *service.CatalogService, users *service.UserService, creations *service.CreationService, analytics *service.AnalyticsService) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestLogger(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:      addr,
		username:  username,
		password:  password,
		log:       log,
		catalog:   catalog,
		users:     users,
		creations: creations,
		analytics: analytics,
		router:    r,
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
			r.Put("/{id}", s.handleUpdateCategory)
			r.Delete("/{id}", s.handleDeleteCategory)
		})
		protected.Route("/styles", func(r chi.Router) {
			r.Get("/", s.handleListStyles)
			r.Post("/", s.handleCreateStyle)
			r.Get("/{id}", s.handleGetStyle)
			r.Put("/{id}", s.handleUpdateStyle)
			r.Delete("/{id}", s.handleDeleteStyle)
			r.Post("/{id}/thumbnail", s.handleUploadThumbnail)
		})
		protected.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/{id}", s.handleGetUser)
			r.Delete("/{id}", s.handleDeleteUser)
			r.Post("/{id}/credits", s.handleAdjustCredits)
			r.Get("/{id}/transactions", s.handleTransactions)
		})
		protected.Get("/creations", s.handleRecentCreations)
		protected.Get("/analytics/stats", s.handleStats)
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", zap.Error(err))
		}
	}()

	s.log.Info("admin panel listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.catalog.Categories(r.Context(), false)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !s.decode(w, r, &req) {
		return
	}
	cat, err := s.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req service.CategoryInput
	if !s.decode(w, r, &req) {
		return
	}
	cat, err := s.catalog.UpdateCategory(r.Context(), id, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.catalog.DeleteCategory(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStyles(w http.ResponseWriter, r *http.Request) {
	styles, err := s.catalog.ListAllStyles(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, styles)
}

func (s *Server) handleCreateStyle(w http.ResponseWriter, r *http.Request) {
	var req service.StyleInput
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.catalog.CreateStyle(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleGetStyle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	st, err := s.catalog.GetStyle(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateStyle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req service.StyleInput
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.catalog.UpdateStyle(r.Context(), id, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteStyle(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.catalog.DeleteStyle(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadThumbnail takes a multipart "file" field.
func (s *Server) handleUploadThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxImageBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file error", http.StatusBadRequest)
		return
	}
	mime := strings.TrimSpace(strings.Split(header.Header.Get("Content-Type"), ";")[0])
	st, err := s.catalog.UploadStyleThumbnail(r.Context(), id, data, strings.ToLower(mime))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.UserFilter{Search: q.Get("search"), Page: pageFrom(r)}
	if v, err := strconv.ParseBool(q.Get("is_verified")); err == nil {
		filter.IsVerified = &v
	}
	if v, err := strconv.ParseBool(q.Get("is_active")); err == nil {
		filter.IsActive = &v
	}
	users, err := s.users.List(r.Context(), filter)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.users.Create(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.users.Delete(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdjustCredits(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req service.CreditAdjustment
	if !s.decode(w, r, &req) {
		return
	}
	balance, err := s.users.AdjustCredits(r.Context(), id, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"user_id": id, "credits": balance})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	txs, err := s.users.Transactions(r.Context(), id, pageFrom(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleRecentCreations(w http.ResponseWriter, r *http.Request) {
	list, err := s.creations.Recent(r.Context(), pageFrom(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analytics.Stats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(user), []byte(s.username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
				w.Header().Set("WWW-Authenticate", `Basic realm="magicpic-admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// fail answers with the service error's status. Operators see the message,
// internal causes stay in the log.
func (s *Server) fail(w http.ResponseWriter, err error) {
	svcErr := service.AsError(err)
	if svcErr.Code == service.CodeInternal {
		s.log.Error("admin handler error", zap.Error(err))
	}
	s.writeJSON(w, svcErr.Code.HTTPStatus(), map[string]string{
		"code":    string(svcErr.Code),
		"message": svcErr.Message,
	})
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func pageFrom(r *http.Request) repository.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return repository.Page{Page: page, Limit: limit}
}
