package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/hazard-risk-service/internal/auth"
	"github.com/couchcryptid/hazard-risk-service/internal/domain"
	"github.com/couchcryptid/hazard-risk-service/internal/history"
	"github.com/couchcryptid/hazard-risk-service/internal/store"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Assessor produces a risk report for a city.
type Assessor interface {
	Assess(ctx context.Context, city string) (domain.RiskReport, error)
}

// StatsProvider summarizes the historical datasets.
type StatsProvider interface {
	Stats() history.Stats
}

// UserStore is the persistence the account and prediction routes need.
type UserStore interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	ListUsers(ctx context.Context) ([]store.User, error)
	DeleteUser(ctx context.Context, id uint) error
	MonthlyRegistrations(ctx context.Context) ([]store.MonthlyCount, error)
	RecentPredictions(ctx context.Context, limit int) ([]store.Prediction, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

// SessionCodec issues and parses session tokens.
type SessionCodec interface {
	Issue(sess auth.Session) (string, error)
	Parse(token string) (auth.Session, error)
	TTL() time.Duration
}

// Options wires the server's collaborators.
type Options struct {
	Addr        string
	Assessor    Assessor
	Ready       sharedobs.ReadinessChecker
	Stats       StatsProvider
	Users       UserStore
	Hasher      PasswordHasher
	Sessions    SessionCodec
	AdminEmail  string
	RecentLimit int
	Logger      *slog.Logger
}

// Server exposes the risk API alongside health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	opts       Options
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewServer builds the router and the underlying http.Server.
func NewServer(opts Options) *Server {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 10
	}

	r := chi.NewRouter()
	s := &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		opts:     opts,
		validate: validator.New(),
		logger:   opts.Logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(opts.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/predict", s.handlePredict)
	r.Get("/recent_predictions", s.handleRecentPredictions)
	r.Get("/historical_stats", s.handleHistoricalStats)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/dashboard", s.handleDashboard)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/admin", s.handleAdmin)
			r.Delete("/delete_user/{id}", s.handleDeleteUser)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return s.validate.Struct(dst)
}
