// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/time-economy/internal/logging"
	"github.com/time-economy/internal/models"
	"github.com/time-economy/internal/service"
	"github.com/time-economy/internal/types"
)

// Service interfaces for dependency injection and testing

// ProfileServiceInterface defines the interface for profile operations
type ProfileServiceInterface interface {
	GetProfile(ctx context.Context, socialID types.SocialID) (*models.Profile, error)
	SaveProfile(ctx context.Context, headerSocialID string, input *service.SaveProfileInput) (*models.Profile, error)
}

// NeedServiceInterface defines the interface for need operations
type NeedServiceInterface interface {
	ListNeeds(ctx context.Context) ([]*models.Need, error)
	CreateNeed(ctx context.Context, headerSocialID string, input *service.CreateNeedInput) (*models.Need, error)
	DeleteNeed(ctx context.Context, headerSocialID string, input *service.DeleteNeedInput) error
}

// SearchServiceInterface defines the interface for profile search
type SearchServiceInterface interface {
	Search(ctx context.Context, q string) ([]*models.Profile, error)
}

// NonceIssuer hands out single-use sign-in nonces
type NonceIssuer interface {
	Issue(ctx context.Context) (string, time.Time, error)
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP API server.
type Server struct {
	router         *mux.Router
	httpServer     *http.Server
	profileService ProfileServiceInterface
	needService    NeedServiceInterface
	searchService  SearchServiceInterface
	nonces         NonceIssuer
	checks         map[string]Pinger
	throttle       *RateLimiter
	logger         *logging.Logger
	config         *ServerConfig
	stopSweep      context.CancelFunc
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// IdentityHeader carries the platform-asserted social id
	IdentityHeader    string
	RequestsPerSecond int
	Burst             int
}

// Dependencies groups the services a Server routes to. Nonces and Checks are optional.
type Dependencies struct {
	Profiles ProfileServiceInterface
	Needs    NeedServiceInterface
	Search   SearchServiceInterface
	Nonces   NonceIssuer
	Checks   map[string]Pinger
	Logger   *logging.Logger
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, deps *Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	if config.IdentityHeader == "" {
		config.IdentityHeader = "X-Social-ID"
	}

	s := &Server{
		router:         mux.NewRouter(),
		profileService: deps.Profiles,
		needService:    deps.Needs,
		searchService:  deps.Search,
		nonces:         deps.Nonces,
		checks:         deps.Checks,
		throttle:       NewRateLimiter(config.RequestsPerSecond, config.Burst),
		logger:         logger,
		config:         config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Order matters: request id first so every later log line carries it.
	s.router.Use(RequestIDMiddleware(s.logger))
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware(s.config.IdentityHeader))
	s.router.Use(RateLimitMiddleware(s.throttle))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.nonces != nil {
		s.router.HandleFunc("/auth/nonce", s.handleIssueNonce).Methods(http.MethodGet)
	}

	s.router.HandleFunc("/profile", s.handleGetProfile).Methods(http.MethodGet)
	s.router.HandleFunc("/profile", s.handleSaveProfile).Methods(http.MethodPost)

	s.router.HandleFunc("/needs", s.handleListNeeds).Methods(http.MethodGet)
	s.router.HandleFunc("/needs", s.handleCreateNeed).Methods(http.MethodPost)
	s.router.HandleFunc("/needs", s.handleDeleteNeed).Methods(http.MethodDelete)

	s.router.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)

	// Preflight requests are answered by CORSMiddleware; the route only has to match.
	s.router.Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := check.Ping(ctx); err != nil {
			components[name] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			components[name] = "ok"
		}
		cancel()
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":     health,
		"service":    "time-economy",
		"components": components,
	})
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	go s.throttle.SweepLoop(ctx, time.Minute, 10*time.Minute)

	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	if s.stopSweep != nil {
		s.stopSweep()
	}
	return s.httpServer.Shutdown(ctx)
}
