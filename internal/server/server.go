// Package server provides the HTTP server and routing for the analog engine.
package server

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/precedent/internal/cache"
	"github.com/aristath/precedent/internal/clients/embedding"
	"github.com/aristath/precedent/internal/database"
	"github.com/aristath/precedent/internal/modules/analogs"
	analogshandlers "github.com/aristath/precedent/internal/modules/analogs/handlers"
	"github.com/aristath/precedent/internal/modules/clustering"
	ensemblehandlers "github.com/aristath/precedent/internal/modules/ensemble/handlers"
	"github.com/aristath/precedent/internal/modules/optimization"
	optimizationhandlers "github.com/aristath/precedent/internal/modules/optimization/handlers"
	"github.com/aristath/precedent/internal/modules/regime"
	regimehandlers "github.com/aristath/precedent/internal/modules/regime/handlers"
	"github.com/aristath/precedent/internal/modules/similarity"
)

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	CacheDB  *database.DB // optional; nil falls back to in-memory caching
	Port     int
	DevMode  bool
	CacheTTL time.Duration

	// Engine configuration
	Similarity   similarity.Config
	EmbeddingURL string // optional; "" disables semantic similarity

	// Seed seeds the shared random stream. Zero picks a time-based seed;
	// tests pass a fixed seed for reproducible output. The stream itself is
	// mutex-guarded because handlers draw from it concurrently.
	Seed int64
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	port   int

	cache    *cache.Cache
	analogs  *analogs.Service
	clusters *clustering.Service
}

// New creates a new HTTP server with all engine services wired.
func New(cfg Config) (*Server, error) {
	log := cfg.Log
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := newConcurrentRand(seed)

	var store cache.Store = cache.NewMemoryStore()
	if cfg.CacheDB != nil {
		sqlStore, err := cache.NewSQLStore(cfg.CacheDB)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache store: %w", err)
		}
		store = sqlStore
	}
	queryCache := cache.New(store, cfg.CacheTTL, log)

	var embedder similarity.Embedder
	if cfg.EmbeddingURL != "" {
		embedder = embedding.NewClient(cfg.EmbeddingURL, queryCache, log)
	}

	engine := similarity.NewEngine(cfg.Similarity, log)
	combiner := similarity.NewCombiner(engine, embedder, log)
	clusters := clustering.NewService(rng, log)
	analogService := analogs.NewService(engine, combiner, clusters, queryCache, log)
	classifier := regime.NewClassifier(log)
	optimizer := optimization.NewOptimizer(optimization.Config{}, rng, log)

	s := &Server{
		router:   chi.NewRouter(),
		log:      log.With().Str("component", "server").Logger(),
		port:     cfg.Port,
		cache:    queryCache,
		analogs:  analogService,
		clusters: clusters,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(analogService, clusters, classifier, optimizer, rng, log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Cache exposes the query cache for scheduled eviction.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(
	analogService *analogs.Service,
	clusters *clustering.Service,
	classifier *regime.Classifier,
	optimizer *optimization.Optimizer,
	rng *rand.Rand,
	log zerolog.Logger,
) {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		analogshandlers.NewHandler(analogService, clusters, log).RegisterRoutes(r)
		ensemblehandlers.NewHandler(rng, log).RegisterRoutes(r)
		optimizationhandlers.NewHandler(optimizer, log).RegisterRoutes(r)
		regimehandlers.NewHandler(classifier, log).RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs each request with its status and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
