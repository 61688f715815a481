// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/studyaid/quizmatch/internal/cache"
	"github.com/studyaid/quizmatch/internal/common"
	"github.com/studyaid/quizmatch/internal/data/orchestrator"
	"github.com/studyaid/quizmatch/internal/engine"
	"github.com/studyaid/quizmatch/internal/searchindex"
	"github.com/studyaid/quizmatch/internal/sqlite"
)

type Server struct {
	router  chi.Router
	engine  *engine.Engine
	catalog *sqlite.Store
	index   searchindex.Index
	cache   *cache.Cache

	maxBatch int

	orchestrator *orchestrator.Orchestrator
}

// Config controls request handling limits for the API server.
type Config struct {
	MaxBatchSize int
}

// DefaultConfig returns the standard configuration used when no overrides are
// provided.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize: 500,
	}
}

// Merge overlays non-zero configuration values from the override onto the
// base configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if override.MaxBatchSize > 0 {
		result.MaxBatchSize = override.MaxBatchSize
	}
	return result
}

func NewServer(orch *orchestrator.Orchestrator, cfg *Config) (*Server, error) {
	logger := common.Logger()
	if orch == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	catalog := orch.Catalog()
	if catalog == nil {
		return nil, fmt.Errorf("catalog store unavailable")
	}
	eng := orch.Engine()
	if eng == nil {
		return nil, fmt.Errorf("matching engine unavailable")
	}
	configuration := DefaultConfig()
	if cfg != nil {
		configuration = configuration.Merge(*cfg)
	}
	index := orch.Index()
	logger.Info(
		"api: building server",
		"index_available", index != nil && index.Available(),
		"cache", orch.Cache().String(),
		"max_batch", configuration.MaxBatchSize,
	)
	srv := &Server{
		router:       chi.NewRouter(),
		engine:       eng,
		catalog:      catalog,
		index:        index,
		cache:        orch.Cache(),
		maxBatch:     configuration.MaxBatchSize,
		orchestrator: orch,
	}
	srv.routes()
	logger.Info("api: server ready", "routes", true)
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/match", s.handleMatch)
	s.router.Post("/v1/match/bulk", s.handleBulkMatch)
	s.router.Post("/v1/questions", s.handleUpsertQuestion)
	s.router.Post("/v1/questions/bulk-upsert", s.handleBulkUpsert)
	s.router.Post("/v1/questions/bulk-search", s.handleBulkSearch)
	s.router.Get("/v1/questions/{id}", s.handleQuestion)
	s.router.Get("/v1/courses", s.handleListCourses)
	s.router.Post("/v1/courses", s.handleCreateCourse)
	s.router.Get("/v1/courses/{code}/questions", s.handleCourseQuestions)
	s.router.Post("/v1/index/reindex", s.handleReindex)
	s.router.Get("/v1/index/stats", s.handleIndexStats)
	s.router.Get("/v1/logs", s.handleLogs)
}

// statusForError maps engine and store failures onto HTTP statuses. Input
// rejections surface as 400, missing records as 404, everything else as 500.
func statusForError(err error) int {
	var verr *engine.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
