package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the mnemo HTTP API over a single engine.
type Server struct {
	db      *store.DB
	router  chi.Router
	version string
	started time.Time
	log     *zap.Logger

	// mu serializes every engine call; the engine itself is single-threaded.
	mu         sync.Mutex
	engine     *engine.Engine
	pending    []engine.ActivatedNode
	hasPending bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Server over eng, persisting to db.
func New(db *store.DB, eng *engine.Engine, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
		log:     log,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/query", s.handleQuery)
		r.Post("/query/complete", s.handleQueryComplete)
		r.Post("/nodes", s.handleIngest)
		r.Put("/phase", s.handleSetPhase)
		r.Post("/consolidate", s.handleConsolidate)
		r.Get("/telemetry", s.handleTelemetry)
		r.Get("/graph", s.handleGraph)
		r.Post("/snapshot", s.handleSnapshot)
	})

	if m := s.engine.Metrics(); m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	s.mu.Lock()
	phase := s.engine.Phase()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
		"phase":   phase,
	})
}

// Save persists the current graph. It takes the engine lock.
func (s *Server) Save() (*store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.SaveGraph(s.engine.Graph(), string(s.engine.Phase()), s.engine.Queries())
}

// StartAutosave persists the graph every interval until Stop is called.
func (s *Server) StartAutosave(interval time.Duration) {
	if interval <= 0 || s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				snap, err := s.Save()
				if err != nil {
					s.log.Error("autosave failed", zap.Error(err))
					continue
				}
				s.log.Debug("autosave", zap.Int64("snapshot", snap.ID), zap.Int("nodes", snap.Nodes))
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the autosave loop and waits for it to exit.
func (s *Server) Stop() {
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	s.wg.Wait()
	s.stopCh = nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
