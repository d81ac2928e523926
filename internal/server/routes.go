package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/lazypower/mnemo/internal/engine"
	"github.com/lazypower/mnemo/internal/store"
	"go.uber.org/zap"
)

// handleQuery activates from the request seeds. Seeds may be empty: live
// goal nodes always seed activation.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req engine.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.MaxResults < 0 {
		writeError(w, http.StatusBadRequest, "max_results must not be negative")
		return
	}

	s.mu.Lock()
	res := s.engine.Query(req)
	s.pending, s.hasPending = res.Activated, true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, res)
}

// handleQueryComplete runs the learning half of the query lifecycle on the
// batch kept by the last /query call.
func (s *Server) handleQueryComplete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Relations []engine.RelationCandidate `json:"relations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	s.mu.Lock()
	if !s.hasPending {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "no pending query")
		return
	}
	report := s.engine.Learn(s.pending, req.Relations)
	s.pending, s.hasPending = nil, false
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req engine.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Nodes) == 0 {
		writeError(w, http.StatusBadRequest, "nodes required")
		return
	}

	s.mu.Lock()
	res := s.engine.Ingest(req)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSetPhase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase string `json:"phase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	phase, err := engine.ParsePhase(req.Phase)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	err = s.engine.SetPhase(phase)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"phase": phase})
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	report := s.engine.Consolidate()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	t := s.engine.Telemetry()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := store.WriteDocument(w, s.engine.Graph()); err != nil {
		s.log.Error("write graph document", zap.Error(err))
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Save()
	if err != nil {
		s.log.Error("snapshot failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}
