package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metamindiq/quantum-sync/internal/codec"
	"github.com/metamindiq/quantum-sync/internal/logging"
	"github.com/metamindiq/quantum-sync/internal/registry"
	"github.com/metamindiq/quantum-sync/internal/state"
)

const protobufContentType = "application/x-protobuf"

// #region server

// Server exposes the registry over HTTP. It is the only surface external
// consumers use; they never see how state is versioned internally.
type Server struct {
	reg     *registry.Registry
	logger  *slog.Logger
	metrics *Metrics
}

// NewHandler builds the HTTP handler for one registry.
func NewHandler(reg *registry.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		reg:     reg,
		logger:  logger,
		metrics: newMetrics(reg),
	}

	r := chi.NewRouter()
	r.Use(s.requestLog)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/states", s.createState)
		r.Get("/states/current", s.getCurrent)
		r.Get("/states/{id}", s.getState)
		r.Post("/states/{id}/update", s.updateState)
		r.Post("/states/{id}/observe", s.observe)
		r.Get("/delta", s.computeDelta)
		r.Post("/entangle", s.entangle)
		r.Post("/merge", s.merge)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// #endregion server

// #region create

type createRequest struct {
	Data any `json:"data"`
}

func (s *Server) createState(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := s.reg.CreateState(body.Data)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.metrics.StatesCreated.Inc()
	writeSnapshot(w, r, http.StatusCreated, codec.Take(node))
}

// #endregion create

// #region update

type updateRequest struct {
	Delta map[string]any `json:"delta"`
}

func (s *Server) updateState(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Delta == nil {
		body.Delta = map[string]any{}
	}

	node, err := s.reg.UpdateState(chi.URLParam(r, "id"), body.Delta)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.metrics.Updates.Inc()
	writeSnapshot(w, r, http.StatusOK, codec.Take(node))
}

// #endregion update

// #region read

func (s *Server) getCurrent(w http.ResponseWriter, r *http.Request) {
	node, ok := s.reg.Current()
	if !ok {
		writeError(w, http.StatusNotFound, "no current state")
		return
	}
	writeSnapshot(w, r, http.StatusOK, codec.Take(node))
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	node, ok := s.reg.GetState(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "state not found")
		return
	}
	writeSnapshot(w, r, http.StatusOK, codec.Take(node))
}

func (s *Server) computeDelta(w http.ResponseWriter, r *http.Request) {
	oldID := r.URL.Query().Get("old")
	newID := r.URL.Query().Get("new")
	// Unknown ids on this read path yield an empty delta, not a failure.
	writeJSON(w, http.StatusOK, map[string]any{
		"delta": s.reg.ComputeDelta(oldID, newID),
	})
}

// #endregion read

// #region entangle

type entangleRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (s *Server) entangle(w http.ResponseWriter, r *http.Request) {
	var body entangleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.reg.EntangleStates(body.A, body.B)
	s.metrics.Entanglements.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// #endregion entangle

// #region merge

type mergeRequest struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

func (s *Server) merge(w http.ResponseWriter, r *http.Request) {
	var body mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	node, err := s.reg.MergeStates(body.Left, body.Right)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.metrics.Merges.Inc()
	writeSnapshot(w, r, http.StatusOK, codec.Take(node))
}

// #endregion merge

// #region observe

func (s *Server) observe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := r.URL.Query().Get("key")

	if _, ok := s.reg.GetState(id); !ok {
		writeError(w, http.StatusNotFound, "state not found")
		return
	}

	value, present := s.reg.Observe(id, key)
	s.metrics.Observations.Inc()
	// A missing key is absence, not an error.
	writeJSON(w, http.StatusOK, map[string]any{
		"value":   value,
		"present": present,
	})
}

// #endregion observe

// #region responses

func writeSnapshot(w http.ResponseWriter, r *http.Request, status int, snap codec.Snapshot) {
	if strings.Contains(r.Header.Get("Accept"), protobufContentType) {
		raw, err := snap.MarshalBinary()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "encode snapshot")
			return
		}
		w.Header().Set("Content-Type", protobufContentType)
		w.WriteHeader(status)
		w.Write(raw)
		return
	}
	writeJSON(w, status, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, state.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, state.ErrContractViolation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// #endregion responses
