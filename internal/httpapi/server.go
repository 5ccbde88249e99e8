// Package httpapi exposes an admin HTTP surface over assembled
// containers: create from a profile, inspect and change the facet set,
// and invoke operations through delegation. This is demo orchestration on
// top of the engine, not part of the engine contract.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polisai/facets-oss/pkg/assembly"
	"github.com/polisai/facets-oss/pkg/domain"
	"github.com/polisai/facets-oss/pkg/facet"
)

// errorResponse is the standard JSON error model: a stable
// machine-readable code plus a message safe for logs.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server holds the in-memory container registry behind the admin API.
type Server struct {
	logger    *slog.Logger
	assembler *assembly.Assembler
	profiles  func() *assembly.ProfileSet
	registry  *prometheus.Registry

	mu         sync.RWMutex
	containers map[string]*facet.Container
}

// Config wires the server's collaborators.
type Config struct {
	Logger    *slog.Logger
	Assembler *assembly.Assembler
	// Profiles returns the current profile set; hot reloads are picked up
	// because the set is re-read per request.
	Profiles func() *assembly.ProfileSet
	// Registry serves GET /metrics. Required.
	Registry *prometheus.Registry
}

// NewServer creates the admin API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:     logger,
		assembler:  cfg.Assembler,
		profiles:   cfg.Profiles,
		registry:   cfg.Registry,
		containers: make(map[string]*facet.Container),
	}
}

// Handler returns the routed handler, instrumented for tracing.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /containers", s.handleCreateContainer)
	mux.HandleFunc("GET /containers/{id}", s.handleGetContainer)
	mux.HandleFunc("POST /containers/{id}/facets/{type}", s.handleAttachFacet)
	mux.HandleFunc("DELETE /containers/{id}/facets/{type}", s.handleDetachFacet)
	mux.HandleFunc("POST /containers/{id}/delegate", s.handleDelegate)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return otelhttp.NewHandler(mux, "httpapi")
}

type createContainerRequest struct {
	Profile  string `json:"profile"`
	Employee struct {
		Name       string `json:"name"`
		ID         string `json:"id"`
		Department string `json:"department"`
	} `json:"employee"`
}

type containerResponse struct {
	ID       string   `json:"id"`
	Employee string   `json:"employee"`
	Facets   []string `json:"facets"`
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	var req createContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("decode request: %v", err))
		return
	}

	set := s.profiles()
	if set == nil {
		s.writeError(w, http.StatusServiceUnavailable, "NO_PROFILES", "no profiles loaded")
		return
	}
	profile, ok := set.Profile(req.Profile)
	if !ok {
		s.writeError(w, http.StatusNotFound, "PROFILE_NOT_FOUND", fmt.Sprintf("profile not found: %s", req.Profile))
		return
	}

	emp := domain.NewEmployee(req.Employee.Name, req.Employee.ID, req.Employee.Department)
	c, err := s.assembler.Assemble(r.Context(), profile, emp)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "ASSEMBLY_FAILED", err.Error())
		return
	}

	id := uuid.New().String()
	s.mu.Lock()
	s.containers[id] = c
	s.mu.Unlock()

	s.logger.Info("container created", "id", id, "profile", profile.Name, "facets", len(profile.Facets))
	s.writeJSON(w, http.StatusCreated, s.containerResponse(id, c))
}

func (s *Server) handleGetContainer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := s.container(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "CONTAINER_NOT_FOUND", fmt.Sprintf("container not found: %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, s.containerResponse(id, c))
}

func (s *Server) handleAttachFacet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := s.container(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "CONTAINER_NOT_FOUND", fmt.Sprintf("container not found: %s", id))
		return
	}

	var cfg map[string]any
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("decode config: %v", err))
			return
		}
	}

	t := facet.Type(r.PathValue("type"))
	f, err := s.assembler.Build(r.Context(), t, cfg)
	if err != nil {
		if errors.Is(err, assembly.ErrUnknownFacetType) {
			s.writeError(w, http.StatusNotFound, "UNKNOWN_FACET_TYPE", err.Error())
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, "FACET_BUILD_FAILED", err.Error())
		return
	}

	if _, err := c.Attach(f); err != nil {
		if facet.IsDuplicateFacet(err) {
			s.writeError(w, http.StatusConflict, "DUPLICATE_FACET", err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, "ATTACH_FAILED", err.Error())
		return
	}

	s.logger.Info("facet attached", "container", id, "facet", t)
	s.writeJSON(w, http.StatusOK, s.containerResponse(id, c))
}

func (s *Server) handleDetachFacet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := s.container(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "CONTAINER_NOT_FOUND", fmt.Sprintf("container not found: %s", id))
		return
	}

	t := facet.Type(r.PathValue("type"))
	_, detached := c.Detach(t)
	if detached {
		s.logger.Info("facet detached", "container", id, "facet", t)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"detached": detached,
		"facets":   typeNames(c.Types()),
	})
}

type delegateRequest struct {
	Operation string `json:"operation"`
	Args      []any  `json:"args"`
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := s.container(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "CONTAINER_NOT_FOUND", fmt.Sprintf("container not found: %s", id))
		return
	}

	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", fmt.Sprintf("decode request: %v", err))
		return
	}
	if req.Operation == "" {
		s.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "operation is required")
		return
	}

	result, err := c.Delegate(req.Operation, req.Args...)
	if err != nil {
		if facet.IsUnknownOperation(err) {
			s.writeError(w, http.StatusNotFound, "UNKNOWN_OPERATION", err.Error())
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, "OPERATION_FAILED", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) container(id string) (*facet.Container, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[id]
	return c, ok
}

func (s *Server) containerResponse(id string, c *facet.Container) containerResponse {
	resp := containerResponse{ID: id, Facets: typeNames(c.Types())}
	if emp, ok := c.Core().(*domain.Employee); ok {
		resp.Employee = emp.Describe()
	}
	return resp
}

func typeNames(types []facet.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Code: code, Message: message})
}
