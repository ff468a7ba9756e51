// Package server provides the reference cargo-realm admin API server.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/config"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/httputil"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/internal/store"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/status"
	"github.com/Azeezfasasi/cargo-realm-logistics-sub000/pkg/types"
)

// Server wraps HTTP routes and dependencies.
type Server struct {
	store     store.Store
	machine   *status.Machine
	cfg       config.Config
	version   string
	commit    string
	buildDate string
	router    chi.Router
}

// New constructs a reference API server.
func New(st store.Store, machine *status.Machine, cfg config.Config, version, commit, buildDate string) *Server {
	s := &Server{
		store:     st,
		machine:   machine,
		cfg:       cfg,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(httputil.RequestID)
	r.Use(httputil.RequestLogger(log.Logger))
	r.Use(httputil.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/readiness", s.handleReadiness)
	r.Get("/version", s.handleVersion)

	r.Get("/shipments/statuses", s.handleShipmentStatuses)

	for _, kind := range types.Kinds() {
		kind := kind
		r.Route("/"+kind.Collection(), func(r chi.Router) {
			r.Get("/", s.handleList(kind))
			r.Post("/", s.handleCreate(kind))
			r.Get("/{id}", s.handleGet(kind))
			r.Put("/{id}", s.handleUpdate(kind))
			r.Patch("/{id}/{action}", s.handleAction(kind))
			r.Delete("/{id}", s.handleDelete(kind))
		})
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		httputil.RespondProblem(w, r, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"version":   s.version,
		"commit":    s.commit,
		"buildDate": s.buildDate,
	})
}

func (s *Server) handleShipmentStatuses(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, types.StatusListResponse{
		Kind:       "ShipmentStatusList",
		APIVersion: types.APIVersion,
		Statuses:   s.machine.Statuses(types.KindShipment),
	})
}
