package main

import (
	"encoding/json"
	"errors"
	"expvar"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/codegen"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/app/dto"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/graph"
	"github.com/nickthelegend/cashlabs-flow-sub000/internal/log"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/flowgraph"
)

// maxBody bounds request bodies; graphs from the canvas are small.
const maxBody = 4 << 20

// Server exposes a Runtime over HTTP.
type Server struct {
	rt     *flowgraph.Runtime
	router *mux.Router
}

// NewServer registers the routes behind a permissive CORS policy so the
// canvas can call the service from another origin.
func NewServer(rt *flowgraph.Runtime) *Server {
	s := &Server{rt: rt, router: mux.NewRouter()}
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "cashflow server is running. See /healthz, /metrics, /debug/vars, /v1/")
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "ok")
	}).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", promMetricsHandler).Methods(http.MethodGet)
	s.router.Handle("/debug/vars", expvar.Handler()).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/graphs", s.handleListGraphs).Methods(http.MethodGet)
	v1.HandleFunc("/graphs", s.handleSaveGraph).Methods(http.MethodPost)
	v1.HandleFunc("/graphs/{id}", s.handleGetGraph).Methods(http.MethodGet)
	v1.HandleFunc("/graphs/{id}/run", s.handleRunGraph).Methods(http.MethodPost)
	v1.HandleFunc("/order", s.handleOrder).Methods(http.MethodPost)
	v1.HandleFunc("/emit", s.handleEmit).Methods(http.MethodPost)
	v1.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	v1.HandleFunc("/run/phase", s.handlePhase).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/snapshots", s.handleSnapshots).Methods(http.MethodGet)

	// CORS pre-flight
	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	v1.PathPrefix("/").HandlerFunc(preflight).Methods(http.MethodOptions)
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.rt.Graphs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graphs)
}

func (s *Server) handleSaveGraph(w http.ResponseWriter, r *http.Request) {
	var g graph.Graph
	if !decode(w, r, &g) {
		return
	}
	if err := s.rt.SaveGraph(r.Context(), &g); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	log.Infof("saved graph %s (%d nodes, %d edges)", g.ID, len(g.Nodes), len(g.Edges))
	writeJSON(w, http.StatusCreated, map[string]string{"id": g.ID})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.rt.Graph(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRunGraph(w http.ResponseWriter, r *http.Request) {
	resp, err := s.rt.RunGraph(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var g graph.Graph
	if !decode(w, r, &g) {
		return
	}
	writeJSON(w, http.StatusOK, s.rt.Order(&g))
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	var req dto.EmitRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.rt.Emit(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req dto.RunRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := s.rt.Run(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"phase": string(s.rt.Phase())})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.rt.Snapshots(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

type errorBody struct {
	Error string `json:"error"`
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, graph.ErrGraphNotFound):
		return http.StatusNotFound
	case errors.Is(err, dto.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, dto.ErrInvalidRequest),
		errors.Is(err, dto.ErrMissingGraph),
		errors.Is(err, dto.ErrInvalidTarget),
		errors.Is(err, codegen.ErrUnknownTarget),
		errors.Is(err, flowgraph.ErrUnknownNetwork):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Errorf("request failed: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("write response: %v", err)
	}
}
