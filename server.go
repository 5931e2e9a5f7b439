package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/portfolio-dashboard-core/models"
	"github.com/rpupo63/portfolio-dashboard-core/services"
	"github.com/rpupo63/portfolio-dashboard-core/store"
	"github.com/rpupo63/portfolio-dashboard-core/view"
)

// statusServer exposes the agent's cached collection read-only, plus health
// and metrics.
type statusServer struct {
	*http.Server
	startupTime time.Time
}

type statusRouter struct {
	store       *store.Store
	pipeline    *view.Pipeline
	loader      *services.Loader[[]models.Project]
	gatherer    prometheus.Gatherer
	startupTime time.Time
	logger      zerolog.Logger
}

func newStatusServer(addr string, st *store.Store, loader *services.Loader[[]models.Project], gatherer prometheus.Gatherer) statusServer {
	startupTime := time.Now()
	r := statusRouter{
		store:       st,
		pipeline:    view.NewPipeline(st),
		loader:      loader,
		gatherer:    gatherer,
		startupTime: startupTime,
		logger:      log.With().Str("handlerName", "statusServer").Logger(),
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      r.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return statusServer{server, startupTime}
}

func (r statusRouter) routes() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(r.logRequests)

	mux.Get("/healthz", r.health)
	mux.Get("/projects", r.projects)
	mux.Get("/facets", r.facets)
	if r.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (r statusRouter) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(srw, req)

		logEvent := r.logger.Debug()
		if srw.status >= 500 {
			logEvent = r.logger.Error()
		}
		logEvent.
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", srw.status).
			Dur("duration", time.Since(start)).
			Msg("HTTP Request")
	})
}

func (r statusRouter) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

func (r statusRouter) health(w http.ResponseWriter, _ *http.Request) {
	snap := r.store.Snapshot()
	body := map[string]any{
		"status":   "healthy",
		"uptime":   time.Since(r.startupTime).Round(time.Second).String(),
		"version":  snap.Version,
		"projects": len(snap.Projects),
		"sync":     r.loader.State().String(),
	}
	status := http.StatusOK
	if err := r.loader.Err(); err != nil {
		body["status"] = "degraded"
		body["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	r.writeJSON(w, status, body)
}

// projects serves the listing view. Query parameters: search, technology and
// tag (repeatable), order=newest|oldest.
func (r statusRouter) projects(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	params := view.Params{
		Search:       strings.TrimSpace(q.Get("search")),
		Technologies: q["technology"],
		Tags:         q["tag"],
		Order:        view.ParseOrder(q.Get("order")),
	}
	r.writeJSON(w, http.StatusOK, r.pipeline.View(params))
}

func (r statusRouter) facets(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, http.StatusOK, view.CollectFacets(r.store.Snapshot().Projects))
}

func (s statusServer) Start(errChannel chan<- error) {
	log.Info().Msgf("Status server started on: %s", s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChannel <- err
	}
}

func (s statusServer) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefulCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefulCtx); err != nil {
		log.Error().Msgf("Error shutting down the status server: %v", err)
	} else {
		log.Info().Msg("Status server gracefully shut down")
	}
}
