package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"termbilling/config"
	"termbilling/observability"
	"termbilling/service"
)

// Server exposes the billing service over HTTP
type Server struct {
	router         *mux.Router
	handler        http.Handler
	httpServer     *http.Server
	billingService service.BillingService
	apiKey         string
	allowedOrigins []string
}

// NewServer creates a server and registers its routes. registry and metrics
// may be nil, in which case /metrics is not served and requests are not
// instrumented.
func NewServer(cfg *config.Config, billingService service.BillingService, registry *prometheus.Registry, metrics *observability.Metrics) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		billingService: billingService,
		apiKey:         cfg.APIKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	s.setupRoutes(registry, metrics)

	// mux only runs router middleware on matched routes, so request IDs,
	// logging and recovery wrap the router itself to cover 404 and 405 too.
	// CORS sits inside them so preflight requests never reach method matching.
	s.handler = requestIDMiddleware(loggingMiddleware(recoveryMiddleware(
		corsMiddleware(s.allowedOrigins)(s.router),
	)))

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry, metrics *observability.Metrics) {
	var notFound http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	})
	var methodNotAllowed http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if metrics != nil {
		instrument := observability.HTTPMetricsMiddleware(metrics)
		s.router.Use(instrument)
		// Router middleware skips these, so they are instrumented directly
		notFound = instrument(notFound)
		methodNotAllowed = instrument(methodNotAllowed)
	}
	s.router.NotFoundHandler = notFound
	s.router.MethodNotAllowedHandler = methodNotAllowed

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if registry != nil {
		observability.RegisterMetricsEndpoint(s.router, registry)
	}

	// API routes live on the root router; a subrouter would turn method
	// mismatches into 404.
	requireKey := apiKeyMiddleware(s.apiKey)
	s.router.Handle("/api/bill-new-term",
		requireKey(http.HandlerFunc(s.handleBillNewTerm))).Methods(http.MethodPost)
	s.router.Handle("/api/students/{id:[0-9]+}/fees",
		requireKey(http.HandlerFunc(s.handleStudentFees))).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones to finish
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
