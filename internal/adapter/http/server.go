// Package http serves the dashboard pages, the view API and the operational
// endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/pandora-dashboard/internal/dashboard"
	"github.com/couchcryptid/pandora-dashboard/internal/domain"
	"github.com/couchcryptid/pandora-dashboard/internal/observability"
)

// How long an API request waits for its view to settle before answering
// with whatever state it has.
const defaultSettleTimeout = 20 * time.Second

// Pages hands out the views of each loaded chemical page of a session.
type Pages interface {
	Open(session string, chemical domain.Chemical) *dashboard.Page
	Get(session, id string, chemical domain.Chemical) (*dashboard.Page, bool)
	Scratch(session string, chemical domain.Chemical) *dashboard.Page
	Attach(session, id string, chemical domain.Chemical) (*dashboard.Page, func(), bool)
}

// Server exposes the dashboard pages, its JSON/PNG API, and the health,
// readiness and metrics endpoints.
type Server struct {
	httpServer    *http.Server
	pages         Pages
	metrics       *observability.Metrics
	logger        *slog.Logger
	settleTimeout time.Duration

	// Closed when Shutdown starts so event streams let go of their connections.
	done chan struct{}
}

// NewServer creates an HTTP server with page, API, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, pages Pages, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pages:         pages,
		metrics:       metrics,
		logger:        logger,
		settleTimeout: defaultSettleTimeout,
		done:          make(chan struct{}),
	}
	s.httpServer.RegisterOnShutdown(func() { close(s.done) })

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /{$}", s.handleHome)
	for _, chem := range domain.Chemicals {
		mux.HandleFunc("GET "+chem.Path(), s.handleChemicalPage(chem))
	}
	mux.Handle("GET /static/", http.FileServerFS(assets))

	mux.HandleFunc("GET /api/{chemical}/timeseries", s.handleTimeSeries)
	mux.HandleFunc("GET /api/{chemical}/timeseries.png", s.handleTimeSeriesPNG)
	mux.HandleFunc("GET /api/{chemical}/compare", s.handleCompare)
	mux.HandleFunc("GET /api/{chemical}/compare.png", s.handleComparePNG)
	mux.HandleFunc("GET /api/{chemical}/events", s.handleEvents)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
