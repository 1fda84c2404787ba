// Package api provides the HTTP REST API server for StockPulse.
//
// It exposes the signal detector, the projection and DCF engines, the
// metric rating catalog, research bundles, headlines, portfolio valuation
// and a WebSocket channel for live recomputation.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/stockpulse/stockpulse/internal/config"
	"github.com/stockpulse/stockpulse/internal/datasource"
	"github.com/stockpulse/stockpulse/internal/metrics"
)

// Deps are the collaborators the handlers call. Any of them may be nil;
// routes that need a missing collaborator answer 503.
type Deps struct {
	History  datasource.HistorySource
	Quotes   datasource.QuoteSource
	Research *datasource.Research
	News     datasource.NewsSource
	Calendar *datasource.Calendar
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	Version  string
	Now      func() time.Time
}

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	deps   Deps
	log    zerolog.Logger
	wsHub  *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	srv := &Server{
		cfg:   cfg,
		deps:  deps,
		log:   deps.Log.With().Str("component", "api").Logger(),
		wsHub: NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server and shuts it down gracefully on
// SIGINT, SIGTERM or when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	defer s.wsHub.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Signals
		r.Get("/signals/{ticker}", s.handleTickerSignals)
		r.Post("/signals", s.handleDetectSignals)

		// Projections
		r.Post("/projections", s.handleProjections)
		r.Post("/projections/derive", s.handleDeriveProjections)

		// DCF
		r.Post("/dcf", s.handleDCF)
		r.Post("/dcf/derive", s.handleDeriveDCF)

		// Metric ratings
		r.Get("/metrics", s.handleMetricCatalog)
		r.Post("/metrics/rate", s.handleRateMetrics)
		r.Post("/metrics/compare", s.handleCompareMetrics)

		// Research, news and portfolio
		r.Get("/research/{ticker}", s.handleResearch)
		r.Get("/news/{ticker}", s.handleNews)
		r.Get("/portfolio", s.handlePortfolio)
		r.Get("/calendar", s.handleCalendar)
		r.Get("/alerts", s.handleAlerts)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// requestLogger logs each request with zerolog and records it in metrics
// under its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.deps.Metrics.ObserveRequest(r.Method, route, status, elapsed)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// ============================================================
// Response helpers
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON marshals v before committing the status so a value JSON
// cannot represent (NaN, ±Inf) becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(APIResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeSourceError maps a fetch layer error to an HTTP status.
func writeSourceError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var httpErr *datasource.ErrHTTP
	switch {
	case errors.Is(err, datasource.ErrTickerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, datasource.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, datasource.ErrMissingAPIKey):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound:
		status = http.StatusNotFound
	}
	writeError(w, status, err.Error())
}

// maxBodyBytes bounds request bodies; a 220-day series is well under it.
const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dest)
}
