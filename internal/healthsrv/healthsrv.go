// Package healthsrv exposes a /healthz liveness endpoint and a
// /metrics Prometheus scrape endpoint for long-running supervisor
// processes (cmd/supervisorctl's serve command), routed
// with go-chi/chi/v5 the same way the teacher fronts its control-plane
// HTTP surface.
package healthsrv

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webots/supervisor/internal/cliutil/timeutil"
	"github.com/webots/supervisor/internal/metrics"
)

// Response is the JSON body served at /healthz.
type Response struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service   string `json:"service"`
		StartedAt string `json:"started_at"`
		Uptime    string `json:"uptime"`
		UptimeSec int64  `json:"uptime_sec"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// StatusSource reports the quitting state of a running Engine so a
// ready /healthz can answer "quitting" rather than "ok".
type StatusSource interface {
	IsQuitting() bool
}

// Server serves /healthz and, when metrics are enabled, /metrics.
type Server struct {
	httpServer *http.Server
	startedAt  time.Time
	service    string
	source     StatusSource
	ready      atomic.Bool
}

// New builds a Server bound to addr (host:port). source may be nil, in
// which case /healthz always reports "ok" once the server is marked
// ready.
func New(addr, service string, source StatusSource) *Server {
	s := &Server{
		startedAt: time.Now(),
		service:   service,
		source:    source,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	if metrics.IsEnabled() {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{Addr: addr, Handler: r}
	return s
}

// SetReady flips the server into the ready state; /healthz reports
// "starting" until this is called, matching the liveness/readiness
// split an orchestrator expects.
func (s *Server) SetReady() { s.ready.Store(true) }

// ListenAndServe blocks serving HTTP until the listener errors or
// Shutdown is called. http.ErrServerClosed is swallowed.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server was configured with in New. An
// ephemeral port (":0") is returned as given, not resolved to the port
// actually chosen.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := Response{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	resp.Data.Service = s.service
	resp.Data.StartedAt = s.startedAt.UTC().Format(time.RFC3339)
	uptime := time.Since(s.startedAt)
	resp.Data.Uptime = timeutil.FormatUptime(uptime.Round(time.Second).String())
	resp.Data.UptimeSec = int64(uptime.Seconds())

	status := http.StatusOK
	switch {
	case !s.ready.Load():
		resp.Status = "starting"
		status = http.StatusServiceUnavailable
	case s.source != nil && s.source.IsQuitting():
		resp.Status = "quitting"
	default:
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// freePort picks an unused TCP port for tests that need a real listener.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
