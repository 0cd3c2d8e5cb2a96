package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// HealthFunc reports the health of the running process.
type HealthFunc func(ctx context.Context) HealthStatus

// Server exposes /metrics and /health, plus whatever is mounted with
// Handle before Start.
type Server struct {
	addr   string
	health HealthFunc
	routes []route
	server *http.Server
}

type route struct {
	pattern string
	handler http.Handler
}

func NewServer(addr string, health HealthFunc) *Server {
	return &Server{addr: addr, health: health}
}

// Handle mounts h at pattern. It has no effect on a running server.
func (s *Server) Handle(pattern string, h http.Handler) {
	s.routes = append(s.routes, route{pattern: pattern, handler: h})
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, r := range s.routes {
		mux.Handle(r.pattern, r.handler)
	}
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{Status: "up", Timestamp: time.Now().UTC(), Components: map[string]string{}}
		if s.health != nil {
			status = s.health(r.Context())
		}
		w.Header().Set("Content-Type", "application/json")
		if status.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("observability server starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("observability server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
