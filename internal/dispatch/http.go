package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/devscripts/internal/log"
	"github.com/zjrosen/devscripts/internal/script"
)

// HeaderRequestID carries the id assigned to each dispatch request.
const HeaderRequestID = "X-Request-Id"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Scripts int    `json:"scripts"`
	Error   string `json:"error,omitempty"`
}

// Routes returns an http.Handler that dispatches POST requests at basePath and
// below, and serves GET /health. Other methods under basePath get 405.
//
// Dispatch paths are matched without http.ServeMux so that repeated slashes,
// which ServeMux redirects to a cleaned path, reach the script as empty
// arguments.
func (d *Dispatcher) Routes(basePath string) http.Handler {
	health := d.HealthRoutes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest, ok := belowBase(r.URL.Path, basePath)
		if !ok || (r.Method == http.MethodGet && r.URL.Path == "/health") {
			health.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeText(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
			return
		}
		d.serveDispatch(w, r, rest)
	})
}

// HealthRoutes returns an http.Handler serving only GET /health.
func (d *Dispatcher) HealthRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", d.Health)
	return mux
}

// Health reports the size of the current discovery set.
func (d *Dispatcher) Health(w http.ResponseWriter, r *http.Request) {
	scripts, err := script.Discover(r.Context(), d.provider)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Scripts: len(scripts)})
}

func (d *Dispatcher) serveDispatch(w http.ResponseWriter, r *http.Request, rest string) {
	requestID := uuid.NewString()
	w.Header().Set(HeaderRequestID, requestID)

	ctx := WithRequestID(r.Context(), requestID)
	outcome := d.Handle(ctx, SplitPath(rest))

	log.Debug(log.CatHTTP, "Dispatch request served",
		"path", r.URL.Path, "status", outcome.Status(), "outcome", outcome.Kind.String(), "request_id", requestID)
	writeText(w, outcome.Status(), outcome.Message())
}

// belowBase reports whether path is basePath or lies under it, and returns
// the remainder starting at the separator.
func belowBase(path, basePath string) (string, bool) {
	base := strings.TrimSuffix(basePath, "/")
	if base == "" {
		return path, true
	}
	if path == base {
		return "", true
	}
	if strings.HasPrefix(path, base+"/") {
		return path[len(base):], true
	}
	return "", false
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if body == "" {
		return
	}
	if _, err := w.Write([]byte(body)); err != nil {
		log.Error(log.CatHTTP, "Failed to write response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatHTTP, "Failed to encode JSON response", "error", err)
	}
}

// Server wraps a Dispatcher with an http.Server for lifecycle management.
type Server struct {
	server   *http.Server
	listener net.Listener
	port     int // actual port after binding, useful with :0
}

// ServerConfig configures the dispatch server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g. "localhost:8080").
	Addr string
	// Dispatcher runs the scripts (required).
	Dispatcher *Dispatcher
	// BasePath is where dispatch is mounted (e.g. "/scripts").
	BasePath string
	// DispatchEnabled mounts the dispatch routes. When false only /health is served.
	DispatchEnabled bool
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration
}

// NewServer creates a dispatch server and binds its listener.
// If Addr uses port 0 the OS assigns one; see Port.
func NewServer(cfg ServerConfig) (*Server, error) {
	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	var handler http.Handler
	if cfg.DispatchEnabled {
		handler = cfg.Dispatcher.Routes(cfg.BasePath)
	} else {
		handler = cfg.Dispatcher.HealthRoutes()
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		port:     port,
		listener: listener,
		server: &http.Server{
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			// No write timeout: scripts may run for a long time.
		},
	}, nil
}

// Start serves until the server is stopped or fails. It returns
// http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	log.Info(log.CatHTTP, "Starting dispatch server", "addr", s.listener.Addr().String(), "port", s.port)
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatHTTP, "Stopping dispatch server")
	return s.server.Shutdown(ctx)
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}
