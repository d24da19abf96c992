package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"raftlog/pkg/appender"
	"raftlog/pkg/journal"
	"raftlog/pkg/role"
)

const (
	contentTypeJSON        = "application/json"
	defaultHTTPPort        = "8080"
	defaultShutdownTimeout = time.Second * 5
	defaultAppendTimeout   = time.Second * 10
	maxRequestBodyBytes    = 8 * 1024 * 1024
)

type iLeaderRole interface {
	AppendEntry(data []byte, listener appender.AppendListener)
	State() role.State
}

// Server exposes the leader append path over HTTP.
type Server struct {
	role       iLeaderRole
	gatherer   prometheus.Gatherer
	httpServer *http.Server
	URL        string
	addr       string
}

// NewServer creates a new server instance.
func NewServer(leader iLeaderRole, gatherer prometheus.Gatherer, port string) *Server {
	if port == "" {
		port = defaultHTTPPort
	}
	return &Server{
		role:     leader,
		gatherer: gatherer,
		URL:      "http://localhost:" + port,
		addr:     ":" + port,
	}
}

// Start starts the server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.createRouter(),
		ReadHeaderTimeout: time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("HTTP server started", "addr", s.URL)
	return nil
}

// Stop stops the server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}
	return nil
}

// createRouter builds the chi router.
func (s *Server) createRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Post("/api/append", s.handleAppend)
	r.Get("/api/role", s.handleRole)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Error encoding response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleRole(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, NewRoleResponse(s.role.State().String()))
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Failed to read request body"))
		return
	}
	if len(body) == 0 {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("Empty entry payload"))
		return
	}

	listener := newWaitListener()
	s.role.AppendEntry(body, listener)

	select {
	case res := <-listener.ch:
		if res.err != nil {
			s.writeAppendError(w, res.err)
			return
		}
		s.writeJSON(w, http.StatusOK, NewAppendResponse(uint64(res.indexed.Index), res.indexed.Size))
	case <-r.Context().Done():
		// The pipeline still resolves the request; only this handler gave up.
		s.writeJSON(w, http.StatusGatewayTimeout, NewErrorResponse("Append wait cancelled"))
	case <-time.After(defaultAppendTimeout):
		s.writeJSON(w, http.StatusGatewayTimeout, NewErrorResponse("Append timed out"))
	}
}

// writeAppendError maps the append failure taxonomy onto HTTP status codes:
// a closed leader is retriable elsewhere (503), an oversized entry is the
// caller's fault (413), everything else is internal.
func (s *Server) writeAppendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appender.ErrClosed):
		s.writeJSON(w, http.StatusServiceUnavailable, NewErrorResponse(err.Error()))
	case journal.IsTooLarge(err):
		s.writeJSON(w, http.StatusRequestEntityTooLarge, NewErrorResponse(err.Error()))
	default:
		s.writeJSON(w, http.StatusInternalServerError, NewErrorResponse(err.Error()))
	}
}
