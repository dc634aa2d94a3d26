package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/yax"
	"github.com/aretw0/yax/pkg/domain"
)

// Store is the part of *yax.Store the HTTP adapter needs.
type Store interface {
	Dispatch(ctx context.Context, typ string, payload any) (*domain.Task, error)
	State() any
	Lookup(keys ...string) (any, bool)
	Modules() []domain.ModuleInfo
	Subscribe(fn yax.Listener) (unsubscribe func())
}

var _ Store = (*yax.Store)(nil)

// Server serves a store over HTTP.
type Server struct {
	Store           Store
	Logger          *slog.Logger
	Gatherer        prometheus.Gatherer
	DispatchTimeout time.Duration
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithDispatchTimeout bounds how long POST /dispatch waits for an action.
func WithDispatchTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.DispatchTimeout = d
	}
}

// NewHandler creates a new HTTP handler for the store.
func NewHandler(store Store, opts ...Option) http.Handler {
	server := &Server{
		Store:           store,
		Logger:          slog.Default(),
		DispatchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/state", server.GetState)
	r.Get("/state/*", server.GetState)
	r.Get("/modules", server.GetModules)
	r.Post("/dispatch", server.Dispatch)
	r.Get("/events", server.SubscribeEvents)
	if server.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(server.Gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DispatchRequest is the body of POST /dispatch.
type DispatchRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	// NoWait returns 202 as soon as the dispatch is resolved.
	NoWait bool `json:"no_wait,omitempty"`
}

// DispatchResponse is the body returned by POST /dispatch.
type DispatchResponse struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply that is not a dispatch outcome.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "yax-http",
		"version": yax.Version,
	})
}

// GetState handles GET /state and GET /state/{key...}.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	keys := splitKeys(chi.URLParam(r, "*"))
	state, ok := s.Store.Lookup(keys...)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, ErrorResponse{Error: fmt.Sprintf("no state at %q", strings.Join(keys, "/"))})
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func splitKeys(p string) []string {
	var keys []string
	for _, k := range strings.Split(p, "/") {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// GetModules handles the GET /modules request.
func (s *Server) GetModules(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Store.Modules())
}

// Dispatch handles the POST /dispatch request. It waits for the task unless
// the request sets no_wait.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	var body DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.Logger.Warn("dispatch: invalid request body", "err", err)
		return
	}
	if body.Type == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing action type"})
		return
	}

	// Actions outlive the request when no_wait is set.
	task, err := s.Store.Dispatch(context.WithoutCancel(r.Context()), body.Type, body.Payload)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, DispatchResponse{Type: body.Type, Status: "unresolved", Error: err.Error()})
		return
	}

	if body.NoWait {
		if value, err, ok := task.Result(); ok {
			s.writeOutcome(w, body.Type, value, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, DispatchResponse{Type: body.Type, Status: "pending", Pending: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.DispatchTimeout)
	defer cancel()
	value, err := task.Wait(ctx)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		s.writeJSON(w, http.StatusGatewayTimeout, DispatchResponse{Type: body.Type, Status: "pending", Pending: true, Error: err.Error()})
		return
	}
	s.writeOutcome(w, body.Type, value, err)
}

func (s *Server) writeOutcome(w http.ResponseWriter, typ string, value any, err error) {
	if err != nil {
		s.Logger.Warn("dispatch failed", "type", typ, "err", err)
		status := http.StatusUnprocessableEntity
		if domain.IsResolution(err) {
			status = http.StatusConflict
		}
		s.writeJSON(w, status, DispatchResponse{Type: typ, Status: "failed", Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, DispatchResponse{Type: typ, Status: "done", Result: value})
}

// SubscribeEvents handles the GET /events request (SSE). Every state change is
// sent as one JSON data line. ?watch=a/b narrows events to that subtree.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("events: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	watch := splitKeys(r.URL.Query().Get("watch"))
	ch := make(chan []byte, 16)
	unsubscribe := s.Store.Subscribe(func(state any) {
		if len(watch) > 0 {
			var ok bool
			if state, ok = lookup(state, watch); !ok {
				return
			}
		}
		msg, err := json.Marshal(state)
		if err != nil {
			s.Logger.Warn("events: state is not json encodable", "err", err)
			return
		}
		select {
		case ch <- msg:
		default:
			// Slow client.
			s.Logger.Warn("events: client buffer full, dropping message")
		}
	})
	defer unsubscribe()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Debug("events: client disconnected")
			return
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func lookup(v any, keys []string) (any, bool) {
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[k]; !ok {
			return nil, false
		}
	}
	return v, true
}
