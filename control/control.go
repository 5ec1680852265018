// Package control exposes a small HTTP surface for steering a running
// danmaku engine: pushing comments, pausing, replaying and scraping metrics.
// Every mutation is posted onto the engine thread; handlers never touch the
// engine directly.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phanxgames/danmaku"
)

const (
	maxBodyBytes  = 1 << 20
	statusTimeout = 2 * time.Second
)

var errEngineClosed = errors.New("engine closed")

// Status is the body of GET /status.
type Status struct {
	Paused   bool `json:"paused"`
	OnScreen int  `json:"on_screen"`
	Pending  int  `json:"pending"`
	Lanes    int  `json:"lanes"`
}

// Server routes control requests to an engine.
type Server struct {
	engine   *danmaku.Engine
	gatherer prometheus.Gatherer
	log      *slog.Logger
}

// New creates a Server. A nil gatherer serves prometheus.DefaultGatherer; a
// nil logger discards.
func New(e *danmaku.Engine, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{engine: e, gatherer: gatherer, log: logger.With(slog.String("component", "control"))}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/items", func(r chi.Router) {
		r.Post("/", s.handleAddItems)
		r.Put("/", s.handleSetBacklog)
	})
	r.Post("/pause", s.handleAction(func(e *danmaku.Engine) { e.Pause() }))
	r.Post("/resume", s.handleAction(func(e *danmaku.Engine) { e.Resume() }))
	r.Post("/replay", s.handleAction(func(e *danmaku.Engine) { e.Replay() }))
	return r
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statusTimeout)
	defer cancel()

	ch := make(chan Status, 1)
	if !s.engine.Post(func() {
		ch <- Status{
			Paused:   s.engine.Paused(),
			OnScreen: s.engine.Lanes().Count(),
			Pending:  s.engine.Pending(),
			Lanes:    s.engine.Lanes().Len(),
		}
	}) {
		respondError(w, http.StatusServiceUnavailable, errEngineClosed)
		return
	}
	select {
	case st := <-ch:
		respondJSON(w, http.StatusOK, st)
	case <-ctx.Done():
		respondError(w, http.StatusServiceUnavailable, ctx.Err())
	}
}

// handleAddItems appends items to the backlog. The body is a JSON array of
// items or a single item.
func (s *Server) handleAddItems(w http.ResponseWriter, r *http.Request) {
	items, err := decodeItems(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if !s.engine.Post(func() { s.engine.AppendBacklog(items...) }) {
		respondError(w, http.StatusServiceUnavailable, errEngineClosed)
		return
	}
	s.log.Debug("items queued", slog.Int("count", len(items)))
	respondJSON(w, http.StatusAccepted, map[string]int{"queued": len(items)})
}

// handleSetBacklog replaces the backlog.
func (s *Server) handleSetBacklog(w http.ResponseWriter, r *http.Request) {
	items, err := decodeItems(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if !s.engine.Post(func() { s.engine.SetBacklog(items) }) {
		respondError(w, http.StatusServiceUnavailable, errEngineClosed)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]int{"backlog": len(items)})
}

func (s *Server) handleAction(fn func(*danmaku.Engine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.engine.Post(func() { fn(s.engine) }) {
			respondError(w, http.StatusServiceUnavailable, errEngineClosed)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func decodeItems(body io.Reader) ([]danmaku.Item, error) {
	data, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var items []danmaku.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}
	var one danmaku.Item
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, errors.New("body must be an item or an array of items")
	}
	return []danmaku.Item{one}, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{Error: err.Error(), Status: status})
}
