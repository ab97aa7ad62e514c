// Package server exposes a chatbot graph over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-go-golems/chatbot/pkg/events"
	"github.com/go-go-golems/chatbot/pkg/graph"
	"github.com/go-go-golems/chatbot/pkg/inference/engine"
	"github.com/go-go-golems/chatbot/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Invoker runs one invocation of a flow. *graph.Graph implements it.
type Invoker interface {
	Invoke(ctx context.Context, input graph.Input) (*graph.Output, error)
}

// DefaultMaxBodyBytes caps the size of an /invoke request body.
const DefaultMaxBodyBytes int64 = 1 << 20

type Server struct {
	invoker      Invoker
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	maxBodyBytes int64
	router       chi.Router
}

type Option func(*Server)

// WithMetrics serves m on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

func New(invoker Invoker, options ...Option) *Server {
	s := &Server{
		invoker:      invoker,
		logger:       log.Logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, o := range options {
		o(s)
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("chatbot server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post("/invoke", s.handleInvoke)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	input, err := s.decodeInput(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.logger.Debug().Err(err).Int("status", status).Msg("rejected request body")
		writeJSON(w, status, errorResponse{Error: "invalid request body", Category: "invalid-input"})
		return
	}

	ctx := r.Context()
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		ctx = events.WithRunID(ctx, reqID)
	}

	out, err := s.invoker.Invoke(ctx, input)
	if err != nil {
		status, category := statusForError(err)
		s.logger.Warn().Err(err).Int("status", status).Str("category", category).Msg("invocation failed")
		writeJSON(w, status, errorResponse{Error: err.Error(), Category: category})
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// decodeInput reads exactly one JSON value from a size limited body.
func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request) (graph.Input, error) {
	var input graph.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err := dec.Decode(&input); err != nil {
		return input, err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return input, err
		}
		return input, errors.New("unexpected data after request body")
	}
	return input, nil
}

// statusForError maps an invocation error to an HTTP status and the category
// reported to the client.
func statusForError(err error) (int, string) {
	if errors.Is(err, graph.ErrInvalidInput) {
		return http.StatusBadRequest, "invalid-input"
	}
	if errors.Is(err, engine.ErrConfiguration) {
		return http.StatusInternalServerError, "configuration"
	}
	category, ok := engine.CategoryOf(err)
	if !ok {
		return http.StatusInternalServerError, ""
	}
	switch category {
	case engine.CategoryRateLimit:
		return http.StatusTooManyRequests, string(category)
	case engine.CategoryCanceled:
		return http.StatusServiceUnavailable, string(category)
	default:
		return http.StatusBadGateway, string(category)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
