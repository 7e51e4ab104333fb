// Package api exposes the booking service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookproxy/internal/booking"
	"bookproxy/internal/config"
	"bookproxy/internal/logging"
	"bookproxy/internal/metrics"
	"bookproxy/internal/models"

	"github.com/rs/zerolog"
)

const (
	msgInternal        = "Internal server error"
	msgInvalidJSON     = "invalid JSON body"
	msgBodyTooLarge    = "request body too large"
	msgMethodNotAllow  = "method not allowed"
	msgRateLimited     = "rate limit exceeded"
	defaultMaxBodySize = 64 << 10
)

// BookingService is the subset of *booking.Service used by the handlers.
type BookingService interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error)
	Providers() map[models.Provider]bool
}

// HTTPServer serves the booking endpoint and health checks.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     BookingService
	limiter *rateLimiter
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc BookingService, logger *zerolog.Logger) *HTTPServer {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodySize
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logging.Component(logger, "http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/book", srv.handleBook)
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/readyz", srv.handleReady)

	handler := requestIDMiddleware(srv.logger, loggingMiddleware(recoveryMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
		return
	}
	if !s.limiter.allow(r) {
		writeError(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	var req models.BookingRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	result, err := s.svc.CreateBooking(r.Context(), req)
	if err != nil {
		writeError(w, booking.HTTPStatus(err), booking.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("healthz")
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("readyz")
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllow)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.svc.Providers(),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
