package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ActivityTrigger is poked by availability reads to wake the demo simulator.
type ActivityTrigger interface {
	Trigger() bool
}

// HTTPServer exposes the booking service over JSON.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     domain.BookingService
	trigger ActivityTrigger
	auth    *HTTPAuth
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc domain.BookingService, trigger ActivityTrigger, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		trigger: trigger,
		auth:    NewHTTPAuth(cfg),
		logger:  logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLog(s.logger))
	r.Use(recoverer(s.logger))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Wrap)

		r.Route("/performers", func(r chi.Router) {
			r.With(s.auth.Require(PermReadAvailability)).Get("/", s.handleListPerformers)
			r.With(s.auth.Require(PermAdminBookings)).Post("/", s.handleCreatePerformer)

			r.Route("/{performerID}", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(s.auth.Require(PermReadAvailability))
					r.Get("/", s.handleGetPerformer)
					r.Get("/availability/check", s.handleCheckAvailability)
					r.Get("/availability/dates", s.handleAvailableDates)
					r.Get("/availability", s.handleDetailedAvailability)
				})
				r.With(s.auth.Require(PermAdminBookings)).Get("/availability.xlsx", s.handleExportAvailability)

				r.With(s.auth.Require(PermWriteBookings)).Post("/bookings", s.handleCreateBooking)
				r.Group(func(r chi.Router) {
					r.Use(s.auth.Require(PermAdminBookings))
					r.Get("/bookings", s.handleListPerformerBookings)
					r.Post("/bookings/{bookingID}/confirm", s.handleConfirmBooking)
					r.Post("/bookings/{bookingID}/reject", s.handleRejectBooking)
				})
			})
		})

		r.Route("/bookings/{bookingID}", func(r chi.Router) {
			r.With(s.auth.Require(PermWriteBookings)).Get("/", s.handleGetBooking)
			r.With(s.auth.Require(PermWriteBookings)).Patch("/", s.handleUpdateBooking)
			r.With(s.auth.Require(PermWriteBookings)).Post("/cancel", s.handleCancelBooking)
			r.With(s.auth.Require(PermAdminBookings)).Delete("/", s.handlePurgeBooking)
		})

		r.With(s.auth.Require(PermWriteBookings)).Get("/me/bookings", s.handleMyBookings)
	})

	return r
}

// Handler exposes the router, mostly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Shutdown is called.
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

func (s *HTTPServer) pokeSimulator() {
	if s.trigger != nil {
		s.trigger.Trigger()
	}
}
