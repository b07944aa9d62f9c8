package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vitrina/internal/domain"
	"vitrina/internal/export"
	"vitrina/internal/models"
	"vitrina/internal/timeutil"

	"github.com/go-chi/chi/v5"
)

type bookingRequest struct {
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	IsMultiDay   bool    `json:"is_multi_day"`
	EndDate      *string `json:"end_date,omitempty"`
	ClientName   string  `json:"client_name"`
	ClientEmail  string  `json:"client_email"`
	ClientPhone  string  `json:"client_phone"`
	EventDetails string  `json:"event_details"`
	Notes        string  `json:"notes"`
}

type bookingPatchRequest struct {
	Date         *string `json:"date,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	IsMultiDay   *bool   `json:"is_multi_day,omitempty"`
	EndDate      *string `json:"end_date,omitempty"`
	ClientName   *string `json:"client_name,omitempty"`
	ClientEmail  *string `json:"client_email,omitempty"`
	ClientPhone  *string `json:"client_phone,omitempty"`
	EventDetails *string `json:"event_details,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type performerRequest struct {
	Name         string `json:"name"`
	PricePerHour int64  `json:"price_per_hour"`
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListPerformers(w http.ResponseWriter, r *http.Request) {
	performers, err := s.svc.ListPerformers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"performers": performers})
}

func (s *HTTPServer) handleCreatePerformer(w http.ResponseWriter, r *http.Request) {
	var body performerRequest
	if !decodeBody(w, r, &body) {
		return
	}

	performer := &models.Performer{Name: body.Name, PricePerHour: body.PricePerHour}
	if err := s.svc.CreatePerformer(r.Context(), performer, actorFrom(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, performer)
}

func (s *HTTPServer) handleGetPerformer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	performer, err := s.svc.GetPerformer(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, performer)
}

func (s *HTTPServer) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	q := r.URL.Query()
	date, err := timeutil.ParseDate(strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	s.pokeSimulator()
	available, err := s.svc.CheckAvailability(r.Context(), id, date, start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"performer_id": id,
		"date":         timeutil.DateKey(date),
		"start_time":   start,
		"end_time":     end,
		"available":    available,
	})
}

func (s *HTTPServer) handleAvailableDates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}

	s.pokeSimulator()
	dates, err := s.svc.GetAvailableDates(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (s *HTTPServer) handleDetailedAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	from, to, ok := window(w, r)
	if !ok {
		return
	}

	s.pokeSimulator()
	days, err := s.svc.GetDetailedAvailability(r.Context(), id, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

func (s *HTTPServer) handleExportAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	from, to, ok := window(w, r)
	if !ok {
		return
	}

	performer, err := s.svc.GetPerformer(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	days, err := s.svc.GetDetailedAvailability(r.Context(), id, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="availability_%d.xlsx"`, id))
	if err := export.WriteAvailability(w, performer, days); err != nil {
		s.logger.Error().Err(err).Int64("performer_id", id).Msg("Failed to write availability workbook")
	}
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	var body bookingRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := body.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.svc.CreateBooking(r.Context(), id, req, actorFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleListPerformerBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	bookings, err := s.svc.ListPerformerBookings(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, s.svc.ConfirmBooking)
}

func (s *HTTPServer) handleRejectBooking(w http.ResponseWriter, r *http.Request) {
	s.handleDecision(w, r, s.svc.RejectBooking)
}

type decisionFunc func(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error)

func (s *HTTPServer) handleDecision(w http.ResponseWriter, r *http.Request, decide decisionFunc) {
	performerID, ok := pathID(w, r, "performerID")
	if !ok {
		return
	}
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	booking, err := decide(r.Context(), performerID, bookingID, actorFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	booking, err := s.svc.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	actor := actorFrom(r.Context())
	if !actor.IsAdmin() && !booking.OwnedBy(actor.UserID) {
		// чужие заявки не раскрываем
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	var body bookingPatchRequest
	if !decodeBody(w, r, &body) {
		return
	}

	patch, err := body.toModel()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.svc.UpdateBooking(r.Context(), id, patch, actorFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	booking, err := s.svc.CancelBooking(r.Context(), id, actorFrom(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handlePurgeBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}
	if err := s.svc.PurgeBooking(r.Context(), id, actorFrom(r.Context())); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user id header is required")
		return
	}
	bookings, err := s.svc.ListUserBookings(r.Context(), actor.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (b bookingRequest) toModel() (models.BookingRequest, error) {
	date, err := timeutil.ParseDate(strings.TrimSpace(b.Date))
	if err != nil {
		return models.BookingRequest{}, errors.New("invalid date format; expected YYYY-MM-DD")
	}
	req := models.BookingRequest{
		Date:         date,
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		IsMultiDay:   b.IsMultiDay,
		ClientName:   b.ClientName,
		ClientEmail:  b.ClientEmail,
		ClientPhone:  b.ClientPhone,
		EventDetails: b.EventDetails,
		Notes:        b.Notes,
	}
	if b.EndDate != nil {
		end, err := timeutil.ParseDate(strings.TrimSpace(*b.EndDate))
		if err != nil {
			return models.BookingRequest{}, errors.New("invalid end_date format; expected YYYY-MM-DD")
		}
		req.EndDate = &end
	}
	return req, nil
}

func (b bookingPatchRequest) toModel() (models.BookingPatch, error) {
	patch := models.BookingPatch{
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		IsMultiDay:   b.IsMultiDay,
		ClientName:   b.ClientName,
		ClientEmail:  b.ClientEmail,
		ClientPhone:  b.ClientPhone,
		EventDetails: b.EventDetails,
		Notes:        b.Notes,
	}
	if b.Date != nil {
		date, err := timeutil.ParseDate(strings.TrimSpace(*b.Date))
		if err != nil {
			return patch, errors.New("invalid date format; expected YYYY-MM-DD")
		}
		patch.Date = &date
	}
	if b.EndDate != nil {
		end, err := timeutil.ParseDate(strings.TrimSpace(*b.EndDate))
		if err != nil {
			return patch, errors.New("invalid end_date format; expected YYYY-MM-DD")
		}
		patch.EndDate = &end
	}
	return patch, nil
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return 0, false
	}
	return id, true
}

// window reads optional from/to query dates.
func window(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	var from, to time.Time
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		t, err := timeutil.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s; expected YYYY-MM-DD", p.name))
			return time.Time{}, time.Time{}, false
		}
		*p.dst = t
	}
	return from, to, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSlotUnavailable),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrDuplicateBookingNumber):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTimeRange), errors.Is(err, domain.ErrInvalidBooking):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("Request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
