package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"vitrina/internal/availability"
	"vitrina/internal/conflict"
	"vitrina/internal/domain"
	"vitrina/internal/events"
	"vitrina/internal/lifecycle"
	"vitrina/internal/metrics"
	"vitrina/internal/models"
	"vitrina/internal/numbering"
	"vitrina/internal/timeutil"
	"vitrina/internal/worker"

	"github.com/rs/zerolog"
)

// maxWindowDays bounds a detailed availability request.
const maxWindowDays = 366

// opCreate labels booking creation in metrics next to the lifecycle transitions.
const opCreate lifecycle.Transition = "create"

type Options struct {
	NumberPrefix      string
	LookaheadDays     int
	MaxBookingsPerDay int
	MaxAdvanceDays    int
	// Sequencer overrides the store's own counter table (e.g. Redis).
	Sequencer domain.Sequencer
	Retry     worker.RetryPolicy
	Now       func() time.Time
}

type BookingService struct {
	repo      domain.Repository
	eventBus  domain.EventPublisher
	numbers   *numbering.Generator
	sequencer domain.Sequencer
	retry     worker.RetryPolicy
	lookahead int
	maxPerDay int
	maxAhead  int
	now       func() time.Time
	locks     sync.Map // performerID -> *sync.Mutex
	logger    *zerolog.Logger
}

var _ domain.BookingService = (*BookingService)(nil)

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, opts Options, logger *zerolog.Logger) *BookingService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LookaheadDays <= 0 {
		opts.LookaheadDays = models.DefaultLookaheadDays
	}
	if opts.MaxBookingsPerDay <= 0 {
		opts.MaxBookingsPerDay = models.DefaultMaxBookingsPerDay
	}
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = 365
	}
	if opts.Retry.MaxRetries <= 0 {
		opts.Retry.MaxRetries = 3
	}
	if opts.Retry.InitialDelay <= 0 {
		opts.Retry.InitialDelay = 10 * time.Millisecond
		opts.Retry.MaxDelay = 200 * time.Millisecond
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		repo:      repo,
		eventBus:  eventBus,
		numbers:   numbering.NewGenerator(opts.NumberPrefix).WithClock(opts.Now),
		sequencer: opts.Sequencer,
		retry:     opts.Retry,
		lookahead: opts.LookaheadDays,
		maxPerDay: opts.MaxBookingsPerDay,
		maxAhead:  opts.MaxAdvanceDays,
		now:       opts.Now,
		logger:    logger,
	}
}

// lockPerformer serializes mutations of one performer's calendar in this process.
func (s *BookingService) lockPerformer(performerID int64) func() {
	v, _ := s.locks.LoadOrStore(performerID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *BookingService) CheckAvailability(ctx context.Context, performerID int64, date time.Time, startTime, endTime string) (bool, error) {
	candidate := conflict.Candidate{Date: timeutil.DateOnly(date), StartTime: startTime, EndTime: endTime}
	if err := (timeutil.Range{Date: candidate.Date, StartTime: startTime, EndTime: endTime}).Validate(); err != nil {
		return false, err
	}

	if _, err := s.repo.GetPerformer(ctx, performerID); err != nil {
		return false, err
	}
	bookings, err := s.repo.ListPerformerBookings(ctx, performerID)
	if err != nil {
		return false, err
	}

	available := conflict.Check(bookings, candidate)
	metrics.IncAvailabilityCheck(available)
	return available, nil
}

func (s *BookingService) GetAvailableDates(ctx context.Context, performerID int64) ([]models.AvailableDate, error) {
	if _, err := s.repo.GetPerformer(ctx, performerID); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListPerformerBookings(ctx, performerID)
	if err != nil {
		return nil, err
	}

	from, to := availability.DefaultWindow(s.now(), s.lookahead)
	grid := availability.Build(bookings, from, to)
	return availability.AvailableDates(bookings, grid, s.maxPerDay), nil
}

// GetDetailedAvailability builds the hourly grid for [from, to]. Zero bounds
// fall back to the default lookahead window.
func (s *BookingService) GetDetailedAvailability(ctx context.Context, performerID int64, from, to time.Time) ([]models.DayAvailability, error) {
	if from.IsZero() {
		from, _ = availability.DefaultWindow(s.now(), s.lookahead)
	}
	if to.IsZero() {
		to = timeutil.AddDays(from, s.lookahead)
	}
	from, to = timeutil.DateOnly(from), timeutil.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: window ends before it starts", domain.ErrInvalidTimeRange)
	}
	if to.Sub(from) > maxWindowDays*24*time.Hour {
		return nil, fmt.Errorf("%w: window longer than %d days", domain.ErrInvalidTimeRange, maxWindowDays)
	}

	if _, err := s.repo.GetPerformer(ctx, performerID); err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListPerformerBookings(ctx, performerID)
	if err != nil {
		return nil, err
	}
	return availability.Build(bookings, from, to), nil
}

func (s *BookingService) CreateBooking(ctx context.Context, performerID int64, req models.BookingRequest, actor models.Actor) (*models.Booking, error) {
	booking, err := s.newBooking(performerID, req, actor)
	if err != nil {
		s.record(opCreate, err)
		return nil, err
	}

	performer, err := s.repo.GetPerformer(ctx, performerID)
	if err != nil {
		s.record(opCreate, err)
		return nil, err
	}
	if !performer.IsActive {
		err = fmt.Errorf("%w: performer %d is not accepting bookings", domain.ErrInvalidBooking, performerID)
		s.record(opCreate, err)
		return nil, err
	}
	booking.TotalPrice = price(timeutil.RangeOf(booking), performer.PricePerHour)

	unlock := s.lockPerformer(performerID)
	defer unlock()

	isDuplicate := func(err error) bool { return errors.Is(err, domain.ErrDuplicateBookingNumber) }
	onRetry := func(attempt int, err error) {
		metrics.IncNumberingRetry()
		s.logger.Warn().Err(err).Int("attempt", attempt).Int64("performer_id", performerID).Msg("Booking number collision, retrying")
	}

	err = s.retry.Do(ctx, isDuplicate, onRetry, func(ctx context.Context) error {
		return s.repo.WithinTx(ctx, func(ctx context.Context, store domain.BookingStore) error {
			existing, err := store.ListPerformerBookings(ctx, performerID)
			if err != nil {
				return err
			}
			if !conflict.Check(existing, candidateOf(booking)) {
				return fmt.Errorf("%w: %s %s-%s", domain.ErrSlotUnavailable,
					timeutil.DateKey(booking.Date), booking.StartTime, booking.EndTime)
			}

			number, err := s.numbers.Next(ctx, store, s.sequencerFor(store))
			if err != nil {
				return err
			}
			booking.BookingNumber = number
			booking.CreatedAt = s.now()
			return store.InsertBooking(ctx, booking)
		})
	})
	s.record(opCreate, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("booking_number", booking.BookingNumber).
		Int64("performer_id", performerID).
		Str("actor", actorName(actor)).
		Msg("Booking created")
	s.publishEvent(events.EventBookingCreated, booking, actor)
	return booking, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error) {
	if !actor.IsAdmin() {
		s.record(lifecycle.Confirm, domain.ErrUnauthorized)
		return nil, fmt.Errorf("%w: only admins confirm bookings", domain.ErrUnauthorized)
	}
	return s.transition(ctx, performerID, bookingID, lifecycle.Confirm, actor)
}

func (s *BookingService) RejectBooking(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error) {
	if !actor.IsAdmin() {
		s.record(lifecycle.Reject, domain.ErrUnauthorized)
		return nil, fmt.Errorf("%w: only admins reject bookings", domain.ErrUnauthorized)
	}
	return s.transition(ctx, performerID, bookingID, lifecycle.Reject, actor)
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, actor models.Actor) (*models.Booking, error) {
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.record(lifecycle.Cancel, err)
		return nil, err
	}
	if !actor.IsAdmin() && !current.OwnedBy(actor.UserID) {
		s.record(lifecycle.Cancel, domain.ErrUnauthorized)
		return nil, fmt.Errorf("%w: booking %d belongs to another user", domain.ErrUnauthorized, bookingID)
	}
	return s.transition(ctx, current.PerformerID, bookingID, lifecycle.Cancel, actor)
}

// transition applies a status change under the performer lock. The guard runs
// on the row read inside the transaction and the write is version-conditional.
func (s *BookingService) transition(ctx context.Context, performerID, bookingID int64, t lifecycle.Transition, actor models.Actor) (*models.Booking, error) {
	unlock := s.lockPerformer(performerID)
	defer unlock()

	var (
		result  *models.Booking
		changed bool
	)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.BookingStore) error {
		b, err := store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.PerformerID != performerID {
			return fmt.Errorf("booking %d of performer %d: %w", bookingID, performerID, domain.ErrNotFound)
		}

		next, err := lifecycle.Apply(t, b.Status)
		if err != nil {
			return err
		}
		if next == b.Status {
			// re-confirming is accepted as a no-op
			result = b
			return nil
		}

		if next == models.StatusConfirmed {
			existing, err := store.ListPerformerBookings(ctx, performerID)
			if err != nil {
				return err
			}
			candidate := candidateOf(b)
			candidate.ExcludeID = b.ID
			if clashes := conflict.Find(existing, candidate); len(clashes) > 0 {
				return fmt.Errorf("%w: overlaps confirmed booking %s", domain.ErrSlotUnavailable, clashes[0].BookingNumber)
			}
		}

		b.Status = next
		if err := store.UpdateBookingWithVersion(ctx, b, b.Version); err != nil {
			return err
		}
		result = b
		changed = true
		return nil
	})
	s.record(t, err)
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info().
			Int64("booking_id", result.ID).
			Str("transition", string(t)).
			Str("status", result.Status.String()).
			Str("actor", actorName(actor)).
			Msg("Booking status changed")
		s.publishEvent(transitionEvent(t), result, actor)
	}
	return result, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, bookingID int64, patch models.BookingPatch, actor models.Actor) (*models.Booking, error) {
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.record(lifecycle.Update, err)
		return nil, err
	}
	if !current.OwnedBy(actor.UserID) {
		s.record(lifecycle.Update, domain.ErrUnauthorized)
		return nil, fmt.Errorf("%w: only the owner can edit booking %d", domain.ErrUnauthorized, bookingID)
	}

	unlock := s.lockPerformer(current.PerformerID)
	defer unlock()

	var result *models.Booking
	err = s.repo.WithinTx(ctx, func(ctx context.Context, store domain.BookingStore) error {
		b, err := store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := lifecycle.Guard(lifecycle.Update, b.Status); err != nil {
			return err
		}

		applyPatch(b, patch)
		if err := validateBooking(b); err != nil {
			return err
		}

		if patch.TouchesSchedule() {
			if err := s.checkAdvance(b.Date); err != nil {
				return err
			}
			existing, err := store.ListPerformerBookings(ctx, b.PerformerID)
			if err != nil {
				return err
			}
			candidate := candidateOf(b)
			candidate.ExcludeID = b.ID
			if !conflict.Check(existing, candidate) {
				return fmt.Errorf("%w: %s %s-%s", domain.ErrSlotUnavailable,
					timeutil.DateKey(b.Date), b.StartTime, b.EndTime)
			}

			performer, err := store.GetPerformer(ctx, b.PerformerID)
			if err != nil {
				return err
			}
			b.TotalPrice = price(timeutil.RangeOf(b), performer.PricePerHour)
		}

		if err := store.UpdateBookingWithVersion(ctx, b, b.Version); err != nil {
			return err
		}
		result = b
		return nil
	})
	s.record(lifecycle.Update, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("booking_id", result.ID).Int64("total_price", result.TotalPrice).Msg("Booking updated")
	s.publishEvent(events.EventBookingUpdated, result, actor)
	return result, nil
}

func (s *BookingService) PurgeBooking(ctx context.Context, bookingID int64, actor models.Actor) error {
	if !actor.IsAdmin() {
		s.record(lifecycle.Purge, domain.ErrUnauthorized)
		return fmt.Errorf("%w: only admins purge bookings", domain.ErrUnauthorized)
	}

	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.record(lifecycle.Purge, err)
		return err
	}

	unlock := s.lockPerformer(current.PerformerID)
	defer unlock()

	var purged *models.Booking
	err = s.repo.WithinTx(ctx, func(ctx context.Context, store domain.BookingStore) error {
		b, err := store.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := lifecycle.Guard(lifecycle.Purge, b.Status); err != nil {
			return err
		}
		if err := store.DeleteBookingWithVersion(ctx, b.ID, b.Version); err != nil {
			return err
		}
		purged = b
		return nil
	})
	s.record(lifecycle.Purge, err)
	if err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", bookingID).Str("actor", actorName(actor)).Msg("Booking purged")
	s.publishEvent(events.EventBookingPurged, purged, actor)
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, bookingID)
}

func (s *BookingService) ListPerformerBookings(ctx context.Context, performerID int64) ([]*models.Booking, error) {
	if _, err := s.repo.GetPerformer(ctx, performerID); err != nil {
		return nil, err
	}
	return s.repo.ListPerformerBookings(ctx, performerID)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.repo.ListUserBookings(ctx, userID)
}

func (s *BookingService) CreatePerformer(ctx context.Context, performer *models.Performer, actor models.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins add performers", domain.ErrUnauthorized)
	}
	performer.Name = strings.TrimSpace(performer.Name)
	if performer.Name == "" {
		return fmt.Errorf("%w: performer name is required", domain.ErrInvalidBooking)
	}
	if performer.PricePerHour < 0 {
		return fmt.Errorf("%w: negative price", domain.ErrInvalidBooking)
	}
	performer.IsActive = true
	return s.repo.CreatePerformer(ctx, performer)
}

func (s *BookingService) GetPerformer(ctx context.Context, id int64) (*models.Performer, error) {
	return s.repo.GetPerformer(ctx, id)
}

func (s *BookingService) ListPerformers(ctx context.Context) ([]*models.Performer, error) {
	return s.repo.ListPerformers(ctx)
}

func (s *BookingService) newBooking(performerID int64, req models.BookingRequest, actor models.Actor) (*models.Booking, error) {
	b := &models.Booking{
		PerformerID:  performerID,
		Date:         timeutil.DateOnly(req.Date),
		StartTime:    strings.TrimSpace(req.StartTime),
		EndTime:      strings.TrimSpace(req.EndTime),
		IsMultiDay:   req.IsMultiDay,
		Status:       models.StatusPending,
		ClientName:   strings.TrimSpace(req.ClientName),
		ClientEmail:  strings.TrimSpace(req.ClientEmail),
		ClientPhone:  strings.TrimSpace(req.ClientPhone),
		EventDetails: req.EventDetails,
		Notes:        req.Notes,
	}
	if req.IsMultiDay && req.EndDate != nil {
		end := timeutil.DateOnly(*req.EndDate)
		b.EndDate = &end
	}
	if actor.UserID > 0 {
		owner := actor.UserID
		b.OwnerUserID = &owner
	}

	if err := validateBooking(b); err != nil {
		return nil, err
	}
	if err := s.checkAdvance(b.Date); err != nil {
		return nil, err
	}
	return b, nil
}

// checkAdvance rejects dates in the past or beyond the booking horizon.
func (s *BookingService) checkAdvance(date time.Time) error {
	today := timeutil.DateOnly(s.now())
	if date.Before(today) {
		return fmt.Errorf("%w: %s is in the past", domain.ErrInvalidTimeRange, timeutil.DateKey(date))
	}
	if date.After(timeutil.AddDays(today, s.maxAhead)) {
		return fmt.Errorf("%w: %s is too far ahead", domain.ErrInvalidTimeRange, timeutil.DateKey(date))
	}
	return nil
}

func (s *BookingService) sequencerFor(store domain.BookingStore) domain.Sequencer {
	if s.sequencer != nil {
		return s.sequencer
	}
	return store
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, actor models.Actor) {
	if s.eventBus == nil || b == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		PerformerID:   b.PerformerID,
		Status:        b.Status.String(),
		Date:          b.Date,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		TotalPrice:    b.TotalPrice,
		OwnerUserID:   b.OwnerUserID,
		ChangedBy:     actorName(actor),
		ChangedByID:   actor.UserID,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("Failed to publish event")
	}
}

func (s *BookingService) record(t lifecycle.Transition, err error) {
	metrics.IncTransition(string(t), Outcome(err))
}

// Outcome classifies an operation result for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidTimeRange), errors.Is(err, domain.ErrInvalidBooking):
		return "invalid"
	default:
		return "error"
	}
}

func validateBooking(b *models.Booking) error {
	if err := timeutil.RangeOf(b).Validate(); err != nil {
		return err
	}
	if b.ClientName == "" {
		return fmt.Errorf("%w: client name is required", domain.ErrInvalidBooking)
	}
	return nil
}

func applyPatch(b *models.Booking, p models.BookingPatch) {
	if p.Date != nil {
		b.Date = timeutil.DateOnly(*p.Date)
	}
	if p.StartTime != nil {
		b.StartTime = strings.TrimSpace(*p.StartTime)
	}
	if p.EndTime != nil {
		b.EndTime = strings.TrimSpace(*p.EndTime)
	}
	if p.IsMultiDay != nil {
		b.IsMultiDay = *p.IsMultiDay
	}
	if p.EndDate != nil {
		end := timeutil.DateOnly(*p.EndDate)
		b.EndDate = &end
	}
	if !b.IsMultiDay {
		b.EndDate = nil
	}
	if p.ClientName != nil {
		b.ClientName = strings.TrimSpace(*p.ClientName)
	}
	if p.ClientEmail != nil {
		b.ClientEmail = strings.TrimSpace(*p.ClientEmail)
	}
	if p.ClientPhone != nil {
		b.ClientPhone = strings.TrimSpace(*p.ClientPhone)
	}
	if p.EventDetails != nil {
		b.EventDetails = *p.EventDetails
	}
	if p.Notes != nil {
		b.Notes = *p.Notes
	}
}

func candidateOf(b *models.Booking) conflict.Candidate {
	return conflict.Candidate{
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		IsMultiDay: b.IsMultiDay,
		EndDate:    b.EndDate,
	}
}

// price is hours * pricePerHour rounded to the nearest currency unit.
func price(r timeutil.Range, pricePerHour int64) int64 {
	return int64(math.Round(r.Hours() * float64(pricePerHour)))
}

func transitionEvent(t lifecycle.Transition) string {
	switch t {
	case lifecycle.Confirm:
		return events.EventBookingConfirmed
	case lifecycle.Reject:
		return events.EventBookingRejected
	case lifecycle.Cancel:
		return events.EventBookingCancelled
	}
	return events.EventBookingUpdated
}

func actorName(a models.Actor) string {
	if a.Name != "" {
		return a.Name
	}
	if a.UserID != 0 {
		return fmt.Sprintf("%s:%d", a.Role, a.UserID)
	}
	return string(a.Role)
}
