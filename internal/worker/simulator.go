package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"vitrina/internal/config"
	"vitrina/internal/domain"
	"vitrina/internal/metrics"
	"vitrina/internal/models"

	"github.com/rs/zerolog"
)

const (
	TriggerSchedule = "schedule"
	TriggerRequest  = "request"
)

// BookingOperations is the part of the booking service the simulator drives.
type BookingOperations interface {
	ListPerformers(ctx context.Context) ([]*models.Performer, error)
	ListPerformerBookings(ctx context.Context, performerID int64) ([]*models.Booking, error)
	GetDetailedAvailability(ctx context.Context, performerID int64, from, to time.Time) ([]models.DayAvailability, error)
	CreateBooking(ctx context.Context, performerID int64, req models.BookingRequest, actor models.Actor) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error)
	RejectBooking(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error)
}

// RunStats summarizes one simulator pass.
type RunStats struct {
	Confirmed int
	Rejected  int
	Created   int
	Skipped   int
}

// ActivitySimulator generates demo activity as an ordinary caller of the
// booking service: it confirms or rejects pending bookings and now and then
// books a free hour.
type ActivitySimulator struct {
	ops      BookingOperations
	cfg      config.SimulatorConfig
	actor    models.Actor
	logger   *zerolog.Logger
	now      func() time.Time
	triggers chan struct{}

	mu          sync.Mutex
	rnd         *rand.Rand
	lastTrigger time.Time
}

func NewActivitySimulator(ops BookingOperations, cfg config.SimulatorConfig, logger *zerolog.Logger) *ActivitySimulator {
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = models.DefaultSimulatorIntervalMinutes
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ActivitySimulator{
		ops:      ops,
		cfg:      cfg,
		actor:    models.SystemActor("activity-simulator"),
		logger:   logger,
		now:      time.Now,
		triggers: make(chan struct{}, 1),
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// WithRand replaces the random source, mostly for tests.
func (s *ActivitySimulator) WithRand(r *rand.Rand) *ActivitySimulator {
	s.mu.Lock()
	s.rnd = r
	s.mu.Unlock()
	return s
}

func (s *ActivitySimulator) WithClock(now func() time.Time) *ActivitySimulator {
	s.now = now
	return s
}

// Start runs the simulator until ctx is cancelled.
func (s *ActivitySimulator) Start(ctx context.Context) error {
	interval := time.Duration(s.cfg.IntervalMinutes) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("Activity simulator started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Activity simulator stopped")
			return nil
		case <-ticker.C:
			s.run(ctx, TriggerSchedule)
		case <-s.triggers:
			s.run(ctx, TriggerRequest)
		}
	}
}

// Trigger asks for an out-of-schedule pass. Calls closer than the minimum gap
// are dropped; it never blocks the caller.
func (s *ActivitySimulator) Trigger() bool {
	gap := time.Duration(s.cfg.MinTriggerGapMinutes) * time.Minute
	now := s.now()

	s.mu.Lock()
	if !s.lastTrigger.IsZero() && now.Sub(s.lastTrigger) < gap {
		s.mu.Unlock()
		return false
	}
	s.lastTrigger = now
	s.mu.Unlock()

	select {
	case s.triggers <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *ActivitySimulator) run(ctx context.Context, trigger string) {
	metrics.IncSimulatorRun(trigger)
	stats, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("Activity simulator pass failed")
		return
	}
	s.logger.Info().
		Str("trigger", trigger).
		Int("confirmed", stats.Confirmed).
		Int("rejected", stats.Rejected).
		Int("created", stats.Created).
		Int("skipped", stats.Skipped).
		Msg("Activity simulator pass finished")
}

// RunOnce makes one pass over all active performers.
func (s *ActivitySimulator) RunOnce(ctx context.Context) (RunStats, error) {
	var stats RunStats

	performers, err := s.ops.ListPerformers(ctx)
	if err != nil {
		return stats, fmt.Errorf("list performers: %w", err)
	}

	for _, p := range performers {
		if !p.IsActive {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.decidePending(ctx, p, &stats); err != nil {
			return stats, err
		}
		if s.chance(s.cfg.CreateProbability) {
			if err := s.createDemoBooking(ctx, p, &stats); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

func (s *ActivitySimulator) decidePending(ctx context.Context, p *models.Performer, stats *RunStats) error {
	bookings, err := s.ops.ListPerformerBookings(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("list bookings of performer %d: %w", p.ID, err)
	}

	for _, b := range bookings {
		if b.Status != models.StatusPending {
			continue
		}

		if s.chance(s.cfg.ConfirmProbability) {
			_, err = s.ops.ConfirmBooking(ctx, p.ID, b.ID, s.actor)
			if err == nil {
				stats.Confirmed++
				continue
			}
			if !errors.Is(err, domain.ErrSlotUnavailable) {
				if skippable(err) {
					stats.Skipped++
					continue
				}
				return fmt.Errorf("confirm booking %d: %w", b.ID, err)
			}
			// the slot went to someone else, the request is declined instead
		}

		_, err = s.ops.RejectBooking(ctx, p.ID, b.ID, s.actor)
		switch {
		case err == nil:
			stats.Rejected++
		case skippable(err):
			stats.Skipped++
		default:
			return fmt.Errorf("reject booking %d: %w", b.ID, err)
		}
	}
	return nil
}

func (s *ActivitySimulator) createDemoBooking(ctx context.Context, p *models.Performer, stats *RunStats) error {
	days, err := s.ops.GetDetailedAvailability(ctx, p.ID, time.Time{}, time.Time{})
	if err != nil {
		return fmt.Errorf("availability of performer %d: %w", p.ID, err)
	}
	if len(days) < 2 {
		return nil
	}

	// сегодня пропускаем: часть часов уже прошла
	var candidates []models.DayAvailability
	for _, d := range days[1:] {
		if d.HasAvailableSlots {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	day := candidates[s.intN(len(candidates))]
	var hours []int
	for _, h := range day.FreeHours() {
		if h < models.HoursPerDay-1 {
			hours = append(hours, h)
		}
	}
	if len(hours) == 0 {
		return nil
	}
	hour := hours[s.intN(len(hours))]

	_, err = s.ops.CreateBooking(ctx, p.ID, models.BookingRequest{
		Date:         day.Date,
		StartTime:    fmt.Sprintf("%02d:00", hour),
		EndTime:      fmt.Sprintf("%02d:00", hour+1),
		ClientName:   "Demo client",
		EventDetails: "generated by activity simulator",
	}, s.actor)
	switch {
	case err == nil:
		stats.Created++
	case skippable(err):
		stats.Skipped++
	default:
		return fmt.Errorf("create demo booking for performer %d: %w", p.ID, err)
	}
	return nil
}

func (s *ActivitySimulator) chance(p float64) bool {
	if p <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < p
}

func (s *ActivitySimulator) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// skippable errors come from racing with other callers.
func skippable(err error) bool {
	return errors.Is(err, domain.ErrInvalidState) ||
		errors.Is(err, domain.ErrSlotUnavailable) ||
		errors.Is(err, domain.ErrConcurrentModification) ||
		errors.Is(err, domain.ErrNotFound)
}
