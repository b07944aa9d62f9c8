// Package availability builds the per-day, per-hour occupancy grid of a
// performer from its confirmed bookings.
package availability

import (
	"math"
	"time"

	"vitrina/internal/models"
	"vitrina/internal/timeutil"
)

// DefaultWindow returns today .. today+days (inclusive).
func DefaultWindow(now time.Time, days int) (time.Time, time.Time) {
	if days <= 0 {
		days = models.DefaultLookaheadDays
	}
	from := timeutil.DateOnly(now)
	return from, timeutil.AddDays(from, days)
}

// Build produces one DayAvailability per calendar day in [from, to].
// Only confirmed bookings occupy hours.
func Build(bookings []*models.Booking, from, to time.Time) []models.DayAvailability {
	from, to = timeutil.DateOnly(from), timeutil.DateOnly(to)
	if to.Before(from) {
		return nil
	}

	spans := make([]span, 0, len(bookings))
	for _, b := range bookings {
		if b == nil || !b.IsBlocking() {
			continue
		}
		spans = append(spans, spanOf(b))
	}

	var days []models.DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, buildDay(spans, d))
	}
	return days
}

func buildDay(spans []span, day time.Time) models.DayAvailability {
	out := models.DayAvailability{
		Date:    day,
		DayName: day.Weekday().String(),
		Hourly:  make([]models.HourSlot, models.HoursPerDay),
	}
	for h := range out.Hourly {
		out.Hourly[h].Hour = h
	}

	for _, s := range spans {
		if day.Before(s.first) || day.After(s.last) {
			continue
		}
		touched := false
		for h := 0; h < models.HoursPerDay; h++ {
			if out.Hourly[h].IsBooked || !s.occupies(day, h) {
				continue
			}
			out.Hourly[h].IsBooked = true
			out.Hourly[h].BookingRef = s.ref
			touched = true
		}
		if touched {
			out.BookingsCount++
		}
	}

	for _, slot := range out.Hourly {
		if !slot.IsBooked {
			out.HasAvailableSlots = true
			break
		}
	}
	return out
}

// AvailableDates keeps the days with fewer than maxPerDay confirmed bookings
// starting on them. Each entry lists the hours still free in the grid.
func AvailableDates(bookings []*models.Booking, days []models.DayAvailability, maxPerDay int) []models.AvailableDate {
	if maxPerDay <= 0 {
		maxPerDay = models.DefaultMaxBookingsPerDay
	}

	starts := make(map[string]int)
	for _, b := range bookings {
		if b == nil || !b.IsBlocking() {
			continue
		}
		starts[timeutil.DateKey(b.Date)]++
	}

	out := make([]models.AvailableDate, 0, len(days))
	for _, day := range days {
		count := starts[timeutil.DateKey(day.Date)]
		if count >= maxPerDay {
			continue
		}
		out = append(out, models.AvailableDate{
			Date:              day.Date,
			DayName:           day.DayName,
			ConfirmedBookings: count,
			AvailableHours:    day.FreeHours(),
		})
	}
	return out
}

type kind int

const (
	sameDay kind = iota
	overnight
	multiDay
)

// span is a confirmed booking reduced to hour granularity.
type span struct {
	kind      kind
	first     time.Time
	last      time.Time
	startHour int
	endHour   int // частично занятый последний час считается занятым
	ref       *models.BookingRef
}

func spanOf(b *models.Booking) span {
	s := span{
		first:     timeutil.DateOnly(b.Date),
		startHour: timeutil.HourOf(b.StartTime),
		endHour:   int(math.Ceil(timeutil.ToHourFraction(b.EndTime))),
		ref: &models.BookingRef{
			ID:            b.ID,
			BookingNumber: b.BookingNumber,
			StartTime:     b.StartTime,
			EndTime:       b.EndTime,
		},
	}
	switch {
	case b.IsMultiDay && b.EndDate != nil:
		s.kind = multiDay
		s.last = timeutil.DateOnly(*b.EndDate)
	case timeutil.SpansMidnight(b.StartTime, b.EndTime):
		s.kind = overnight
		s.last = timeutil.AddDays(s.first, 1)
	default:
		s.kind = sameDay
		s.last = s.first
	}
	return s
}

func (s span) occupies(day time.Time, hour int) bool {
	switch s.kind {
	case multiDay, overnight:
		switch {
		case day.Equal(s.first):
			return hour >= s.startHour
		case day.Equal(s.last):
			return hour < s.endHour
		default:
			return day.After(s.first) && day.Before(s.last)
		}
	default:
		return day.Equal(s.first) && hour >= s.startHour && hour < s.endHour
	}
}
