// Package conflict decides whether a candidate reservation overlaps the
// performer's confirmed bookings.
package conflict

import (
	"time"

	"vitrina/internal/models"
	"vitrina/internal/timeutil"
)

// Candidate is a reservation being validated. ExcludeID skips the booking's own
// row when an existing booking is re-checked (confirm, reschedule).
type Candidate struct {
	Date       time.Time
	StartTime  string
	EndTime    string
	IsMultiDay bool
	EndDate    *time.Time
	ExcludeID  int64
}

func (c Candidate) timeRange() timeutil.Range {
	return timeutil.Range{
		Date:       c.Date,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
		IsMultiDay: c.IsMultiDay,
		EndDate:    c.EndDate,
	}
}

// IsAvailable reports whether date startTime-endTime is free.
func IsAvailable(bookings []*models.Booking, date time.Time, startTime, endTime string) bool {
	return Check(bookings, Candidate{Date: date, StartTime: startTime, EndTime: endTime})
}

// Check returns true when no confirmed booking overlaps the candidate.
func Check(bookings []*models.Booking, candidate Candidate) bool {
	return len(Find(bookings, candidate)) == 0
}

// Find lists confirmed bookings overlapping the candidate. Intervals are
// half-open, so touching endpoints do not conflict. Midnight spill-over and
// multi-day spans are taken into account on both sides.
func Find(bookings []*models.Booking, candidate Candidate) []*models.Booking {
	candStart, candEnd := candidate.timeRange().Bounds()
	if !candEnd.After(candStart) {
		return nil
	}
	candFirst := timeutil.DateOnly(candidate.Date)
	candLast := candidate.timeRange().LastDate()

	var overlapping []*models.Booking
	for _, b := range bookings {
		if b == nil || !b.IsBlocking() || (candidate.ExcludeID != 0 && b.ID == candidate.ExcludeID) {
			continue
		}
		r := timeutil.RangeOf(b)
		// cheap day-range filter before computing instants
		if timeutil.DateOnly(b.Date).After(candLast) || r.LastDate().Before(candFirst) {
			continue
		}
		start, end := r.Bounds()
		if candStart.Before(end) && candEnd.After(start) {
			overlapping = append(overlapping, b)
		}
	}
	return overlapping
}
