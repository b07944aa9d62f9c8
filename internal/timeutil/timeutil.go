// Package timeutil converts naive "HH:MM" wall-clock strings and calendar dates
// into comparable values. No time zones are involved: every date is normalised
// to midnight UTC and treated as a plain calendar day.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"vitrina/internal/domain"
	"vitrina/internal/models"
)

// ParseClock splits "HH:MM" into hour and minute.
func ParseClock(clock string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: bad clock %q", domain.ErrInvalidTimeRange, clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", domain.ErrInvalidTimeRange, clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", domain.ErrInvalidTimeRange, clock)
	}
	return hour, minute, nil
}

// ToHourFraction returns hours + minutes/60. Malformed input yields 0.
func ToHourFraction(clock string) float64 {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return 0
	}
	return float64(hour) + float64(minute)/60
}

// HourOf returns the hour component of clock, 0 when malformed.
func HourOf(clock string) int {
	hour, _, err := ParseClock(clock)
	if err != nil {
		return 0
	}
	return hour
}

// SpansMidnight compares hour components only; minutes are ignored.
func SpansMidnight(startTime, endTime string) bool {
	return HourOf(endTime) < HourOf(startTime)
}

// HoursBetween is the wall-clock duration between two date+clock points.
// For a same-day midnight-spanning range the caller advances dateEnd first.
func HoursBetween(dateStart time.Time, timeStart string, dateEnd time.Time, timeEnd string) float64 {
	days := DateOnly(dateEnd).Sub(DateOnly(dateStart)).Hours()
	return days + ToHourFraction(timeEnd) - ToHourFraction(timeStart)
}

// DateOnly drops the clock part, keeping the calendar day as seen in t's location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func DateKey(t time.Time) string {
	return DateOnly(t).Format(models.DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", domain.ErrInvalidTimeRange, s)
	}
	return t, nil
}

// AddDays shifts a calendar day.
func AddDays(t time.Time, days int) time.Time {
	return DateOnly(t).AddDate(0, 0, days)
}

// Range describes a reservation by its calendar fields.
type Range struct {
	Date       time.Time
	StartTime  string
	EndTime    string
	IsMultiDay bool
	EndDate    *time.Time
}

func RangeOf(b *models.Booking) Range {
	return Range{
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		IsMultiDay: b.IsMultiDay,
		EndDate:    b.EndDate,
	}
}

// LastDate is the last calendar day the range occupies: the explicit end date of a
// multi-day range, the next day for a midnight-spanning one, the start day otherwise.
func (r Range) LastDate() time.Time {
	if r.IsMultiDay && r.EndDate != nil {
		return DateOnly(*r.EndDate)
	}
	if SpansMidnight(r.StartTime, r.EndTime) {
		return AddDays(r.Date, 1)
	}
	return DateOnly(r.Date)
}

// Bounds returns the absolute [start, end) instants of the range.
func (r Range) Bounds() (time.Time, time.Time) {
	start := DateOnly(r.Date).Add(clockOffset(r.StartTime))
	end := r.LastDate().Add(clockOffset(r.EndTime))
	return start, end
}

// Hours is the billable length of the range.
func (r Range) Hours() float64 {
	return HoursBetween(r.Date, r.StartTime, r.LastDate(), r.EndTime)
}

// Validate rejects malformed clocks, multi-day ranges without a later end date
// and empty or negative ranges.
func (r Range) Validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", domain.ErrInvalidTimeRange)
	}
	if _, _, err := ParseClock(r.StartTime); err != nil {
		return err
	}
	if _, _, err := ParseClock(r.EndTime); err != nil {
		return err
	}
	if r.IsMultiDay {
		if r.EndDate == nil {
			return fmt.Errorf("%w: multi-day booking needs end date", domain.ErrInvalidTimeRange)
		}
		if !DateOnly(*r.EndDate).After(DateOnly(r.Date)) {
			return fmt.Errorf("%w: end date must follow start date", domain.ErrInvalidTimeRange)
		}
	}
	if r.Hours() <= 0 {
		return fmt.Errorf("%w: %s-%s is empty", domain.ErrInvalidTimeRange, r.StartTime, r.EndTime)
	}
	return nil
}

func clockOffset(clock string) time.Duration {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return 0
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
}
