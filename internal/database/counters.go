package database

import (
	"context"
	"fmt"
)

// Next atomically advances the day counter, never below floor+1.
func (s *Store) Next(ctx context.Context, dayPrefix string, floor int64) (int64, error) {
	query := `INSERT INTO booking_counters (day_prefix, value) VALUES (?, ?)
              ON CONFLICT(day_prefix) DO UPDATE SET value = MAX(booking_counters.value, ?) + 1
              RETURNING value`
	var value int64
	if err := s.q.QueryRowContext(ctx, query, dayPrefix, floor+1, floor).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to advance booking counter: %w", err)
	}
	return value, nil
}

// MaxBookingSequence returns the largest numeric suffix among booking numbers
// starting with dayPrefix, 0 when there are none.
func (s *Store) MaxBookingSequence(ctx context.Context, dayPrefix string) (int64, error) {
	query := `SELECT COALESCE(MAX(CAST(substr(booking_number, ?) AS INTEGER)), 0)
              FROM bookings WHERE substr(booking_number, 1, ?) = ?`
	var maxSeq int64
	err := s.q.QueryRowContext(ctx, query, len(dayPrefix)+1, len(dayPrefix), dayPrefix).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to read max booking sequence: %w", err)
	}
	return maxSeq, nil
}
