package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vitrina/internal/models"
)

const bookingColumns = `id, performer_id, booking_number, date, start_time, end_time,
	is_multi_day, end_date, total_price, status, client_name, client_email,
	client_phone, event_details, notes, owner_user_id, created_at, updated_at, version`

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b       models.Booking
		dateStr string
		endDate sql.NullString
		owner   sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &b.PerformerID, &b.BookingNumber, &dateStr, &b.StartTime, &b.EndTime,
		&b.IsMultiDay, &endDate, &b.TotalPrice, &b.Status, &b.ClientName, &b.ClientEmail,
		&b.ClientPhone, &b.EventDetails, &b.Notes, &owner, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	if endDate.Valid {
		d, err := time.Parse(models.DateLayout, endDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse booking end date %s: %w", endDate.String, err)
		}
		b.EndDate = &d
	}
	if owner.Valid {
		id := owner.Int64
		b.OwnerUserID = &id
	}
	return &b, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(models.DateLayout)
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (s *Store) listBookings(ctx context.Context, where string, args ...any) ([]*models.Booking, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

// ListPerformerBookings returns the performer's bookings in insertion order.
func (s *Store) ListPerformerBookings(ctx context.Context, performerID int64) ([]*models.Booking, error) {
	return s.listBookings(ctx, `performer_id = ?`, performerID)
}

func (s *Store) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.listBookings(ctx, `owner_user_id = ?`, userID)
}

func (s *Store) InsertBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				performer_id, booking_number, date, start_time, end_time, is_multi_day,
				end_date, total_price, status, client_name, client_email, client_phone,
				event_details, notes, owner_user_id, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	ts := now()
	if !booking.CreatedAt.IsZero() {
		ts = booking.CreatedAt.UTC()
	}
	result, err := s.q.ExecContext(ctx, query,
		booking.PerformerID,
		booking.BookingNumber,
		booking.Date.Format(models.DateLayout),
		booking.StartTime,
		booking.EndTime,
		booking.IsMultiDay,
		nullableDate(booking.EndDate),
		booking.TotalPrice,
		booking.Status,
		booking.ClientName,
		booking.ClientEmail,
		booking.ClientPhone,
		booking.EventDetails,
		booking.Notes,
		nullableInt(booking.OwnerUserID),
		ts,
		ts,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateBookingNumber, booking.BookingNumber)
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = ts
	booking.UpdatedAt = ts
	booking.Version = 1
	return nil
}

// UpdateBookingWithVersion writes every mutable field when the row still has
// fromVersion, and bumps the version.
func (s *Store) UpdateBookingWithVersion(ctx context.Context, booking *models.Booking, fromVersion int64) error {
	query := `UPDATE bookings SET
				date = ?, start_time = ?, end_time = ?, is_multi_day = ?, end_date = ?,
				total_price = ?, status = ?, client_name = ?, client_email = ?,
				client_phone = ?, event_details = ?, notes = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?`
	ts := now()
	result, err := s.q.ExecContext(ctx, query,
		booking.Date.Format(models.DateLayout),
		booking.StartTime,
		booking.EndTime,
		booking.IsMultiDay,
		nullableDate(booking.EndDate),
		booking.TotalPrice,
		booking.Status,
		booking.ClientName,
		booking.ClientEmail,
		booking.ClientPhone,
		booking.EventDetails,
		booking.Notes,
		ts,
		booking.ID,
		fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	booking.Version = fromVersion + 1
	booking.UpdatedAt = ts
	return nil
}

func (s *Store) DeleteBookingWithVersion(ctx context.Context, id, fromVersion int64) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ? AND version = ?`, id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}
