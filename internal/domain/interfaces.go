package domain

import (
	"context"
	"time"

	"vitrina/internal/models"
)

// Sequencer hands out per-day booking counters. The returned value is always
// greater than floor, the largest number already persisted for dayPrefix.
type Sequencer interface {
	Next(ctx context.Context, dayPrefix string, floor int64) (int64, error)
}

type BookingStore interface {
	Sequencer

	GetPerformer(ctx context.Context, id int64) (*models.Performer, error)
	ListPerformers(ctx context.Context) ([]*models.Performer, error)
	CreatePerformer(ctx context.Context, performer *models.Performer) error

	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListPerformerBookings(ctx context.Context, performerID int64) ([]*models.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	InsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingWithVersion(ctx context.Context, booking *models.Booking, fromVersion int64) error
	DeleteBookingWithVersion(ctx context.Context, id, fromVersion int64) error
	MaxBookingSequence(ctx context.Context, dayPrefix string) (int64, error)
}

type Repository interface {
	BookingStore
	// WithinTx runs fn against a transaction-scoped store; fn's error rolls back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, store BookingStore) error) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type BookingService interface {
	CheckAvailability(ctx context.Context, performerID int64, date time.Time, startTime, endTime string) (bool, error)
	GetAvailableDates(ctx context.Context, performerID int64) ([]models.AvailableDate, error)
	GetDetailedAvailability(ctx context.Context, performerID int64, from, to time.Time) ([]models.DayAvailability, error)
	CreateBooking(ctx context.Context, performerID int64, req models.BookingRequest, actor models.Actor) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error)
	RejectBooking(ctx context.Context, performerID, bookingID int64, actor models.Actor) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64, actor models.Actor) (*models.Booking, error)
	UpdateBooking(ctx context.Context, bookingID int64, patch models.BookingPatch, actor models.Actor) (*models.Booking, error)
	PurgeBooking(ctx context.Context, bookingID int64, actor models.Actor) error
	GetBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	ListPerformerBookings(ctx context.Context, performerID int64) ([]*models.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	CreatePerformer(ctx context.Context, performer *models.Performer, actor models.Actor) error
	GetPerformer(ctx context.Context, id int64) (*models.Performer, error)
	ListPerformers(ctx context.Context) ([]*models.Performer, error)
}
