package domain

import "errors"

var (
	ErrSlotUnavailable        = errors.New("slot unavailable")
	ErrInvalidState           = errors.New("invalid booking state")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidTimeRange       = errors.New("invalid time range")
	ErrInvalidBooking         = errors.New("invalid booking")
	ErrDuplicateBookingNumber = errors.New("duplicate booking number")
)

// Sub-reasons of ErrInvalidState.
var (
	ErrAlreadyRejected       = stateError("already rejected")
	ErrAlreadyCancelled      = stateError("already cancelled")
	ErrCannotModifyConfirmed = stateError("cannot modify confirmed booking")
	ErrCannotModifyRejected  = stateError("cannot modify rejected booking")
	ErrCannotModifyCancelled = stateError("cannot modify cancelled booking")
)

type reasonError struct {
	reason string
}

func stateError(reason string) error {
	return &reasonError{reason: reason}
}

func (e *reasonError) Error() string {
	return ErrInvalidState.Error() + ": " + e.reason
}

func (e *reasonError) Unwrap() error {
	return ErrInvalidState
}
