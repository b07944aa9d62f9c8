// Package lifecycle holds the booking state machine:
//
//	pending   -> confirmed | rejected | cancelled
//	confirmed -> confirmed | rejected | cancelled
//	rejected, cancelled: terminal (only an admin purge removes them)
//
// Field updates are allowed while pending only. Authorization is the caller's job.
package lifecycle

import (
	"fmt"

	"vitrina/internal/domain"
	"vitrina/internal/models"
)

type Transition string

const (
	Confirm Transition = "confirm"
	Reject  Transition = "reject"
	Cancel  Transition = "cancel"
	Update  Transition = "update"
	Purge   Transition = "purge"
)

var transitions = []Transition{Confirm, Reject, Cancel, Update, Purge}

// Guard reports why t cannot fire from the given status, or nil when it can.
func Guard(t Transition, from models.Status) error {
	if !from.Valid() {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidState, from)
	}

	switch t {
	case Confirm:
		switch from {
		case models.StatusPending, models.StatusConfirmed:
			return nil
		case models.StatusRejected:
			return fmt.Errorf("%w: cannot confirm rejected booking", domain.ErrInvalidState)
		default:
			return fmt.Errorf("%w: cannot confirm cancelled booking", domain.ErrInvalidState)
		}
	case Reject:
		switch from {
		case models.StatusRejected:
			return domain.ErrAlreadyRejected
		case models.StatusCancelled:
			return fmt.Errorf("%w: cannot reject cancelled booking", domain.ErrInvalidState)
		}
		return nil
	case Cancel:
		switch from {
		case models.StatusCancelled:
			return domain.ErrAlreadyCancelled
		case models.StatusRejected:
			return fmt.Errorf("%w: cannot cancel rejected booking", domain.ErrInvalidState)
		}
		return nil
	case Update:
		switch from {
		case models.StatusConfirmed:
			return domain.ErrCannotModifyConfirmed
		case models.StatusRejected:
			return domain.ErrCannotModifyRejected
		case models.StatusCancelled:
			return domain.ErrCannotModifyCancelled
		}
		return nil
	case Purge:
		if from == models.StatusRejected || from == models.StatusCancelled {
			return nil
		}
		return fmt.Errorf("%w: only rejected or cancelled bookings can be purged", domain.ErrInvalidState)
	}
	return fmt.Errorf("%w: unknown transition %q", domain.ErrInvalidState, t)
}

// Apply returns the status after t, or the guard error.
func Apply(t Transition, from models.Status) (models.Status, error) {
	if err := Guard(t, from); err != nil {
		return from, err
	}
	switch t {
	case Confirm:
		return models.StatusConfirmed, nil
	case Reject:
		return models.StatusRejected, nil
	case Cancel:
		return models.StatusCancelled, nil
	}
	// update and purge keep the status
	return from, nil
}

// Allowed lists the transitions that may fire from status.
func Allowed(from models.Status) []Transition {
	var out []Transition
	for _, t := range transitions {
		if Guard(t, from) == nil {
			out = append(out, t)
		}
	}
	return out
}

// IsTerminal reports whether no status-changing transition is left.
func IsTerminal(from models.Status) bool {
	for _, t := range []Transition{Confirm, Reject, Cancel} {
		if Guard(t, from) == nil {
			return false
		}
	}
	return true
}
