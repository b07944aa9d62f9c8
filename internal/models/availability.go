package models

import "time"

// BookingRef points from a grid cell to the booking occupying it.
type BookingRef struct {
	ID            int64  `json:"id"`
	BookingNumber string `json:"booking_number"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type HourSlot struct {
	Hour       int         `json:"hour"`
	IsBooked   bool        `json:"is_booked"`
	BookingRef *BookingRef `json:"booking_ref,omitempty"`
}

// DayAvailability is one row of the detailed availability grid.
type DayAvailability struct {
	Date              time.Time  `json:"date"`
	DayName           string     `json:"day_name"`
	Hourly            []HourSlot `json:"hourly"`
	HasAvailableSlots bool       `json:"has_available_slots"`
	BookingsCount     int        `json:"bookings_count"`
}

// FreeHours lists the hours of the day nobody occupies.
func (d DayAvailability) FreeHours() []int {
	free := make([]int, 0, len(d.Hourly))
	for _, slot := range d.Hourly {
		if !slot.IsBooked {
			free = append(free, slot.Hour)
		}
	}
	return free
}

// AvailableDate is the coarse day-level view used by date pickers.
type AvailableDate struct {
	Date              time.Time `json:"date"`
	DayName           string    `json:"day_name"`
	ConfirmedBookings int       `json:"confirmed_bookings"`
	AvailableHours    []int     `json:"available_hours"`
}
