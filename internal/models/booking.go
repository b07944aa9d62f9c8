package models

import "time"

type Booking struct {
	ID            int64      `json:"id"`
	PerformerID   int64      `json:"performer_id"`
	BookingNumber string     `json:"booking_number"`
	Date          time.Time  `json:"date"`
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	IsMultiDay    bool       `json:"is_multi_day"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	TotalPrice    int64      `json:"total_price"`
	Status        Status     `json:"status"`
	ClientName    string     `json:"client_name"`
	ClientEmail   string     `json:"client_email"`
	ClientPhone   string     `json:"client_phone"`
	EventDetails  string     `json:"event_details"`
	Notes         string     `json:"notes"`
	OwnerUserID   *int64     `json:"owner_user_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Version       int64      `json:"version"`
}

// IsBlocking reports whether the booking occupies the performer's calendar.
func (b *Booking) IsBlocking() bool {
	return b.Status == StatusConfirmed
}

// OwnedBy reports whether userID requested the booking.
func (b *Booking) OwnedBy(userID int64) bool {
	return b.OwnerUserID != nil && *b.OwnerUserID == userID
}

// BookingRequest carries client-supplied fields for a new booking.
type BookingRequest struct {
	Date         time.Time  `json:"date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	IsMultiDay   bool       `json:"is_multi_day"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	ClientName   string     `json:"client_name"`
	ClientEmail  string     `json:"client_email"`
	ClientPhone  string     `json:"client_phone"`
	EventDetails string     `json:"event_details"`
	Notes        string     `json:"notes"`
}

// BookingPatch holds optional field deltas; nil fields are left untouched.
type BookingPatch struct {
	Date         *time.Time `json:"date,omitempty"`
	StartTime    *string    `json:"start_time,omitempty"`
	EndTime      *string    `json:"end_time,omitempty"`
	IsMultiDay   *bool      `json:"is_multi_day,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	ClientName   *string    `json:"client_name,omitempty"`
	ClientEmail  *string    `json:"client_email,omitempty"`
	ClientPhone  *string    `json:"client_phone,omitempty"`
	EventDetails *string    `json:"event_details,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// TouchesSchedule reports whether the patch changes date or time fields.
func (p BookingPatch) TouchesSchedule() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil || p.IsMultiDay != nil || p.EndDate != nil
}
