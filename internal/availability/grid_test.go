package availability

import (
	"fmt"
	"testing"
	"time"

	"vitrina/internal/conflict"
	"vitrina/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func booked(d models.DayAvailability) []int {
	var hours []int
	for _, slot := range d.Hourly {
		if slot.IsBooked {
			hours = append(hours, slot.Hour)
		}
	}
	return hours
}

func hours(from, to int) []int {
	var out []int
	for h := from; h <= to; h++ {
		out = append(out, h)
	}
	return out
}

func confirmed(id int64, date, start, end string) *models.Booking {
	return &models.Booking{
		ID:            id,
		BookingNumber: "VT-20250601-00001",
		Date:          day(date),
		StartTime:     start,
		EndTime:       end,
		Status:        models.StatusConfirmed,
	}
}

func TestBuildSameDay(t *testing.T) {
	b := confirmed(1, "2025-06-01", "18:00", "22:00")
	grid := Build([]*models.Booking{b}, day("2025-06-01"), day("2025-06-02"))

	require.Len(t, grid, 2)
	assert.Equal(t, hours(18, 21), booked(grid[0]))
	assert.Empty(t, booked(grid[1]))
	assert.Equal(t, 1, grid[0].BookingsCount)
	assert.Equal(t, 0, grid[1].BookingsCount)
	assert.True(t, grid[0].HasAvailableSlots)
	assert.Equal(t, "Sunday", grid[0].DayName)

	require.NotNil(t, grid[0].Hourly[18].BookingRef)
	assert.Equal(t, int64(1), grid[0].Hourly[18].BookingRef.ID)
	assert.Nil(t, grid[0].Hourly[17].BookingRef)
}

func TestBuildMultiDayCoverage(t *testing.T) {
	end := day("2025-06-03")
	b := confirmed(1, "2025-06-01", "14:00", "10:00")
	b.IsMultiDay = true
	b.EndDate = &end

	grid := Build([]*models.Booking{b}, day("2025-05-31"), day("2025-06-04"))
	require.Len(t, grid, 5)

	assert.Empty(t, booked(grid[0]))
	assert.Equal(t, hours(14, 23), booked(grid[1]))
	assert.Equal(t, hours(0, 23), booked(grid[2]))
	assert.False(t, grid[2].HasAvailableSlots)
	assert.Equal(t, hours(0, 9), booked(grid[3]))
	assert.Empty(t, booked(grid[4]))
}

func TestBuildOvernightSpill(t *testing.T) {
	b := confirmed(1, "2025-06-01", "22:00", "03:00")
	grid := Build([]*models.Booking{b}, day("2025-06-01"), day("2025-06-03"))

	require.Len(t, grid, 3)
	assert.Equal(t, []int{22, 23}, booked(grid[0]))
	assert.Equal(t, []int{0, 1, 2}, booked(grid[1]))
	assert.Empty(t, booked(grid[2]))
	assert.Equal(t, 1, grid[1].BookingsCount)
}

func TestBuildPartialHours(t *testing.T) {
	cases := []struct {
		name       string
		start, end string
		first      []int
		second     []int
	}{
		{"half hour", "10:00", "10:30", []int{10}, nil},
		{"crosses hour", "10:30", "11:15", []int{10, 11}, nil},
		{"last hour of day", "23:00", "23:30", []int{23}, nil},
		{"overnight partial end", "22:00", "00:30", []int{22, 23}, []int{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := confirmed(1, "2025-06-01", tc.start, tc.end)
			grid := Build([]*models.Booking{b}, day("2025-06-01"), day("2025-06-02"))

			require.Len(t, grid, 2)
			assert.Equal(t, tc.first, booked(grid[0]))
			assert.Equal(t, tc.second, booked(grid[1]))
			assert.Equal(t, 1, grid[0].BookingsCount)
		})
	}
}

func TestBuildMatchesConflictCheck(t *testing.T) {
	bookings := []*models.Booking{
		confirmed(1, "2025-06-01", "10:00", "10:30"),
		confirmed(2, "2025-06-01", "13:30", "15:15"),
		confirmed(3, "2025-06-01", "18:45", "19:00"),
	}
	grid := Build(bookings, day("2025-06-01"), day("2025-06-01"))
	require.Len(t, grid, 1)

	for h := 0; h < 23; h++ {
		start := fmt.Sprintf("%02d:00", h)
		end := fmt.Sprintf("%02d:00", h+1)
		free := conflict.IsAvailable(bookings, day("2025-06-01"), start, end)
		assert.Equal(t, !free, grid[0].Hourly[h].IsBooked, "hour %d", h)
	}
	assert.Equal(t, []int{10, 13, 14, 15, 18}, booked(grid[0]))
}

func TestBuildIgnoresNonConfirmed(t *testing.T) {
	var bookings []*models.Booking
	for i, st := range []models.Status{models.StatusPending, models.StatusRejected, models.StatusCancelled} {
		b := confirmed(int64(i+1), "2025-06-01", "10:00", "12:00")
		b.Status = st
		bookings = append(bookings, b)
	}
	bookings = append(bookings, nil)

	grid := Build(bookings, day("2025-06-01"), day("2025-06-01"))
	require.Len(t, grid, 1)
	assert.Empty(t, booked(grid[0]))
	assert.Equal(t, 0, grid[0].BookingsCount)
}

func TestBuildEmptyWindow(t *testing.T) {
	assert.Nil(t, Build(nil, day("2025-06-02"), day("2025-06-01")))
}

func TestDefaultWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	from, to := DefaultWindow(now, 0)
	assert.Equal(t, day("2025-06-01"), from)
	assert.Equal(t, day("2025-07-01"), to)

	grid := Build(nil, from, to)
	assert.Len(t, grid, models.DefaultLookaheadDays+1)
}

func TestAvailableDates(t *testing.T) {
	var bookings []*models.Booking
	for i := 0; i < 3; i++ {
		bookings = append(bookings, confirmed(int64(i+1), "2025-06-01", "10:00", "11:00"))
	}
	bookings = append(bookings, confirmed(10, "2025-06-02", "22:00", "02:00"))

	grid := Build(bookings, day("2025-06-01"), day("2025-06-03"))

	dates := AvailableDates(bookings, grid, 3)
	require.Len(t, dates, 2)
	assert.Equal(t, day("2025-06-02"), dates[0].Date)
	assert.Equal(t, 1, dates[0].ConfirmedBookings)
	assert.Equal(t, hours(0, 21), dates[0].AvailableHours)
	assert.Equal(t, day("2025-06-03"), dates[1].Date)
	assert.Equal(t, 0, dates[1].ConfirmedBookings)
	assert.Equal(t, hours(2, 23), dates[1].AvailableHours)

	all := AvailableDates(bookings, grid, 0)
	assert.Len(t, all, 3)
}
