package database

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"vitrina/internal/domain"
	"vitrina/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentNumbering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPerformer(t, db)

	const numGoroutines = 20
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			errs <- db.WithinTx(ctx, func(ctx context.Context, store domain.BookingStore) error {
				floor, err := store.MaxBookingSequence(ctx, "VT-20250601-")
				if err != nil {
					return err
				}
				n, err := store.Next(ctx, "VT-20250601-", floor)
				if err != nil {
					return err
				}
				return store.InsertBooking(ctx, newBooking(p.ID, fmt.Sprintf("VT-20250601-%05d", n)))
			})
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	bookings, err := db.ListPerformerBookings(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, bookings, numGoroutines)

	seen := make(map[string]bool)
	for _, b := range bookings {
		assert.False(t, seen[b.BookingNumber], "duplicate %s", b.BookingNumber)
		seen[b.BookingNumber] = true
	}
	assert.True(t, seen[fmt.Sprintf("VT-20250601-%05d", numGoroutines)])
}

func TestConcurrentStatusUpdate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p := seedPerformer(t, db)

	b := newBooking(p.ID, "VT-20250601-00001")
	require.NoError(t, db.InsertBooking(ctx, b))

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			update := *b
			update.Status = models.StatusConfirmed
			if i%2 == 0 {
				update.Status = models.StatusRejected
			}
			results <- db.UpdateBookingWithVersion(ctx, &update, 1)
		}(i)
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		if err == nil {
			success++
			continue
		}
		assert.ErrorIs(t, err, ErrConcurrentModification)
	}
	assert.Equal(t, 1, success, "only one writer may win the version")

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}
