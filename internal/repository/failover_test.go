package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSequencer struct {
	mock.Mock
}

func (m *mockSequencer) Next(ctx context.Context, dayPrefix string, floor int64) (int64, error) {
	args := m.Called(ctx, dayPrefix, floor)
	return args.Get(0).(int64), args.Error(1)
}

func TestFailoverSequencer(t *testing.T) {
	primary := new(mockSequencer)
	fallback := new(mockSequencer)
	logger := zerolog.New(io.Discard)
	seq := NewFailoverSequencer(primary, fallback, &logger)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seq.now = func() time.Time { return now }

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Next", ctx, "VT-20250601-", int64(0)).Return(int64(1), nil).Once()

		got, err := seq.Next(ctx, "VT-20250601-", 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
		assert.False(t, seq.Degraded())
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailure", func(t *testing.T) {
		primary.On("Next", ctx, "VT-20250601-", int64(1)).Return(int64(0), errors.New("redis down")).Once()
		fallback.On("Next", ctx, "VT-20250601-", int64(1)).Return(int64(2), nil).Once()

		got, err := seq.Next(ctx, "VT-20250601-", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got)
		assert.True(t, seq.Degraded())
	})

	t.Run("StaysOnFallback", func(t *testing.T) {
		fallback.On("Next", ctx, "VT-20250601-", int64(2)).Return(int64(3), nil).Once()

		got, err := seq.Next(ctx, "VT-20250601-", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got)
		primary.AssertNumberOfCalls(t, "Next", 2)
	})

	t.Run("Recovery", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		primary.On("Next", ctx, "VT-20250601-", int64(3)).Return(int64(4), nil).Once()

		got, err := seq.Next(ctx, "VT-20250601-", 3)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got)
		assert.False(t, seq.Degraded())
		fallback.AssertExpectations(t)
	})
}
