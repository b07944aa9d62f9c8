package numbering

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFloor struct {
	max int64
	err error
}

func (f fakeFloor) MaxBookingSequence(_ context.Context, _ string) (int64, error) {
	return f.max, f.err
}

type fakeSeq struct {
	values map[string]int64
	forced int64
}

func (s *fakeSeq) Next(_ context.Context, dayPrefix string, floor int64) (int64, error) {
	if s.forced != 0 {
		return s.forced, nil
	}
	if s.values == nil {
		s.values = map[string]int64{}
	}
	if s.values[dayPrefix] < floor {
		s.values[dayPrefix] = floor
	}
	s.values[dayPrefix]++
	return s.values[dayPrefix], nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDayPrefixAndFormat(t *testing.T) {
	g := NewGenerator("")
	prefix := g.DayPrefix(time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, "VT-20250601-", prefix)
	assert.Equal(t, "VT-20250601-00001", Format(prefix, 1))
	assert.Equal(t, "VT-20250601-00123", Format(prefix, 123))
	assert.Equal(t, "VT-20250601-123456", Format(prefix, 123456))
}

func TestNextUsesCreationDay(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator("VT").WithClock(fixedClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))
	seq := &fakeSeq{}

	first, err := g.Next(ctx, fakeFloor{}, seq)
	require.NoError(t, err)
	second, err := g.Next(ctx, fakeFloor{}, seq)
	require.NoError(t, err)

	assert.Equal(t, "VT-20250601-00001", first)
	assert.Equal(t, "VT-20250601-00002", second)

	g.WithClock(fixedClock(time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC)))
	next, err := g.Next(ctx, fakeFloor{}, seq)
	require.NoError(t, err)
	assert.Equal(t, "VT-20250602-00001", next)
}

func TestNextRespectsFloor(t *testing.T) {
	ctx := context.Background()
	g := NewGenerator("VT").WithClock(fixedClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))

	number, err := g.Next(ctx, fakeFloor{max: 41}, &fakeSeq{})
	require.NoError(t, err)
	assert.Equal(t, "VT-20250601-00042", number)

	_, err = g.Next(ctx, fakeFloor{max: 41}, &fakeSeq{forced: 41})
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = g.Next(ctx, fakeFloor{err: boom}, &fakeSeq{})
	assert.ErrorIs(t, err, boom)
}

func TestSequence(t *testing.T) {
	n, ok := Sequence("VT-20250601-00042", "VT-20250601-")
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = Sequence("VT-20250602-00042", "VT-20250601-")
	assert.False(t, ok)
	_, ok = Sequence("VT-20250601-", "VT-20250601-")
	assert.False(t, ok)
	_, ok = Sequence("VT-20250601-abc", "VT-20250601-")
	assert.False(t, ok)
}
