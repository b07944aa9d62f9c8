// Package numbering assigns human-readable booking numbers of the form
// VT-YYYYMMDD-00001. The date part is the creation day, not the booked day.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vitrina/internal/domain"
	"vitrina/internal/models"
)

const dayLayout = "20060102"

// Floor reports the largest sequence already persisted under a day prefix.
type Floor interface {
	MaxBookingSequence(ctx context.Context, dayPrefix string) (int64, error)
}

type Generator struct {
	prefix string
	now    func() time.Time
}

func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = models.DefaultBookingNumberPrefix
	}
	return &Generator{prefix: prefix, now: time.Now}
}

// WithClock replaces the time source, used by tests and the simulator.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// DayPrefix returns "VT-20250601-" for the given instant.
func (g *Generator) DayPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%s-", g.prefix, t.Format(dayLayout))
}

// Next reserves the following number for today. floor and seq usually share a
// transaction so a crashed counter can never hand out a number already in use.
func (g *Generator) Next(ctx context.Context, floor Floor, seq domain.Sequencer) (string, error) {
	dayPrefix := g.DayPrefix(g.now())

	maxSeq, err := floor.MaxBookingSequence(ctx, dayPrefix)
	if err != nil {
		return "", fmt.Errorf("read max booking sequence: %w", err)
	}
	n, err := seq.Next(ctx, dayPrefix, maxSeq)
	if err != nil {
		return "", fmt.Errorf("next booking sequence: %w", err)
	}
	if n <= maxSeq {
		return "", fmt.Errorf("sequencer returned %d, expected above %d", n, maxSeq)
	}
	return Format(dayPrefix, n), nil
}

func Format(dayPrefix string, n int64) string {
	return fmt.Sprintf("%s%05d", dayPrefix, n)
}

// Sequence extracts the counter part of number when it carries dayPrefix.
func Sequence(number, dayPrefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(number, dayPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
