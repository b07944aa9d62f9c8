package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vitrina/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSequencer prefers the primary counter and switches to the fallback
// after an error. The primary is retried once per recoveryInterval.
type FailoverSequencer struct {
	primary  domain.Sequencer
	fallback domain.Sequencer
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverSequencer(primary, fallback domain.Sequencer, logger *zerolog.Logger) *FailoverSequencer {
	return &FailoverSequencer{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *FailoverSequencer) Next(ctx context.Context, dayPrefix string, floor int64) (int64, error) {
	if !s.isDown.Load() || s.recoveryDue() {
		value, err := s.primary.Next(ctx, dayPrefix, floor)
		if err == nil {
			if s.isDown.Swap(false) {
				s.logger.Info().Msg("Primary booking sequencer recovered")
			}
			return value, nil
		}
		if !s.isDown.Swap(true) {
			s.logger.Error().Err(err).Msg("Primary booking sequencer failed, falling back")
		}
		s.markChecked()
	}

	return s.fallback.Next(ctx, dayPrefix, floor)
}

// Degraded reports whether calls currently go to the fallback.
func (s *FailoverSequencer) Degraded() bool {
	return s.isDown.Load()
}

func (s *FailoverSequencer) recoveryDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastCheck) > recoveryInterval
}

func (s *FailoverSequencer) markChecked() {
	s.mu.Lock()
	s.lastCheck = s.now()
	s.mu.Unlock()
}
