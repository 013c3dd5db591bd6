// Package positions ingests device position samples over HTTP and websocket
// and keeps the most recent fix available to the background scheduler.
package positions

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

// DefaultMaxSampleAge bounds how old a stored fix may be before
// GetCurrentPosition refuses to serve it.
const DefaultMaxSampleAge = 5 * time.Minute

// Store retains the last ingested sample and fans updates out to stream
// subscribers. It satisfies the position source the scheduler polls, backed
// by whatever the clients last reported rather than platform location APIs.
type Store struct {
	logger       *zap.Logger
	maxSampleAge time.Duration

	mu          sync.RWMutex
	last        *models.PositionSample
	subscribers map[chan models.PositionSample]struct{}
}

func NewStore(maxSampleAge time.Duration, logger *zap.Logger) *Store {
	if maxSampleAge <= 0 {
		maxSampleAge = DefaultMaxSampleAge
	}
	return &Store{
		logger:       logger,
		maxSampleAge: maxSampleAge,
		subscribers:  make(map[chan models.PositionSample]struct{}),
	}
}

// Record stores the sample and notifies subscribers. Slow subscribers miss
// updates rather than blocking ingestion.
func (s *Store) Record(sample models.PositionSample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	s.mu.Lock()
	s.last = &sample
	for ch := range s.subscribers {
		select {
		case ch <- sample:
		default:
		}
	}
	subscribers := len(s.subscribers)
	s.mu.Unlock()

	s.logger.Debug("position recorded",
		zap.Float64("latitude", sample.Latitude),
		zap.Float64("longitude", sample.Longitude),
		zap.Int("subscribers", subscribers),
	)
}

// GetCurrentPosition returns the last recorded fix. A missing or stale fix
// reports models.ErrServiceDisabled so the scheduler skips the cycle.
func (s *Store) GetCurrentPosition(ctx context.Context) (models.PositionSample, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		return models.PositionSample{}, errors.Wrap(models.ErrServiceDisabled, "no position reported yet")
	}
	if age := time.Since(last.Timestamp); age > s.maxSampleAge {
		return models.PositionSample{}, errors.Wrapf(models.ErrServiceDisabled, "last position is %s old", age.Round(time.Second))
	}
	return *last, nil
}

// Stream returns a channel of future samples. The channel closes when ctx
// is cancelled.
func (s *Store) Stream(ctx context.Context) (<-chan models.PositionSample, error) {
	ch := make(chan models.PositionSample, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subscribers, ch)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Last returns the most recent sample without staleness checks, for the
// status endpoint.
func (s *Store) Last() *models.PositionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}
