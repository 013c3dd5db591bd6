// Package scheduler supplies position samples to the proximity monitor when
// the foreground stream is unavailable and runs the periodic expiry sweeps.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/geo"
	"github.com/remindly/geotrigger/internal/app/domain/reminder"
	"github.com/remindly/geotrigger/internal/app/models"
	"github.com/remindly/geotrigger/internal/app/observability/metrics"
)

// Config carries the background polling knobs.
type Config struct {
	PollInterval time.Duration
	// DistanceFilterMeters drops samples closer than this to the last
	// processed one. An efficiency knob, not a correctness requirement.
	DistanceFilterMeters float64
}

func DefaultConfig() Config {
	return Config{
		PollInterval:         15 * time.Minute,
		DistanceFilterMeters: 100,
	}
}

// SampleSink is the slice of the proximity monitor the scheduler feeds.
type SampleSink interface {
	Submit(ctx context.Context, sample models.PositionSample) error
}

// ReminderSweeper is the slice of the reminder service the scheduler drives.
type ReminderSweeper interface {
	ExpireOldReminders(ctx context.Context, now time.Time) (int, error)
}

// Status is a snapshot of the scheduler's health, surfaced on the status
// endpoint instead of being thrown as errors.
type Status struct {
	LastPollAt       time.Time `json:"last_poll_at"`
	LastSampleAt     time.Time `json:"last_sample_at"`
	PermissionDenied bool      `json:"permission_denied"`
	ServiceDisabled  bool      `json:"service_disabled"`
	LastError        string    `json:"last_error,omitempty"`
}

// BackgroundScheduler polls the position source on a fixed interval and
// forwards samples to the monitor, exactly as a foreground sample would
// arrive. Permission and service errors skip the cycle and set a flag;
// the engine keeps running.
type BackgroundScheduler struct {
	cfg       Config
	source    reminder.PositionSource
	sink      SampleSink
	reminders ReminderSweeper
	logger    *zap.Logger

	mu         sync.Mutex
	status     Status
	lastSample *models.PositionSample
}

func New(cfg Config, source reminder.PositionSource, sink SampleSink, reminders ReminderSweeper, logger *zap.Logger) *BackgroundScheduler {
	return &BackgroundScheduler{
		cfg:       cfg,
		source:    source,
		sink:      sink,
		reminders: reminders,
		logger:    logger,
	}
}

// Run polls until ctx is cancelled. The first cycle runs one interval after
// start, not immediately; a fresh engine start restores regions first and
// the foreground stream usually takes over anyway.
func (s *BackgroundScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info("background scheduler started",
		zap.Duration("poll_interval", s.cfg.PollInterval),
		zap.Float64("distance_filter_meters", s.cfg.DistanceFilterMeters),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("background scheduler stopped")
			return
		case now := <-ticker.C:
			s.Poll(ctx, now)
		}
	}
}

// Poll runs one background cycle: acquire a position, feed it to the
// monitor, then sweep overdue calendar reminders.
func (s *BackgroundScheduler) Poll(ctx context.Context, now time.Time) {
	metrics.Get().BackgroundPollsTotal.Add(ctx, 1)

	s.mu.Lock()
	s.status.LastPollAt = now
	s.mu.Unlock()

	sample, err := s.source.GetCurrentPosition(ctx)
	switch {
	case err == nil:
		s.handleSample(ctx, sample)
	case errors.Is(err, models.ErrPermissionDenied):
		metrics.Get().BackgroundPollSkips.Add(ctx, 1)
		s.setFlags(true, false, err)
		s.logger.Warn("location permission denied, skipping poll cycle")
	case errors.Is(err, models.ErrServiceDisabled):
		metrics.Get().BackgroundPollSkips.Add(ctx, 1)
		s.setFlags(false, true, err)
		s.logger.Warn("location services disabled, skipping poll cycle")
	default:
		metrics.Get().BackgroundPollSkips.Add(ctx, 1)
		s.setFlags(false, false, err)
		s.logger.Warn("position acquisition failed, skipping poll cycle", zap.Error(err))
	}

	if _, err := s.reminders.ExpireOldReminders(ctx, now); err != nil {
		s.logger.Warn("reminder expiry sweep failed", zap.Error(err))
	}
}

func (s *BackgroundScheduler) handleSample(ctx context.Context, sample models.PositionSample) {
	s.mu.Lock()
	last := s.lastSample
	s.mu.Unlock()

	if last != nil && geo.DistanceMeters(sample.Coordinate, last.Coordinate) < s.cfg.DistanceFilterMeters {
		s.logger.Debug("sample within distance filter, dropped",
			zap.Float64("latitude", sample.Latitude),
			zap.Float64("longitude", sample.Longitude),
		)
		return
	}

	if err := s.sink.Submit(ctx, sample); err != nil {
		s.logger.Warn("failed to submit background sample", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastSample = &sample
	s.status.LastSampleAt = sample.Timestamp
	s.status.PermissionDenied = false
	s.status.ServiceDisabled = false
	s.status.LastError = ""
	s.mu.Unlock()
}

func (s *BackgroundScheduler) setFlags(permissionDenied, serviceDisabled bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.PermissionDenied = permissionDenied
	s.status.ServiceDisabled = serviceDisabled
	if err != nil {
		s.status.LastError = err.Error()
	}
}

// Status returns a snapshot of the scheduler state.
func (s *BackgroundScheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
