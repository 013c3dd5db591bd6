package geofence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/geo"
	"github.com/remindly/geotrigger/internal/app/models"
	"github.com/remindly/geotrigger/internal/app/observability/metrics"
)

// MonitorConfig carries the engine knobs for the proximity monitor.
type MonitorConfig struct {
	// DwellCheckInterval is how often occupied dwell regions are scanned.
	DwellCheckInterval time.Duration
	// SampleBuffer and EventBuffer size the producer and consumer channels.
	SampleBuffer int
	EventBuffer  int
	// CommandBuffer sizes the registry mutation queue.
	CommandBuffer int
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		DwellCheckInterval: 10 * time.Second,
		SampleBuffer:       32,
		EventBuffer:        64,
		CommandBuffer:      16,
	}
}

// Monitor is the single owner of the geofence registry. Position samples,
// dwell ticks and registry commands are merged into one loop so the registry
// and membership state are only ever touched from the Run goroutine. That is
// the whole concurrency story: no locks, one owner.
type Monitor struct {
	cfg      MonitorConfig
	registry *Registry
	dwell    *DwellTracker
	logger   *zap.Logger

	samples  chan models.PositionSample
	commands chan func(*Registry)
	events   chan models.GeofenceEvent

	lastSample *models.PositionSample
}

func NewMonitor(cfg MonitorConfig, logger *zap.Logger) *Monitor {
	registry := NewRegistry()
	return &Monitor{
		cfg:      cfg,
		registry: registry,
		dwell:    NewDwellTracker(registry, logger),
		logger:   logger,
		samples:  make(chan models.PositionSample, cfg.SampleBuffer),
		commands: make(chan func(*Registry), cfg.CommandBuffer),
		events:   make(chan models.GeofenceEvent, cfg.EventBuffer),
	}
}

// Events is the stream of enter/exit/dwell/region-expired events. Each event
// is emitted once per physical transition; the consumer applies it to the
// reminder lifecycle.
func (m *Monitor) Events() <-chan models.GeofenceEvent {
	return m.events
}

// Run processes samples, dwell ticks and commands until ctx is cancelled.
// Cancelling ctx is stopMonitoring: the dwell timer stops and queued
// producers are abandoned.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.DwellCheckInterval)
	defer ticker.Stop()
	defer close(m.events)

	m.logger.Info("proximity monitor started",
		zap.Duration("dwell_check_interval", m.cfg.DwellCheckInterval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("proximity monitor stopped")
			return
		case cmd := <-m.commands:
			cmd(m.registry)
			metrics.Get().ActiveRegionsGauge.Record(ctx, int64(m.registry.Len()))
		case sample := <-m.samples:
			m.process(ctx, sample)
		case now := <-ticker.C:
			metrics.Get().DwellChecksTotal.Add(ctx, 1)
			for _, ev := range m.dwell.Check(now, m.lastSample) {
				m.emit(ctx, ev)
			}
		}
	}
}

// Submit feeds one position sample into the monitor. Used by both the
// foreground stream and the background poller; only one of the two is
// active at a time.
func (m *Monitor) Submit(ctx context.Context, sample models.PositionSample) error {
	select {
	case m.samples <- sample:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddRegion registers (or replaces, last write wins) a region. The mutation
// is applied on the monitor goroutine; AddRegion returns once it took effect.
func (m *Monitor) AddRegion(ctx context.Context, region models.GeofenceRegion) error {
	return m.exec(ctx, func(r *Registry) {
		r.Add(region)
		m.logger.Info("geofence region registered",
			zap.String("region_id", region.ID),
			zap.String("trigger_kind", string(region.TriggerKind)),
			zap.Float64("radius_meters", region.RadiusMeters),
		)
	})
}

// RemoveRegion unregisters a region. Unknown ids are a no-op.
func (m *Monitor) RemoveRegion(ctx context.Context, id string) error {
	return m.exec(ctx, func(r *Registry) {
		r.Remove(id)
		m.logger.Info("geofence region removed", zap.String("region_id", id))
	})
}

// RegionCount reports the number of active regions, for status endpoints.
func (m *Monitor) RegionCount(ctx context.Context) (int, error) {
	var n int
	err := m.exec(ctx, func(r *Registry) { n = r.Len() })
	return n, err
}

func (m *Monitor) exec(ctx context.Context, fn func(*Registry)) error {
	done := make(chan struct{})
	cmd := func(r *Registry) {
		fn(r)
		close(done)
	}
	select {
	case m.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// process evaluates one sample: sweep expired regions first, then detect
// enter/exit transitions. Unchanged containment is a no-op; dwell is the
// ticker's business.
func (m *Monitor) process(ctx context.Context, sample models.PositionSample) {
	now := sample.Timestamp
	if now.IsZero() {
		now = time.Now()
		sample.Timestamp = now
	}

	expired := m.registry.RemoveExpired(now)
	for _, region := range expired {
		m.logger.Info("geofence region expired",
			zap.String("region_id", region.ID),
			zap.Timep("expires_at", region.ExpiresAt),
		)
		m.emit(ctx, models.GeofenceEvent{
			Kind:      models.EventRegionExpired,
			Region:    region,
			Sample:    sample,
			Timestamp: now,
		})
	}
	if len(expired) > 0 {
		metrics.Get().ActiveRegionsGauge.Record(ctx, int64(m.registry.Len()))
	}

	for _, region := range m.registry.All() {
		inside := geo.IsWithinRadius(sample.Coordinate, region.Center, region.RadiusMeters)

		switch {
		case inside && !region.Membership.Inside:
			region.Membership = models.Membership{
				Inside:    true,
				EnteredAt: now,
				Fired:     false,
			}
			if region.TriggerKind == models.TriggerEnter {
				m.emit(ctx, models.GeofenceEvent{
					Kind:      models.EventEnter,
					Region:    *region,
					Sample:    sample,
					Timestamp: now,
				})
			}
		case !inside && region.Membership.Inside:
			region.Membership = models.Membership{}
			if region.TriggerKind == models.TriggerExit {
				m.emit(ctx, models.GeofenceEvent{
					Kind:      models.EventExit,
					Region:    *region,
					Sample:    sample,
					Timestamp: now,
				})
			}
		}
	}

	m.lastSample = &sample
}

func (m *Monitor) emit(ctx context.Context, ev models.GeofenceEvent) {
	metrics.Get().GeofenceEventsTotal.Add(ctx, 1)
	select {
	case m.events <- ev:
	case <-ctx.Done():
		m.logger.Warn("dropping geofence event on shutdown",
			zap.String("kind", string(ev.Kind)),
			zap.String("region_id", ev.Region.ID),
		)
	}
}
