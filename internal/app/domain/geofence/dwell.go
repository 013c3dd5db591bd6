package geofence

import (
	"time"

	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

// DwellTracker scans the registry on a fixed interval and fires dwell events
// for regions that have been continuously occupied long enough. It runs on
// the monitor goroutine; the scan interval means a dwell can fire up to one
// tick after the configured duration actually elapsed, which is accepted.
type DwellTracker struct {
	registry *Registry
	logger   *zap.Logger
}

func NewDwellTracker(registry *Registry, logger *zap.Logger) *DwellTracker {
	return &DwellTracker{registry: registry, logger: logger}
}

// Check emits at most one dwell event per occupied region. A region that
// fired stays silent until the device leaves and re-enters, which resets
// the Fired flag on the exit transition. lastSample is the most recent
// position the monitor processed; it is attached to the emitted events.
func (d *DwellTracker) Check(now time.Time, lastSample *models.PositionSample) []models.GeofenceEvent {
	var events []models.GeofenceEvent
	for _, region := range d.registry.All() {
		if region.TriggerKind != models.TriggerDwell {
			continue
		}
		if !region.Membership.Inside || region.Membership.Fired {
			continue
		}
		if now.Sub(region.Membership.EnteredAt) < region.DwellDuration {
			continue
		}

		region.Membership.Fired = true
		d.logger.Debug("dwell threshold reached",
			zap.String("region_id", region.ID),
			zap.Duration("dwell_duration", region.DwellDuration),
			zap.Time("entered_at", region.Membership.EnteredAt),
		)

		sample := models.PositionSample{Coordinate: region.Center, Timestamp: now}
		if lastSample != nil {
			sample = *lastSample
		}
		events = append(events, models.GeofenceEvent{
			Kind:      models.EventDwell,
			Region:    *region,
			Sample:    sample,
			Timestamp: now,
		})
	}
	return events
}
