// Package geofence implements the in-memory region registry, dwell tracking
// and the proximity monitor that turns position samples into trigger events.
package geofence

import (
	"time"

	"github.com/remindly/geotrigger/internal/app/domain/geo"
	"github.com/remindly/geotrigger/internal/app/models"
)

// Registry is the authoritative set of active geofence regions, keyed by id.
// It is not safe for concurrent use: all access goes through the single
// monitor goroutine, which is why no lock is needed here.
type Registry struct {
	regions map[string]*models.GeofenceRegion
}

func NewRegistry() *Registry {
	return &Registry{regions: make(map[string]*models.GeofenceRegion)}
}

// Add upserts a region by id. A region with the same id is replaced and its
// membership state discarded: last write wins. Callers generate unique ids
// (reminder_<uuid>), so collisions only happen on deliberate re-registration.
func (r *Registry) Add(region models.GeofenceRegion) {
	region.Membership = models.Membership{}
	r.regions[region.ID] = &region
}

// Remove deletes a region. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	delete(r.regions, id)
}

// Get returns the live region record, or nil if not registered.
func (r *Registry) Get(id string) *models.GeofenceRegion {
	return r.regions[id]
}

// All returns the live region records. Callers must not retain them across
// registry mutations.
func (r *Registry) All() []*models.GeofenceRegion {
	out := make([]*models.GeofenceRegion, 0, len(r.regions))
	for _, region := range r.regions {
		out = append(out, region)
	}
	return out
}

// RemoveExpired deletes every region whose expiresAt has passed and returns
// the removed regions so the caller can expire their owning reminders.
// Regions without expiresAt are never removed here.
func (r *Registry) RemoveExpired(now time.Time) []models.GeofenceRegion {
	var removed []models.GeofenceRegion
	for id, region := range r.regions {
		if region.ExpiresAt != nil && !region.ExpiresAt.After(now) {
			removed = append(removed, *region)
			delete(r.regions, id)
		}
	}
	return removed
}

// RegionsContaining returns the regions whose circle contains the point,
// boundary inclusive.
func (r *Registry) RegionsContaining(point models.Coordinate) []*models.GeofenceRegion {
	var out []*models.GeofenceRegion
	for _, region := range r.regions {
		if geo.IsWithinRadius(point, region.Center, region.RadiusMeters) {
			out = append(out, region)
		}
	}
	return out
}

// Len reports the number of registered regions.
func (r *Registry) Len() int {
	return len(r.regions)
}
