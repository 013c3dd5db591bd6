package reminder

import (
	"context"
	"time"

	"github.com/remindly/geotrigger/internal/app/models"
)

// The engine consumes these collaborators at their interface boundary;
// implementations live with the composing application.

// PositionSource supplies device positions. GetCurrentPosition fails with
// models.ErrPermissionDenied or models.ErrServiceDisabled when the platform
// cannot provide a fix; Stream is only available in the foreground.
type PositionSource interface {
	GetCurrentPosition(ctx context.Context) (models.PositionSample, error)
	Stream(ctx context.Context) (<-chan models.PositionSample, error)
}

// CalendarSync mirrors reminders into an external calendar. Failures are
// best-effort: they never roll back a committed reminder.
type CalendarSync interface {
	CreateEvent(ctx context.Context, title string, start, end time.Time, description string, leadMinutes int) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// NotificationDispatcher shows or schedules local notifications keyed by
// reminder id.
type NotificationDispatcher interface {
	Show(ctx context.Context, id, title, body string, payload map[string]string) error
	ScheduleAt(ctx context.Context, id, title, body string, at time.Time, payload map[string]string) error
	Cancel(ctx context.Context, id string) error
}

// GeocodingResolver turns free-text location descriptions into coordinates.
type GeocodingResolver interface {
	Resolve(ctx context.Context, text string) (*GeocodeResult, error)
}

// GeocodeResult is a resolved address.
type GeocodeResult struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
}

// RegionRegistrar is the slice of the proximity monitor the lifecycle
// manager needs: registering and removing geofence regions.
type RegionRegistrar interface {
	AddRegion(ctx context.Context, region models.GeofenceRegion) error
	RemoveRegion(ctx context.Context, id string) error
}
