package models

import "time"

// TriggerKind selects the geofence condition that fires a location reminder.
type TriggerKind string

const (
	TriggerEnter TriggerKind = "enter"
	TriggerExit  TriggerKind = "exit"
	TriggerDwell TriggerKind = "dwell"
)

// GeofenceEventKind is what actually happened to a region. It is a superset
// of TriggerKind because expiry is reported on the same stream.
type GeofenceEventKind string

const (
	EventEnter         GeofenceEventKind = "enter"
	EventExit          GeofenceEventKind = "exit"
	EventDwell         GeofenceEventKind = "dwell"
	EventRegionExpired GeofenceEventKind = "region_expired"
)

// Coordinate is a WGS84 point. Out-of-range values are passed through
// numerically, not rejected.
type Coordinate struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// PositionSample is a single reading from a location source. Consumed once
// by the proximity monitor.
type PositionSample struct {
	Coordinate
	AccuracyMeters float64   `json:"accuracy_meters"`
	Timestamp      time.Time `json:"timestamp"`
}

// Membership groups the mutable containment state of a region. Fired guards
// against duplicate dwell triggering while the device stays inside; it is
// cleared only on the next exit transition.
type Membership struct {
	Inside    bool
	EnteredAt time.Time
	Fired     bool
}

// GeofenceRegion is a circular area watched by the proximity monitor.
// Owned exclusively by the registry between Add and Remove.
type GeofenceRegion struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Center        Coordinate    `json:"center"`
	RadiusMeters  float64       `json:"radius_meters"`
	TriggerKind   TriggerKind   `json:"trigger_kind"`
	DwellDuration time.Duration `json:"dwell_duration,omitempty"`
	// Payload carries the owning reminder id.
	Payload   string     `json:"payload"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Membership Membership `json:"-"`
}

// GeofenceEvent is emitted once per physical transition and consumed exactly
// once by the reminder lifecycle. Region is a snapshot taken at emission time.
type GeofenceEvent struct {
	Kind      GeofenceEventKind `json:"kind"`
	Region    GeofenceRegion    `json:"region"`
	Sample    PositionSample    `json:"sample"`
	Timestamp time.Time         `json:"timestamp"`
}
