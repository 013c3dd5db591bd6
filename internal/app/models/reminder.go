package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderKind distinguishes time-driven from location-driven reminders.
type ReminderKind string

const (
	ReminderCalendar ReminderKind = "calendar"
	ReminderLocation ReminderKind = "location"
)

// ReminderStatus is the lifecycle state of a reminder.
type ReminderStatus string

const (
	StatusPending   ReminderStatus = "pending"
	StatusTriggered ReminderStatus = "triggered"
	StatusCompleted ReminderStatus = "completed"
	StatusDismissed ReminderStatus = "dismissed"
	StatusCancelled ReminderStatus = "cancelled"
	StatusExpired   ReminderStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s ReminderStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusDismissed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CanTransition reports whether the lifecycle state machine allows from -> to.
// pending -> {triggered, expired, cancelled}; triggered -> {completed, dismissed}.
func CanTransition(from, to ReminderStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusTriggered || to == StatusExpired || to == StatusCancelled
	case StatusTriggered:
		return to == StatusCompleted || to == StatusDismissed
	}
	return false
}

// ReminderModel is the persisted reminder record. Kind-specific fields are
// nullable; exactly one group is populated depending on Kind.
type ReminderModel struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	SummaryID   *uuid.UUID     `json:"summary_id,omitempty" db:"summary_id"`
	UserID      string         `json:"user_id" db:"user_id"`
	Kind        ReminderKind   `json:"kind" db:"kind"`
	Title       string         `json:"title" db:"title"`
	Description string         `json:"description" db:"description"`
	Status      ReminderStatus `json:"status" db:"status"`

	// Calendar reminders.
	ScheduledAt             *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	EndAt                   *time.Time `json:"end_at,omitempty" db:"end_at"`
	CalendarEventID         *string    `json:"calendar_event_id,omitempty" db:"calendar_event_id"`
	NotificationLeadMinutes int        `json:"notification_lead_minutes,omitempty" db:"notification_lead_minutes"`

	// Location reminders. GeofenceID is set iff a region with that id is
	// currently registered for an active reminder.
	TargetLatitude  *float64     `json:"target_latitude,omitempty" db:"target_latitude"`
	TargetLongitude *float64     `json:"target_longitude,omitempty" db:"target_longitude"`
	TargetAddress   *string      `json:"target_address,omitempty" db:"target_address"`
	RadiusMeters    *float64     `json:"radius_meters,omitempty" db:"radius_meters"`
	TriggerKind     *TriggerKind `json:"trigger_kind,omitempty" db:"trigger_kind"`
	DwellMinutes    *int         `json:"dwell_minutes,omitempty" db:"dwell_minutes"`
	GeofenceID      *string      `json:"geofence_id,omitempty" db:"geofence_id"`
	ExpiresAt       *time.Time   `json:"expires_at,omitempty" db:"expires_at"`

	TriggeredAt *time.Time `json:"triggered_at,omitempty" db:"triggered_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateReminderResult is returned by the creation APIs. SyncWarning carries a
// non-fatal calendar/notification failure; the reminder itself is committed.
type CreateReminderResult struct {
	Reminder    *ReminderModel `json:"reminder"`
	SyncWarning string         `json:"sync_warning,omitempty"`
}

// ReminderFilter narrows List queries.
type ReminderFilter struct {
	UserID    string
	SummaryID *uuid.UUID
	Status    *ReminderStatus
	Kind      *ReminderKind
	DueBefore *time.Time
	Limit     int
	Offset    int
}
