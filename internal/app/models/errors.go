package models

import "errors"

// Domain specific errors for the reminder and geofence engine.
var (
	ErrNotFound   = errors.New("requested item not found")
	ErrConflict   = errors.New("item already exists or conflict")
	ErrValidation = errors.New("validation failed")
	ErrBadRequest = errors.New("bad request")

	// ErrPermissionDenied and ErrServiceDisabled are recoverable: the
	// monitoring cycle that hit them is skipped and polling continues.
	ErrPermissionDenied = errors.New("location permission denied")
	ErrServiceDisabled  = errors.New("location services disabled")

	// ErrGeocodeFailed aborts location-reminder creation outright.
	ErrGeocodeFailed = errors.New("geocoding failed")

	// ErrSyncFailed marks a best-effort calendar/notification side effect
	// that failed after the local state change already committed.
	ErrSyncFailed = errors.New("external sync failed")

	// ErrStaleTransition is an attempted state change on a terminal or
	// already-triggered reminder. Absorbed, never fatal.
	ErrStaleTransition = errors.New("stale reminder transition")

	ErrRegionExpired = errors.New("geofence region expired")
)
