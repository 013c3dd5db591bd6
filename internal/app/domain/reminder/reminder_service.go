package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
	"github.com/remindly/geotrigger/internal/app/observability/metrics"
)

var _ Service = (*ServiceImpl)(nil)

// Service owns the reminder state machine and orchestrates calendar sync,
// notification scheduling and geofence registration as side effects of
// lifecycle transitions.
type Service interface {
	CreateCalendarReminder(ctx context.Context, req CreateCalendarReminderRequest) (*models.CreateReminderResult, error)
	CreateLocationReminder(ctx context.Context, req CreateLocationReminderRequest) (*models.CreateReminderResult, error)

	OnGeofenceEvent(ctx context.Context, event models.GeofenceEvent) error

	Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error)
	List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error)

	Complete(ctx context.Context, id uuid.UUID) error
	Dismiss(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteBySummary(ctx context.Context, summaryID uuid.UUID) error

	ExpireOldReminders(ctx context.Context, now time.Time) (int, error)
	RestoreRegions(ctx context.Context) (int, error)
}

// CreateCalendarReminderRequest carries an extracted date entity into a
// calendar reminder.
type CreateCalendarReminderRequest struct {
	UserID         string        `json:"user_id"`
	SummaryID      *uuid.UUID    `json:"summary_id,omitempty"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	Duration       time.Duration `json:"duration"`
	LeadMinutes    int           `json:"lead_minutes"`
	SyncToCalendar bool          `json:"sync_to_calendar"`
}

// CreateLocationReminderRequest carries an extracted location entity into a
// location reminder. Coordinates are optional; missing ones are resolved via
// the geocoder, and resolution failure fails the whole creation.
type CreateLocationReminderRequest struct {
	UserID       string             `json:"user_id"`
	SummaryID    *uuid.UUID         `json:"summary_id,omitempty"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	LocationText string             `json:"location_text"`
	Latitude     *float64           `json:"latitude,omitempty"`
	Longitude    *float64           `json:"longitude,omitempty"`
	RadiusMeters float64            `json:"radius_meters"`
	TriggerKind  models.TriggerKind `json:"trigger_kind"`
	DwellMinutes int                `json:"dwell_minutes,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
}

type ServiceImpl struct {
	logger       *zap.Logger
	repo         Repository
	regions      RegionRegistrar
	calendar     CalendarSync
	notifier     NotificationDispatcher
	geocoder     GeocodingResolver
	geocodeCache *cache.Cache
	syncTimeout  time.Duration
}

func NewServiceImpl(
	repo Repository,
	regions RegionRegistrar,
	calendar CalendarSync,
	notifier NotificationDispatcher,
	geocoder GeocodingResolver,
	logger *zap.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:       logger,
		repo:         repo,
		regions:      regions,
		calendar:     calendar,
		notifier:     notifier,
		geocoder:     geocoder,
		geocodeCache: cache.New(15*time.Minute, 30*time.Minute),
		syncTimeout:  10 * time.Second,
	}
}

// geofenceIDFor derives the region id registered for a reminder. Caller
// generated and unique, so registry upserts never collide by accident.
func geofenceIDFor(id uuid.UUID) string {
	return fmt.Sprintf("reminder_%s", id)
}

// CreateCalendarReminder persists a pending reminder, then runs the calendar
// sync and notification scheduling as best-effort side effects. Whatever they
// do, the reminder exists once this returns without error.
func (s *ServiceImpl) CreateCalendarReminder(ctx context.Context, req CreateCalendarReminderRequest) (*models.CreateReminderResult, error) {
	ctx, span := otel.Tracer("reminder-service").Start(ctx, "CreateCalendarReminder")
	defer span.End()

	if req.Title == "" || req.ScheduledAt.IsZero() {
		return nil, errors.Wrap(models.ErrValidation, "title and scheduled_at are required")
	}

	endAt := req.ScheduledAt
	if req.Duration > 0 {
		endAt = req.ScheduledAt.Add(req.Duration)
	}

	reminder := &models.ReminderModel{
		ID:                      uuid.New(),
		SummaryID:               req.SummaryID,
		UserID:                  req.UserID,
		Kind:                    models.ReminderCalendar,
		Title:                   req.Title,
		Description:             req.Description,
		Status:                  models.StatusPending,
		ScheduledAt:             &req.ScheduledAt,
		EndAt:                   &endAt,
		NotificationLeadMinutes: req.LeadMinutes,
	}

	if err := s.repo.Create(ctx, reminder); err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "persist failed")
		return nil, err
	}
	metrics.Get().RemindersCreatedTotal.Add(ctx, 1)

	result := &models.CreateReminderResult{Reminder: reminder}

	if req.SyncToCalendar {
		if warning := s.syncCalendarEvent(ctx, reminder, endAt); warning != "" {
			result.SyncWarning = warning
		}
	}

	s.scheduleLeadNotification(ctx, reminder, result)

	s.logger.Info("calendar reminder created",
		zap.String("reminder_id", reminder.ID.String()),
		zap.Time("scheduled_at", req.ScheduledAt),
		zap.Bool("synced", reminder.CalendarEventID != nil),
	)
	return result, nil
}

func (s *ServiceImpl) syncCalendarEvent(ctx context.Context, reminder *models.ReminderModel, endAt time.Time) string {
	syncCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	eventID, err := s.calendar.CreateEvent(syncCtx, reminder.Title, *reminder.ScheduledAt, endAt, reminder.Description, reminder.NotificationLeadMinutes)
	if err != nil {
		// The reminder already exists locally; sync failure is a warning.
		s.logger.Warn("calendar sync failed, reminder kept locally",
			zap.String("reminder_id", reminder.ID.String()),
			zap.Error(err),
		)
		return fmt.Sprintf("%s: %s", models.ErrSyncFailed.Error(), err.Error())
	}

	// The reminder may have been deleted while the sync call was in flight.
	if _, lookupErr := s.repo.Get(ctx, reminder.ID); lookupErr != nil {
		s.logger.Warn("reminder gone after calendar sync, discarding event id",
			zap.String("reminder_id", reminder.ID.String()))
		return ""
	}

	if err := s.repo.UpdateCalendarEventID(ctx, reminder.ID, eventID); err != nil {
		s.logger.Warn("failed to record calendar event id",
			zap.String("reminder_id", reminder.ID.String()),
			zap.Error(err),
		)
		return fmt.Sprintf("%s: %s", models.ErrSyncFailed.Error(), err.Error())
	}
	reminder.CalendarEventID = &eventID
	return ""
}

// scheduleLeadNotification schedules the local notification at
// scheduledAt - lead, only when that instant is still in the future.
// Past-due lead times are skipped silently, no backfill.
func (s *ServiceImpl) scheduleLeadNotification(ctx context.Context, reminder *models.ReminderModel, result *models.CreateReminderResult) {
	notifyAt := reminder.ScheduledAt.Add(-time.Duration(reminder.NotificationLeadMinutes) * time.Minute)
	if !notifyAt.After(time.Now()) {
		return
	}

	err := s.notifier.ScheduleAt(ctx, reminder.ID.String(), reminder.Title, reminder.Description, notifyAt,
		map[string]string{"reminder_id": reminder.ID.String()})
	if err != nil {
		s.logger.Warn("failed to schedule lead notification",
			zap.String("reminder_id", reminder.ID.String()),
			zap.Time("notify_at", notifyAt),
			zap.Error(err),
		)
		if result.SyncWarning == "" {
			result.SyncWarning = fmt.Sprintf("%s: %s", models.ErrSyncFailed.Error(), err.Error())
		}
	}
}

// CreateLocationReminder resolves coordinates if missing, registers the
// geofence region, and persists the reminder with its geofence id set. Unlike
// calendar reminders there is no graceful degradation: without coordinates
// nothing is persisted.
func (s *ServiceImpl) CreateLocationReminder(ctx context.Context, req CreateLocationReminderRequest) (*models.CreateReminderResult, error) {
	ctx, span := otel.Tracer("reminder-service").Start(ctx, "CreateLocationReminder")
	defer span.End()

	if req.Title == "" {
		return nil, errors.Wrap(models.ErrValidation, "title is required")
	}
	if req.RadiusMeters <= 0 {
		return nil, errors.Wrap(models.ErrValidation, "radius must be positive")
	}
	switch req.TriggerKind {
	case models.TriggerEnter, models.TriggerExit:
	case models.TriggerDwell:
		if req.DwellMinutes <= 0 {
			return nil, errors.Wrap(models.ErrValidation, "dwell trigger requires dwell_minutes")
		}
	default:
		return nil, errors.Wrap(models.ErrValidation, "unknown trigger kind")
	}

	lat, lon, address, err := s.resolveCoordinates(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "geocode failed")
		return nil, err
	}
	span.SetAttributes(attribute.Float64("latitude", lat), attribute.Float64("longitude", lon))

	id := uuid.New()
	geofenceID := geofenceIDFor(id)

	region := models.GeofenceRegion{
		ID:           geofenceID,
		Name:         req.Title,
		Center:       models.Coordinate{Latitude: lat, Longitude: lon},
		RadiusMeters: req.RadiusMeters,
		TriggerKind:  req.TriggerKind,
		Payload:      id.String(),
		ExpiresAt:    req.ExpiresAt,
	}
	if req.TriggerKind == models.TriggerDwell {
		region.DwellDuration = time.Duration(req.DwellMinutes) * time.Minute
	}

	if err := s.regions.AddRegion(ctx, region); err != nil {
		return nil, errors.Wrap(err, "register geofence region")
	}

	reminder := &models.ReminderModel{
		ID:              id,
		SummaryID:       req.SummaryID,
		UserID:          req.UserID,
		Kind:            models.ReminderLocation,
		Title:           req.Title,
		Description:     req.Description,
		Status:          models.StatusPending,
		TargetLatitude:  &lat,
		TargetLongitude: &lon,
		RadiusMeters:    &req.RadiusMeters,
		TriggerKind:     &req.TriggerKind,
		GeofenceID:      &geofenceID,
		ExpiresAt:       req.ExpiresAt,
	}
	if req.TriggerKind == models.TriggerDwell {
		reminder.DwellMinutes = &req.DwellMinutes
	}
	if address != "" {
		reminder.TargetAddress = &address
	}

	if err := s.repo.Create(ctx, reminder); err != nil {
		// No partial reminder: roll the region registration back.
		if rmErr := s.regions.RemoveRegion(ctx, geofenceID); rmErr != nil {
			s.logger.Error("failed to roll back geofence region",
				zap.String("geofence_id", geofenceID), zap.Error(rmErr))
		}
		span.RecordError(err)
		return nil, err
	}
	metrics.Get().RemindersCreatedTotal.Add(ctx, 1)

	s.logger.Info("location reminder created",
		zap.String("reminder_id", id.String()),
		zap.String("geofence_id", geofenceID),
		zap.String("trigger_kind", string(req.TriggerKind)),
		zap.Float64("radius_meters", req.RadiusMeters),
	)
	return &models.CreateReminderResult{Reminder: reminder}, nil
}

func (s *ServiceImpl) resolveCoordinates(ctx context.Context, req CreateLocationReminderRequest) (float64, float64, string, error) {
	if req.Latitude != nil && req.Longitude != nil {
		return *req.Latitude, *req.Longitude, "", nil
	}
	if req.LocationText == "" {
		return 0, 0, "", errors.Wrap(models.ErrValidation, "coordinates or location text required")
	}

	if cached, found := s.geocodeCache.Get(req.LocationText); found {
		result := cached.(*GeocodeResult)
		return result.Latitude, result.Longitude, result.FormattedAddress, nil
	}

	geoCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	result, err := s.geocoder.Resolve(geoCtx, req.LocationText)
	if err != nil {
		return 0, 0, "", errors.Wrapf(models.ErrGeocodeFailed, "resolve %q: %v", req.LocationText, err)
	}
	s.geocodeCache.Set(req.LocationText, result, cache.DefaultExpiration)

	return result.Latitude, result.Longitude, result.FormattedAddress, nil
}

// OnGeofenceEvent applies one geofence event to the owning reminder. The
// status check is the idempotency guard: the region stays registered after
// triggering, so repeated matches while the user hasn't acted are absorbed
// here, not by removing the region.
func (s *ServiceImpl) OnGeofenceEvent(ctx context.Context, event models.GeofenceEvent) error {
	reminderID, err := uuid.Parse(event.Region.Payload)
	if err != nil {
		return errors.Wrapf(models.ErrBadRequest, "region %s has bad payload %q", event.Region.ID, event.Region.Payload)
	}

	reminder, err := s.repo.Get(ctx, reminderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Reminder deleted while the event was in flight; drop it.
			s.logger.Debug("geofence event for missing reminder",
				zap.String("reminder_id", reminderID.String()))
			return nil
		}
		return err
	}

	if event.Kind == models.EventRegionExpired {
		return s.expireReminder(ctx, reminder)
	}

	if reminder.Status != models.StatusPending {
		s.logger.Debug("stale geofence event ignored",
			zap.String("reminder_id", reminderID.String()),
			zap.String("status", string(reminder.Status)),
			zap.String("kind", string(event.Kind)),
		)
		return nil
	}

	triggeredAt := event.Timestamp
	if err := s.repo.UpdateStatus(ctx, reminder.ID, models.StatusTriggered, &triggeredAt); err != nil {
		return err
	}
	metrics.Get().ReminderTransitionsTotal.Add(ctx, 1)

	if err := s.notifier.Show(ctx, reminder.ID.String(), reminder.Title, reminder.Description,
		map[string]string{"reminder_id": reminder.ID.String(), "event": string(event.Kind)}); err != nil {
		// The trigger already committed; notification failure is best-effort.
		s.logger.Warn("notification dispatch failed after trigger",
			zap.String("reminder_id", reminder.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("reminder triggered",
		zap.String("reminder_id", reminder.ID.String()),
		zap.String("event_kind", string(event.Kind)),
		zap.Float64("latitude", event.Sample.Latitude),
		zap.Float64("longitude", event.Sample.Longitude),
	)
	return nil
}

func (s *ServiceImpl) expireReminder(ctx context.Context, reminder *models.ReminderModel) error {
	// A triggered reminder stays triggered until the user resolves it; only
	// pending reminders expire with their region.
	if !models.CanTransition(reminder.Status, models.StatusExpired) {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, reminder.ID, models.StatusExpired, nil); err != nil {
		return err
	}
	metrics.Get().ReminderTransitionsTotal.Add(ctx, 1)

	if err := s.notifier.Cancel(ctx, reminder.ID.String()); err != nil {
		s.logger.Warn("failed to cancel notification for expired reminder",
			zap.String("reminder_id", reminder.ID.String()), zap.Error(err))
	}
	s.logger.Info("reminder expired with its region",
		zap.String("reminder_id", reminder.ID.String()))
	return nil
}

func (s *ServiceImpl) Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error) {
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error) {
	return s.repo.List(ctx, filter)
}

func (s *ServiceImpl) Complete(ctx context.Context, id uuid.UUID) error {
	return s.terminalize(ctx, id, models.StatusCompleted)
}

func (s *ServiceImpl) Dismiss(ctx context.Context, id uuid.UUID) error {
	return s.terminalize(ctx, id, models.StatusDismissed)
}

func (s *ServiceImpl) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.terminalize(ctx, id, models.StatusCancelled)
}

// terminalize moves a reminder to a terminal state and tears down its side
// effects: the geofence region, any pending notification, and a synced
// calendar event (best-effort, after the local commit).
func (s *ServiceImpl) terminalize(ctx context.Context, id uuid.UUID, target models.ReminderStatus) error {
	reminder, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if !models.CanTransition(reminder.Status, target) {
		// Terminal and mismatched states absorb the attempt.
		s.logger.Debug("stale transition absorbed",
			zap.String("reminder_id", id.String()),
			zap.String("from", string(reminder.Status)),
			zap.String("to", string(target)),
		)
		return errors.Wrapf(models.ErrStaleTransition, "%s -> %s", reminder.Status, target)
	}

	if err := s.repo.UpdateStatus(ctx, id, target, nil); err != nil {
		return err
	}
	metrics.Get().ReminderTransitionsTotal.Add(ctx, 1)

	s.teardownSideEffects(ctx, reminder)

	s.logger.Info("reminder terminalized",
		zap.String("reminder_id", id.String()),
		zap.String("status", string(target)),
	)
	return nil
}

func (s *ServiceImpl) teardownSideEffects(ctx context.Context, reminder *models.ReminderModel) {
	if reminder.Kind == models.ReminderLocation && reminder.GeofenceID != nil {
		if err := s.regions.RemoveRegion(ctx, *reminder.GeofenceID); err != nil {
			s.logger.Warn("failed to remove geofence region",
				zap.String("geofence_id", *reminder.GeofenceID), zap.Error(err))
		}
	}

	if err := s.notifier.Cancel(ctx, reminder.ID.String()); err != nil {
		s.logger.Warn("failed to cancel pending notification",
			zap.String("reminder_id", reminder.ID.String()), zap.Error(err))
	}

	if reminder.Kind == models.ReminderCalendar && reminder.CalendarEventID != nil {
		syncCtx, cancel := context.WithTimeout(ctx, s.syncTimeout)
		defer cancel()
		if err := s.calendar.DeleteEvent(syncCtx, *reminder.CalendarEventID); err != nil {
			// Local state already committed; log and move on.
			s.logger.Warn("failed to delete synced calendar event",
				zap.String("event_id", *reminder.CalendarEventID), zap.Error(err))
		}
	}
}

// Delete removes the reminder row and tears down its side effects.
func (s *ServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	reminder, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.teardownSideEffects(ctx, reminder)
	s.logger.Info("reminder deleted", zap.String("reminder_id", id.String()))
	return nil
}

// DeleteBySummary cascades a summary deletion onto its reminders.
func (s *ServiceImpl) DeleteBySummary(ctx context.Context, summaryID uuid.UUID) error {
	removed, err := s.repo.DeleteBySummary(ctx, summaryID)
	if err != nil {
		return err
	}
	for i := range removed {
		s.teardownSideEffects(ctx, &removed[i])
	}
	if len(removed) > 0 {
		s.logger.Info("reminders deleted with summary",
			zap.String("summary_id", summaryID.String()),
			zap.Int("count", len(removed)),
		)
	}
	return nil
}

// ExpireOldReminders terminal-izes pending calendar reminders whose scheduled
// time has passed. Location reminders are untouched; they only expire through
// region expiry.
func (s *ServiceImpl) ExpireOldReminders(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListPendingCalendarDueBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		if err := s.expireReminder(ctx, &due[i]); err != nil {
			s.logger.Warn("failed to expire reminder",
				zap.String("reminder_id", due[i].ID.String()), zap.Error(err))
			continue
		}
		expired++
	}
	if expired > 0 {
		s.logger.Info("expired overdue calendar reminders", zap.Int("count", expired))
	}
	return expired, nil
}

// RestoreRegions re-registers geofence regions for active location reminders,
// rebuilding the in-memory registry after a restart.
func (s *ServiceImpl) RestoreRegions(ctx context.Context) (int, error) {
	active, err := s.repo.ListActiveLocation(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, reminder := range active {
		if reminder.TargetLatitude == nil || reminder.TargetLongitude == nil || reminder.TriggerKind == nil || reminder.RadiusMeters == nil {
			s.logger.Warn("skipping malformed location reminder during restore",
				zap.String("reminder_id", reminder.ID.String()))
			continue
		}

		geofenceID := geofenceIDFor(reminder.ID)
		region := models.GeofenceRegion{
			ID:           geofenceID,
			Name:         reminder.Title,
			Center:       models.Coordinate{Latitude: *reminder.TargetLatitude, Longitude: *reminder.TargetLongitude},
			RadiusMeters: *reminder.RadiusMeters,
			TriggerKind:  *reminder.TriggerKind,
			Payload:      reminder.ID.String(),
			ExpiresAt:    reminder.ExpiresAt,
		}
		if *reminder.TriggerKind == models.TriggerDwell && reminder.DwellMinutes != nil {
			region.DwellDuration = time.Duration(*reminder.DwellMinutes) * time.Minute
		}
		if err := s.regions.AddRegion(ctx, region); err != nil {
			return restored, errors.Wrap(err, "restore geofence region")
		}

		if reminder.GeofenceID == nil || *reminder.GeofenceID != geofenceID {
			if err := s.repo.UpdateGeofenceID(ctx, reminder.ID, &geofenceID); err != nil {
				s.logger.Warn("failed to record restored geofence id",
					zap.String("reminder_id", reminder.ID.String()), zap.Error(err))
			}
		}
		restored++
	}

	if restored > 0 {
		s.logger.Info("restored geofence regions", zap.Int("count", restored))
	}
	return restored, nil
}
