package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/remindly/geotrigger/internal/app/models"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, reminder *models.ReminderModel) error {
	args := m.Called(ctx, reminder)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReminderModel), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) DeleteBySummary(ctx context.Context, summaryID uuid.UUID) ([]models.ReminderModel, error) {
	args := m.Called(ctx, summaryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReminderModel), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReminderStatus, triggeredAt *time.Time) error {
	args := m.Called(ctx, id, status, triggeredAt)
	return args.Error(0)
}

func (m *MockRepository) UpdateCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	args := m.Called(ctx, id, eventID)
	return args.Error(0)
}

func (m *MockRepository) UpdateGeofenceID(ctx context.Context, id uuid.UUID, geofenceID *string) error {
	args := m.Called(ctx, id, geofenceID)
	return args.Error(0)
}

func (m *MockRepository) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReminderModel), args.Error(1)
}

func (m *MockRepository) ListActiveLocation(ctx context.Context) ([]models.ReminderModel, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReminderModel), args.Error(1)
}

func (m *MockRepository) ListPendingCalendarDueBefore(ctx context.Context, cutoff time.Time) ([]models.ReminderModel, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReminderModel), args.Error(1)
}

// MockRegionRegistrar is a mock implementation of RegionRegistrar.
type MockRegionRegistrar struct {
	mock.Mock
}

func (m *MockRegionRegistrar) AddRegion(ctx context.Context, region models.GeofenceRegion) error {
	args := m.Called(ctx, region)
	return args.Error(0)
}

func (m *MockRegionRegistrar) RemoveRegion(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCalendarSync is a mock implementation of CalendarSync.
type MockCalendarSync struct {
	mock.Mock
}

func (m *MockCalendarSync) CreateEvent(ctx context.Context, title string, start, end time.Time, description string, leadMinutes int) (string, error) {
	args := m.Called(ctx, title, start, end, description, leadMinutes)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarSync) DeleteEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// MockNotificationDispatcher is a mock implementation of NotificationDispatcher.
type MockNotificationDispatcher struct {
	mock.Mock
}

func (m *MockNotificationDispatcher) Show(ctx context.Context, id, title, body string, payload map[string]string) error {
	args := m.Called(ctx, id, title, body, payload)
	return args.Error(0)
}

func (m *MockNotificationDispatcher) ScheduleAt(ctx context.Context, id, title, body string, at time.Time, payload map[string]string) error {
	args := m.Called(ctx, id, title, body, at, payload)
	return args.Error(0)
}

func (m *MockNotificationDispatcher) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGeocodingResolver is a mock implementation of GeocodingResolver.
type MockGeocodingResolver struct {
	mock.Mock
}

func (m *MockGeocodingResolver) Resolve(ctx context.Context, text string) (*GeocodeResult, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GeocodeResult), args.Error(1)
}

// MockPositionSource is a mock implementation of PositionSource.
type MockPositionSource struct {
	mock.Mock
}

func (m *MockPositionSource) GetCurrentPosition(ctx context.Context) (models.PositionSample, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.PositionSample), args.Error(1)
}

func (m *MockPositionSource) Stream(ctx context.Context) (<-chan models.PositionSample, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan models.PositionSample), args.Error(1)
}
