package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/reminder"
	"github.com/remindly/geotrigger/internal/app/models"
	"github.com/remindly/geotrigger/internal/app/services"
	"github.com/remindly/geotrigger/internal/pkg/config"
)

// emptyRepository backs the engine with no persisted reminders.
type emptyRepository struct{}

func (emptyRepository) Create(ctx context.Context, r *models.ReminderModel) error { return nil }
func (emptyRepository) Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error) {
	return nil, models.ErrNotFound
}
func (emptyRepository) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (emptyRepository) DeleteBySummary(ctx context.Context, summaryID uuid.UUID) ([]models.ReminderModel, error) {
	return nil, nil
}
func (emptyRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReminderStatus, triggeredAt *time.Time) error {
	return nil
}
func (emptyRepository) UpdateCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	return nil
}
func (emptyRepository) UpdateGeofenceID(ctx context.Context, id uuid.UUID, geofenceID *string) error {
	return nil
}
func (emptyRepository) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error) {
	return nil, nil
}
func (emptyRepository) ListActiveLocation(ctx context.Context) ([]models.ReminderModel, error) {
	return nil, nil
}
func (emptyRepository) ListPendingCalendarDueBefore(ctx context.Context, cutoff time.Time) ([]models.ReminderModel, error) {
	return nil, nil
}

var _ reminder.Repository = emptyRepository{}

func newTestEngine() *Engine {
	logger := zap.NewNop()
	cfg := config.EngineConfig{
		DwellCheckInterval:     50 * time.Millisecond,
		BackgroundPollInterval: time.Hour,
		MaxSampleAge:           time.Minute,
	}
	return New(
		cfg,
		emptyRepository{},
		services.NewInMemoryCalendar(logger),
		services.NewLocalNotifier(logger),
		services.NewNominatimGeocoder(logger),
		logger,
	)
}

func TestEngineStartAndStop(t *testing.T) {
	e := newTestEngine()

	require.NoError(t, e.Start(context.Background()))

	status, err := e.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.ActiveRegions)

	e.Stop()
}

func TestEngineRegionVisibleInStatus(t *testing.T) {
	e := newTestEngine()
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	ctx := context.Background()
	err := e.Monitor.AddRegion(ctx, models.GeofenceRegion{
		ID:           "reminder_" + uuid.NewString(),
		Name:         "office",
		Center:       models.Coordinate{Latitude: 37.7749, Longitude: -122.4194},
		RadiusMeters: 200,
		TriggerKind:  models.TriggerEnter,
	})
	require.NoError(t, err)

	status, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.ActiveRegions)
}
