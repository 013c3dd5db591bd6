package reminder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

type stubService struct {
	getErr        error
	completeErr   error
	createCalErr  error
	createLocErr  error
	lastCompleted uuid.UUID
	lastFilter    models.ReminderFilter
}

func (s *stubService) CreateCalendarReminder(ctx context.Context, req CreateCalendarReminderRequest) (*models.CreateReminderResult, error) {
	if s.createCalErr != nil {
		return nil, s.createCalErr
	}
	return &models.CreateReminderResult{Reminder: &models.ReminderModel{ID: uuid.New(), Title: req.Title}}, nil
}

func (s *stubService) CreateLocationReminder(ctx context.Context, req CreateLocationReminderRequest) (*models.CreateReminderResult, error) {
	if s.createLocErr != nil {
		return nil, s.createLocErr
	}
	return &models.CreateReminderResult{Reminder: &models.ReminderModel{ID: uuid.New(), Title: req.Title}}, nil
}

func (s *stubService) OnGeofenceEvent(ctx context.Context, event models.GeofenceEvent) error {
	return nil
}

func (s *stubService) Get(ctx context.Context, id uuid.UUID) (*models.ReminderModel, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &models.ReminderModel{ID: id, Status: models.StatusPending}, nil
}

func (s *stubService) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderModel, error) {
	s.lastFilter = filter
	return []models.ReminderModel{{ID: uuid.New(), Status: models.StatusPending}}, nil
}

func (s *stubService) Complete(ctx context.Context, id uuid.UUID) error {
	s.lastCompleted = id
	return s.completeErr
}

func (s *stubService) Dismiss(ctx context.Context, id uuid.UUID) error { return nil }
func (s *stubService) Cancel(ctx context.Context, id uuid.UUID) error  { return nil }
func (s *stubService) Delete(ctx context.Context, id uuid.UUID) error  { return nil }
func (s *stubService) DeleteBySummary(ctx context.Context, summaryID uuid.UUID) error {
	return nil
}
func (s *stubService) ExpireOldReminders(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}
func (s *stubService) RestoreRegions(ctx context.Context) (int, error) { return 0, nil }

func newHandlerRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc, zap.NewNop())
	r := gin.New()
	r.POST("/api/reminders/calendar", h.CreateCalendar)
	r.POST("/api/reminders/location", h.CreateLocation)
	r.GET("/api/reminders", h.List)
	r.GET("/api/reminders/:id", h.Get)
	r.POST("/api/reminders/:id/complete", h.Complete)
	return r
}

func TestHandlerGetInvalidID(t *testing.T) {
	r := newHandlerRouter(&stubService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reminders/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerGetNotFound(t *testing.T) {
	r := newHandlerRouter(&stubService{getErr: models.ErrNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/reminders/"+uuid.NewString(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerCompleteStaleTransitionConflicts(t *testing.T) {
	svc := &stubService{completeErr: errors.Wrap(models.ErrStaleTransition, "already completed")}
	r := newHandlerRouter(svc)

	id := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/"+id.String()+"/complete", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, id, svc.lastCompleted)
}

func TestHandlerCreateCalendarValidationError(t *testing.T) {
	svc := &stubService{createCalErr: errors.Wrap(models.ErrValidation, "title and scheduled_at are required")}
	r := newHandlerRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/calendar", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerCreateLocationGeocodeFailure(t *testing.T) {
	svc := &stubService{createLocErr: errors.Wrap(models.ErrGeocodeFailed, "no results")}
	r := newHandlerRouter(svc)

	body := `{"user_id":"u1","title":"pick up parcel","location_text":"post office","radius_meters":150,"trigger_kind":"enter"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/location", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandlerListAppliesQueryFilters(t *testing.T) {
	svc := &stubService{}
	r := newHandlerRouter(svc)

	summaryID := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/reminders?user_id=u1&status=pending&kind=location&summary_id="+summaryID.String(), nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", svc.lastFilter.UserID)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.StatusPending, *svc.lastFilter.Status)
	require.NotNil(t, svc.lastFilter.Kind)
	assert.Equal(t, models.ReminderLocation, *svc.lastFilter.Kind)
	require.NotNil(t, svc.lastFilter.SummaryID)
	assert.Equal(t, summaryID, *svc.lastFilter.SummaryID)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestHandlerCreateCalendarSuccess(t *testing.T) {
	r := newHandlerRouter(&stubService{})

	body := `{"user_id":"u1","title":"dentist","scheduled_at":"2026-09-01T10:00:00Z"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reminders/calendar", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "dentist")
}
