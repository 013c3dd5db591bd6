package reminder

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

// Handler exposes the reminder lifecycle over JSON.
type Handler struct {
	logger  *zap.Logger
	service Service
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// CreateCalendar handles POST /api/reminders/calendar.
func (h *Handler) CreateCalendar(c *gin.Context) {
	var req CreateCalendarReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.CreateCalendarReminder(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// CreateLocation handles POST /api/reminders/location.
func (h *Handler) CreateLocation(c *gin.Context) {
	var req CreateLocationReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.service.CreateLocationReminder(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// List handles GET /api/reminders with optional filters.
func (h *Handler) List(c *gin.Context) {
	var filter models.ReminderFilter
	filter.UserID = c.Query("user_id")
	if status := c.Query("status"); status != "" {
		st := models.ReminderStatus(status)
		filter.Status = &st
	}
	if kind := c.Query("kind"); kind != "" {
		k := models.ReminderKind(kind)
		filter.Kind = &k
	}
	if raw := c.Query("summary_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid summary_id"})
			return
		}
		filter.SummaryID = &id
	}

	reminders, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "count": len(reminders)})
}

// Get handles GET /api/reminders/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	reminder, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// Complete handles POST /api/reminders/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Dismiss handles POST /api/reminders/:id/dismiss.
func (h *Handler) Dismiss(c *gin.Context) {
	h.transition(c, h.service.Dismiss)
}

// Cancel handles POST /api/reminders/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Delete handles DELETE /api/reminders/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// DeleteBySummary handles DELETE /api/summaries/:id/reminders.
func (h *Handler) DeleteBySummary(c *gin.Context) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid summary id"})
		return
	}

	if err := h.service.DeleteBySummary(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := fn(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	reminder, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func (h *Handler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrStaleTransition), errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrGeocodeFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("reminder request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
