package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

// CalendarEvent is a mirrored calendar entry.
type CalendarEvent struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	LeadMinutes int
}

// InMemoryCalendar keeps mirrored events in process. Deployments with a real
// calendar backend swap in their own CalendarSync.
type InMemoryCalendar struct {
	logger *zap.Logger

	mu     sync.RWMutex
	events map[string]CalendarEvent
}

func NewInMemoryCalendar(logger *zap.Logger) *InMemoryCalendar {
	return &InMemoryCalendar{
		logger: logger,
		events: make(map[string]CalendarEvent),
	}
}

func (c *InMemoryCalendar) CreateEvent(ctx context.Context, title string, start, end time.Time, description string, leadMinutes int) (string, error) {
	if title == "" {
		return "", errors.Wrap(models.ErrSyncFailed, "event title is empty")
	}

	id := fmt.Sprintf("evt_%s", uuid.New())

	c.mu.Lock()
	c.events[id] = CalendarEvent{
		ID:          id,
		Title:       title,
		Description: description,
		Start:       start,
		End:         end,
		LeadMinutes: leadMinutes,
	}
	c.mu.Unlock()

	c.logger.Debug("calendar event created",
		zap.String("event_id", id),
		zap.Time("start", start),
	)
	return id, nil
}

func (c *InMemoryCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	c.mu.Lock()
	_, ok := c.events[eventID]
	delete(c.events, eventID)
	c.mu.Unlock()

	if !ok {
		return errors.Wrapf(models.ErrNotFound, "calendar event %s", eventID)
	}
	c.logger.Debug("calendar event deleted", zap.String("event_id", eventID))
	return nil
}

// Event returns a mirrored event by id.
func (c *InMemoryCalendar) Event(eventID string) (CalendarEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	evt, ok := c.events[eventID]
	return evt, ok
}
