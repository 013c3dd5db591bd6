// Package services holds the default collaborator implementations wired at
// composition time. Platform-specific integrations replace these behind the
// same interfaces.
package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LocalNotifier delivers notifications to the application log and keeps
// scheduled ones on timers. Scheduled notifications do not survive a
// process restart; lead notifications are re-derived from persisted
// reminders on startup.
type LocalNotifier struct {
	logger *zap.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewLocalNotifier(logger *zap.Logger) *LocalNotifier {
	return &LocalNotifier{
		logger: logger,
		timers: make(map[string]*time.Timer),
	}
}

func (n *LocalNotifier) Show(ctx context.Context, id, title, body string, payload map[string]string) error {
	n.logger.Info("notification",
		zap.String("id", id),
		zap.String("title", title),
		zap.String("body", body),
		zap.Any("payload", payload),
	)
	return nil
}

func (n *LocalNotifier) ScheduleAt(ctx context.Context, id, title, body string, at time.Time, payload map[string]string) error {
	delay := time.Until(at)
	if delay <= 0 {
		return n.Show(ctx, id, title, body, payload)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if existing, ok := n.timers[id]; ok {
		existing.Stop()
	}
	n.timers[id] = time.AfterFunc(delay, func() {
		n.mu.Lock()
		delete(n.timers, id)
		n.mu.Unlock()
		_ = n.Show(context.Background(), id, title, body, payload)
	})

	n.logger.Debug("notification scheduled",
		zap.String("id", id),
		zap.Time("at", at),
	)
	return nil
}

func (n *LocalNotifier) Cancel(ctx context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if timer, ok := n.timers[id]; ok {
		timer.Stop()
		delete(n.timers, id)
		n.logger.Debug("scheduled notification cancelled", zap.String("id", id))
	}
	return nil
}
