// Package engine assembles the trigger pipeline: proximity monitor, dwell
// checks, event dispatch into the reminder lifecycle, and the background
// scheduler. It owns the goroutines; callers get Start and Stop.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/domain/geofence"
	"github.com/remindly/geotrigger/internal/app/domain/positions"
	"github.com/remindly/geotrigger/internal/app/domain/reminder"
	"github.com/remindly/geotrigger/internal/app/domain/scheduler"
	"github.com/remindly/geotrigger/internal/pkg/config"
)

type Engine struct {
	logger    *zap.Logger
	Monitor   *geofence.Monitor
	Store     *positions.Store
	Reminders reminder.Service
	Scheduler *scheduler.BackgroundScheduler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the engine from persistence and the collaborator set.
func New(
	cfg config.EngineConfig,
	repo reminder.Repository,
	calendar reminder.CalendarSync,
	notifier reminder.NotificationDispatcher,
	geocoder reminder.GeocodingResolver,
	logger *zap.Logger,
) *Engine {
	monitorCfg := geofence.DefaultMonitorConfig()
	if cfg.DwellCheckInterval > 0 {
		monitorCfg.DwellCheckInterval = cfg.DwellCheckInterval
	}
	monitor := geofence.NewMonitor(monitorCfg, logger)

	store := positions.NewStore(cfg.MaxSampleAge, logger)

	svc := reminder.NewServiceImpl(repo, monitor, calendar, notifier, geocoder, logger)

	schedCfg := scheduler.DefaultConfig()
	if cfg.BackgroundPollInterval > 0 {
		schedCfg.PollInterval = cfg.BackgroundPollInterval
	}
	if cfg.BackgroundDistanceFilter > 0 {
		schedCfg.DistanceFilterMeters = cfg.BackgroundDistanceFilter
	}
	sched := scheduler.New(schedCfg, store, monitor, svc, logger)

	return &Engine{
		logger:    logger,
		Monitor:   monitor,
		Store:     store,
		Reminders: svc,
		Scheduler: sched,
	}
}

// Start launches the monitor, the event dispatch loop and the background
// scheduler, then re-registers regions for persisted location reminders.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Monitor.Run(runCtx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.dispatchEvents(runCtx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Scheduler.Run(runCtx)
	}()

	restored, err := e.Reminders.RestoreRegions(runCtx)
	if err != nil {
		e.logger.Error("failed to restore geofence regions", zap.Error(err))
		return err
	}
	e.logger.Info("engine started", zap.Int("regions_restored", restored))
	return nil
}

// dispatchEvents drains the monitor's event stream into the lifecycle
// manager. Event handling never calls back into the monitor synchronously,
// so this loop cannot deadlock against it.
func (e *Engine) dispatchEvents(ctx context.Context) {
	for event := range e.Monitor.Events() {
		if err := e.Reminders.OnGeofenceEvent(ctx, event); err != nil {
			e.logger.Error("failed to handle geofence event",
				zap.String("kind", string(event.Kind)),
				zap.String("region_id", event.Region.ID),
				zap.Error(err),
			)
		}
	}
}

// Stop cancels the engine goroutines and waits for them to drain.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

// Status summarizes the engine for the status endpoint.
type Status struct {
	ActiveRegions int              `json:"active_regions"`
	Scheduler     scheduler.Status `json:"scheduler"`
}

func (e *Engine) Status(ctx context.Context) (Status, error) {
	count, err := e.Monitor.RegionCount(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		ActiveRegions: count,
		Scheduler:     e.Scheduler.Status(),
	}, nil
}
