package geofence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

func startMonitor(t *testing.T) (*Monitor, context.Context) {
	t.Helper()

	cfg := DefaultMonitorConfig()
	// Keep the dwell ticker out of the way unless a test wants it.
	cfg.DwellCheckInterval = time.Hour

	m := NewMonitor(cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	return m, ctx
}

func sampleAt(lat, lon float64, at time.Time) models.PositionSample {
	return models.PositionSample{
		Coordinate:     models.Coordinate{Latitude: lat, Longitude: lon},
		AccuracyMeters: 10,
		Timestamp:      at,
	}
}

func waitEvent(t *testing.T, m *Monitor) models.GeofenceEvent {
	t.Helper()
	select {
	case ev := <-m.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for geofence event")
		return models.GeofenceEvent{}
	}
}

func assertNoEvent(t *testing.T, m *Monitor) {
	t.Helper()
	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected event %s for region %s", ev.Kind, ev.Region.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMonitorEmitsSingleEnterPerCrossing(t *testing.T) {
	m, ctx := startMonitor(t)

	require.NoError(t, m.AddRegion(ctx, testRegion("sf", models.TriggerEnter)))

	now := time.Now()

	// ~2km away: outside, no event.
	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4421, now)))
	assertNoEvent(t, m)

	// ~150m away: inside, one enter event.
	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4211, now.Add(time.Minute))))
	ev := waitEvent(t, m)
	assert.Equal(t, models.EventEnter, ev.Kind)
	assert.Equal(t, "sf", ev.Region.ID)
	assert.Equal(t, "reminder-sf", ev.Region.Payload)

	// More inside samples: still no second event.
	require.NoError(t, m.Submit(ctx, sampleAt(37.7750, -122.4210, now.Add(2*time.Minute))))
	require.NoError(t, m.Submit(ctx, sampleAt(37.7748, -122.4212, now.Add(3*time.Minute))))
	assertNoEvent(t, m)

	// Exit and re-enter: exactly one more enter event.
	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4421, now.Add(4*time.Minute))))
	assertNoEvent(t, m)
	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4211, now.Add(5*time.Minute))))
	ev = waitEvent(t, m)
	assert.Equal(t, models.EventEnter, ev.Kind)
}

func TestMonitorEmitsExitEvent(t *testing.T) {
	m, ctx := startMonitor(t)

	require.NoError(t, m.AddRegion(ctx, testRegion("sf", models.TriggerExit)))

	now := time.Now()

	// Enter silently (exit regions don't announce entries).
	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4211, now)))
	assertNoEvent(t, m)

	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4421, now.Add(time.Minute))))
	ev := waitEvent(t, m)
	assert.Equal(t, models.EventExit, ev.Kind)
	assert.Equal(t, "sf", ev.Region.ID)
}

func TestMonitorSweepsExpiredRegions(t *testing.T) {
	m, ctx := startMonitor(t)

	now := time.Now()
	past := now.Add(-time.Minute)

	expiring := testRegion("stale", models.TriggerEnter)
	expiring.ExpiresAt = &past
	require.NoError(t, m.AddRegion(ctx, expiring))
	require.NoError(t, m.AddRegion(ctx, testRegion("alive", models.TriggerEnter)))

	// Any sample triggers the expiry sweep, even one far from both regions.
	require.NoError(t, m.Submit(ctx, sampleAt(0, 0, now)))

	ev := waitEvent(t, m)
	assert.Equal(t, models.EventRegionExpired, ev.Kind)
	assert.Equal(t, "stale", ev.Region.ID)

	count, err := m.RegionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMonitorDwellFlow(t *testing.T) {
	cfg := DefaultMonitorConfig()
	cfg.DwellCheckInterval = 20 * time.Millisecond

	m := NewMonitor(cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)

	region := testRegion("cafe", models.TriggerDwell)
	region.DwellDuration = 100 * time.Millisecond
	require.NoError(t, m.AddRegion(ctx, region))

	// Enter the region; dwell regions are silent on entry.
	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4194, time.Now())))

	// The ticker may overshoot the dwell duration by up to one interval,
	// never fire early, and fire exactly once while resident.
	start := time.Now()
	ev := waitEvent(t, m)
	elapsed := time.Since(start)

	assert.Equal(t, models.EventDwell, ev.Kind)
	assert.Equal(t, "cafe", ev.Region.ID)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond-10*time.Millisecond)

	assertNoEvent(t, m)
}

func TestMonitorRemoveRegionStopsEvents(t *testing.T) {
	m, ctx := startMonitor(t)

	require.NoError(t, m.AddRegion(ctx, testRegion("sf", models.TriggerEnter)))
	require.NoError(t, m.RemoveRegion(ctx, "sf"))

	require.NoError(t, m.Submit(ctx, sampleAt(37.7749, -122.4194, time.Now())))
	assertNoEvent(t, m)

	count, err := m.RegionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMonitorStopClosesEventStream(t *testing.T) {
	cfg := DefaultMonitorConfig()
	m := NewMonitor(cfg, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}

	_, open := <-m.Events()
	assert.False(t, open)
}
