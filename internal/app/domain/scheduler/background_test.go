package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/remindly/geotrigger/internal/app/models"
)

type stubSource struct {
	mu      sync.Mutex
	samples []models.PositionSample
	err     error
	calls   int
}

func (s *stubSource) GetCurrentPosition(ctx context.Context) (models.PositionSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return models.PositionSample{}, s.err
	}
	if len(s.samples) == 0 {
		return models.PositionSample{}, models.ErrServiceDisabled
	}
	next := s.samples[0]
	if len(s.samples) > 1 {
		s.samples = s.samples[1:]
	}
	return next, nil
}

func (s *stubSource) Stream(ctx context.Context) (<-chan models.PositionSample, error) {
	return nil, models.ErrServiceDisabled
}

type recordingSink struct {
	mu        sync.Mutex
	submitted []models.PositionSample
}

func (r *recordingSink) Submit(ctx context.Context, sample models.PositionSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted = append(r.submitted, sample)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submitted)
}

type stubSweeper struct {
	mu    sync.Mutex
	calls int
}

func (s *stubSweeper) ExpireOldReminders(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return 0, nil
}

func sampleAt(lat, lon float64) models.PositionSample {
	return models.PositionSample{
		Coordinate: models.Coordinate{Latitude: lat, Longitude: lon},
		Timestamp:  time.Now(),
	}
}

func newScheduler(source *stubSource, sink *recordingSink, sweeper *stubSweeper) *BackgroundScheduler {
	return New(DefaultConfig(), source, sink, sweeper, zap.NewNop())
}

func TestPollSubmitsSampleAndSweeps(t *testing.T) {
	source := &stubSource{samples: []models.PositionSample{sampleAt(37.7749, -122.4194)}}
	sink := &recordingSink{}
	sweeper := &stubSweeper{}
	s := newScheduler(source, sink, sweeper)

	s.Poll(context.Background(), time.Now())

	require.Equal(t, 1, sink.count())
	assert.Equal(t, 1, sweeper.calls)

	status := s.Status()
	assert.False(t, status.PermissionDenied)
	assert.False(t, status.ServiceDisabled)
	assert.False(t, status.LastPollAt.IsZero())
}

func TestPollSkipsOnPermissionDenied(t *testing.T) {
	source := &stubSource{err: models.ErrPermissionDenied}
	sink := &recordingSink{}
	sweeper := &stubSweeper{}
	s := newScheduler(source, sink, sweeper)

	s.Poll(context.Background(), time.Now())

	assert.Equal(t, 0, sink.count())
	assert.True(t, s.Status().PermissionDenied)
	assert.False(t, s.Status().ServiceDisabled)
	// The expiry sweep still runs; it does not depend on a position fix.
	assert.Equal(t, 1, sweeper.calls)
}

func TestPollSkipsOnServiceDisabled(t *testing.T) {
	source := &stubSource{err: models.ErrServiceDisabled}
	sink := &recordingSink{}
	s := newScheduler(source, sink, &stubSweeper{})

	s.Poll(context.Background(), time.Now())

	assert.Equal(t, 0, sink.count())
	assert.True(t, s.Status().ServiceDisabled)
	assert.NotEmpty(t, s.Status().LastError)
}

func TestPollFlagsClearAfterRecovery(t *testing.T) {
	source := &stubSource{err: models.ErrPermissionDenied}
	sink := &recordingSink{}
	s := newScheduler(source, sink, &stubSweeper{})

	s.Poll(context.Background(), time.Now())
	require.True(t, s.Status().PermissionDenied)

	source.mu.Lock()
	source.err = nil
	source.samples = []models.PositionSample{sampleAt(37.7749, -122.4194)}
	source.mu.Unlock()

	s.Poll(context.Background(), time.Now())

	assert.Equal(t, 1, sink.count())
	assert.False(t, s.Status().PermissionDenied)
	assert.Empty(t, s.Status().LastError)
}

func TestDistanceFilterDropsNearbySamples(t *testing.T) {
	// Second sample roughly 40 m east of the first, under the 100 m filter.
	source := &stubSource{samples: []models.PositionSample{
		sampleAt(37.7749, -122.4194),
		sampleAt(37.7749, -122.41895),
	}}
	sink := &recordingSink{}
	s := newScheduler(source, sink, &stubSweeper{})

	s.Poll(context.Background(), time.Now())
	s.Poll(context.Background(), time.Now())

	assert.Equal(t, 1, sink.count())
}

func TestDistanceFilterPassesFarSamples(t *testing.T) {
	// Second sample about 2 km away.
	source := &stubSource{samples: []models.PositionSample{
		sampleAt(37.7749, -122.4194),
		sampleAt(37.7749, -122.3967),
	}}
	sink := &recordingSink{}
	s := newScheduler(source, sink, &stubSweeper{})

	s.Poll(context.Background(), time.Now())
	s.Poll(context.Background(), time.Now())

	assert.Equal(t, 2, sink.count())
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &stubSource{samples: []models.PositionSample{sampleAt(37.7749, -122.4194)}}
	sink := &recordingSink{}
	cfg := Config{PollInterval: 10 * time.Millisecond, DistanceFilterMeters: 0}
	s := New(cfg, source, sink, &stubSweeper{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.count() > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
