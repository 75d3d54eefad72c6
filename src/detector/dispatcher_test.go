package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"volume-spike-detector/src/models"
	"volume-spike-detector/src/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PersistFailureDoesNotAffectNotify(t *testing.T) {
	persister := &fakePersister{err: errors.New("sheet unavailable")}
	notifier := &fakeNotifier{}
	broadcaster := &fakeBroadcaster{}
	stats := &PipelineStats{}
	metrics := observability.NewMetrics("test")

	d := NewDispatcher(persister, notifier, broadcaster, 8, time.Second, stats, metrics, nil)
	p := NewTickProcessor(testDetectorConfig, nil, d, nil, stats, metrics, nil)
	d.Start()

	t0 := time.Now()
	p.OnTick("X", 100, 1000, t0)
	_, fired := p.OnTick("X", 100, 5_000_000, t0.Add(time.Second))
	require.True(t, fired)

	d.Close()

	assert.Equal(t, 1, persister.Calls())
	assert.Equal(t, 1, notifier.Calls())
	assert.Equal(t, 1, broadcaster.Count())

	m := stats.Snapshot()
	assert.Equal(t, uint64(1), m.PersistFailed)
	assert.Equal(t, uint64(1), m.NotifySucceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SinkResults.WithLabelValues("persist", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SinkResults.WithLabelValues("notify", "ok")))

	// Cool-down was armed although persist failed
	_, fired = p.OnTick("X", 100, 10_000_000, t0.Add(2*time.Second))
	assert.False(t, fired)
}

func TestDispatcher_NotifierPanicIsContained(t *testing.T) {
	persister := &fakePersister{}
	stats := &PipelineStats{}
	d := NewDispatcher(persister, &fakeNotifier{panics: true}, nil, 4, time.Second, stats, nil, nil)
	d.Start()

	require.True(t, d.Enqueue(models.MSpikeEvent{Symbol: "X"}))
	d.Close()

	assert.Equal(t, 1, persister.Calls())
	assert.Equal(t, uint64(1), stats.Snapshot().NotifyFailed)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	persister := &fakePersister{block: make(chan struct{})}
	stats := &PipelineStats{}
	d := NewDispatcher(persister, nil, nil, 1, 5*time.Second, stats, nil, nil)
	d.Start()

	// First event is picked up by the worker and blocks in Persist
	require.True(t, d.Enqueue(models.MSpikeEvent{Symbol: "A"}))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)

	require.True(t, d.Enqueue(models.MSpikeEvent{Symbol: "B"}))
	assert.False(t, d.Enqueue(models.MSpikeEvent{Symbol: "C"}))
	assert.Equal(t, uint64(1), stats.Snapshot().DispatchDropped)

	close(persister.block)
	d.Close()
	assert.Equal(t, 2, persister.Calls())
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, 1, time.Second, nil, nil, nil)
	d.Start()
	d.Close()
	d.Close()

	assert.False(t, d.Enqueue(models.MSpikeEvent{Symbol: "X"}))
}

func TestDispatcher_CloseWithoutStartDelivers(t *testing.T) {
	persister := &fakePersister{}
	d := NewDispatcher(persister, nil, nil, 4, time.Second, nil, nil, nil)
	d.Enqueue(models.MSpikeEvent{Symbol: "X"})
	d.Close()
	assert.Equal(t, 1, persister.Calls())
}

func TestDispatcher_ShutdownDeadlineDropsBacklog(t *testing.T) {
	persister := &fakePersister{block: make(chan struct{})}
	defer close(persister.block)
	stats := &PipelineStats{}
	metrics := observability.NewMetrics("test")
	d := NewDispatcher(persister, nil, nil, 8, 10*time.Second, stats, metrics, nil)
	d.Start()

	for _, sym := range []string{"A", "B", "C", "D"} {
		require.True(t, d.Enqueue(models.MSpikeEvent{Symbol: sym}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := d.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	// The in-flight persist is cancelled, the rest never reach a sink
	require.Eventually(t, func() bool {
		m := stats.Snapshot()
		return m.PersistFailed == 1 && m.DispatchDropped == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.DispatchDropped))
	assert.Zero(t, persister.Calls())
}
