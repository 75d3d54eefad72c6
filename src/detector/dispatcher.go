package detector

import (
	"context"
	"sync"
	"time"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/observability"
)

const (
	sinkPersist = "persist"
	sinkNotify  = "notify"
)

// Dispatcher hands fired events to the sinks on a worker goroutine so the
// tick path never waits on I/O. Persist and notify run independently.
type Dispatcher struct {
	Persister   interfaces.IPersister
	Notifier    interfaces.INotifier
	Broadcaster interfaces.IDataExchanger
	Logger      *logger.Logger
	Metrics     *observability.Metrics

	timeout time.Duration
	stats   *PipelineStats
	queue   chan models.MSpikeEvent

	// Parent of every sink call; cancelled when a drain runs out of time
	abortCtx context.Context
	abort    context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewDispatcher(
	persister interfaces.IPersister,
	notifier interfaces.INotifier,
	broadcaster interfaces.IDataExchanger,
	queueSize int,
	timeout time.Duration,
	stats *PipelineStats,
	metrics *observability.Metrics,
	log *logger.Logger,
) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if stats == nil {
		stats = &PipelineStats{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	abortCtx, abort := context.WithCancel(context.Background())
	return &Dispatcher{
		Persister:   persister,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Logger:      log,
		Metrics:     metrics,
		timeout:     timeout,
		stats:       stats,
		queue:       make(chan models.MSpikeEvent, queueSize),
		abortCtx:    abortCtx,
		abort:       abort,
	}
}

// -----------------------------------------------------------------------------

// Start launches the worker. Calling it twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	d.wg.Add(1)
	go d.worker()
}

// -----------------------------------------------------------------------------

// Enqueue never blocks. It reports false when the queue is full or closed.
func (d *Dispatcher) Enqueue(ev models.MSpikeEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ev, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- ev:
		return true
	default:
		d.drop(ev, "queue full")
		return false
	}
}

// -----------------------------------------------------------------------------

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

// -----------------------------------------------------------------------------

// Shutdown stops accepting events and delivers what is queued until ctx ends.
// When ctx ends first, in-flight sink calls are cancelled, whatever is still
// queued is dropped and counted, and ctx.Err() is returned without waiting
// for the worker.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
		if !d.started {
			// Nobody reads the queue yet
			d.started = true
			d.wg.Add(1)
			go d.worker()
		}
	}
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		d.abort()
		return nil
	case <-ctx.Done():
		d.abort()
		d.Logger.Warning("Dispatcher drain cut short with %d events still queued", len(d.queue))
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		if d.abortCtx.Err() != nil {
			d.drop(ev, "shutdown deadline")
			continue
		}
		d.deliver(ev)
	}
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) deliver(ev models.MSpikeEvent) {
	var wg sync.WaitGroup

	if d.Persister != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.call(sinkPersist, ev, func(ctx context.Context) error {
				return d.Persister.Persist(ctx, ev)
			})
		}()
	}

	if d.Notifier != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.call(sinkNotify, ev, func(ctx context.Context) error {
				return d.Notifier.NotifySpike(ctx, ev)
			})
		}()
	}

	wg.Wait()

	if d.Broadcaster != nil {
		d.Broadcaster.Broadcast(ev)
	}
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) call(sink string, ev models.MSpikeEvent, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(d.abortCtx, d.timeout)
	defer cancel()

	start := time.Now()
	err := helpers.SafeRun(nil, sink, func() error { return fn(ctx) })
	if d.Metrics != nil {
		d.Metrics.SinkLatency.WithLabelValues(sink).Observe(time.Since(start).Seconds())
	}

	result := "ok"
	if err != nil {
		result = "error"
		d.Logger.Error("%s: %v", ev.Symbol, helpers.NewSinkError(sink, err))
	}

	switch {
	case sink == sinkPersist && err == nil:
		d.stats.persistOK.Add(1)
	case sink == sinkPersist:
		d.stats.persistFailed.Add(1)
	case err == nil:
		d.stats.notifyOK.Add(1)
	default:
		d.stats.notifyFailed.Add(1)
	}

	if d.Metrics != nil {
		d.Metrics.SinkResults.WithLabelValues(sink, result).Inc()
	}
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) drop(ev models.MSpikeEvent, reason string) {
	d.stats.dropped.Add(1)
	if d.Metrics != nil {
		d.Metrics.DispatchDropped.Inc()
	}
	d.Logger.Warning("Dropped spike event for %s: %s", ev.Symbol, reason)
}
