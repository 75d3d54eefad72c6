package detector

import (
	"time"

	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/observability"
)

const defaultSector = "Others"

// EventSink receives events that passed the cool-down gate. Dispatcher is
// the production implementation.
type EventSink interface {
	Enqueue(ev models.MSpikeEvent) bool
}

// TickProcessor turns raw ticks into spike events for one session.
type TickProcessor struct {
	Store      *SymbolStateStore
	Classifier SpikeClassifier
	Cooldown   time.Duration
	Sectors    map[string]string
	Sink       EventSink
	Logger     *logger.Logger
	Metrics    *observability.Metrics

	stats *PipelineStats
}

// -----------------------------------------------------------------------------

func NewTickProcessor(
	cfg models.MDetectorConfig,
	store *SymbolStateStore,
	sink EventSink,
	sectors map[string]string,
	stats *PipelineStats,
	metrics *observability.Metrics,
	log *logger.Logger,
) *TickProcessor {
	if store == nil {
		store = NewSymbolStateStore()
	}
	if stats == nil {
		stats = &PipelineStats{}
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &TickProcessor{
		Store:      store,
		Classifier: NewSpikeClassifier(cfg),
		Cooldown:   time.Duration(cfg.CooldownSeconds) * time.Second,
		Sectors:    sectors,
		Sink:       sink,
		Logger:     log,
		Metrics:    metrics,
		stats:      stats,
	}
}

// -----------------------------------------------------------------------------

// OnTick processes one tick and returns the event it forwarded, if any.
// It never blocks on sink I/O.
func (p *TickProcessor) OnTick(symbol string, price float64, cumulativeVolume int64, now time.Time) (models.MSpikeEvent, bool) {
	// 1. Reject malformed ticks
	if symbol == "" || price <= 0 || cumulativeVolume <= 0 {
		p.RecordMalformed()
		return models.MSpikeEvent{}, false
	}
	p.stats.ticksProcessed.Add(1)
	if p.Metrics != nil {
		p.Metrics.TicksProcessed.Inc()
	}

	// 2. Update state unconditionally
	prevVolume, _ := p.Store.Observe(symbol, price, cumulativeVolume)

	// 3. Negative deltas come from session rollovers; ignore them
	delta := cumulativeVolume - prevVolume
	if delta < 0 {
		p.Logger.Debug("Negative volume delta for %s (%d -> %d)", symbol, prevVolume, cumulativeVolume)
		return models.MSpikeEvent{}, false
	}

	// 4. Classify
	ev, ok := p.Classifier.Classify(symbol, price, delta, prevVolume, now)
	if !ok {
		return models.MSpikeEvent{}, false
	}

	// 5. Cool-down gate
	if !p.Store.TryMarkAlert(symbol, now, p.Cooldown) {
		p.stats.spikesSuppressed.Add(1)
		if p.Metrics != nil {
			p.Metrics.SpikesSuppressed.Inc()
		}
		return models.MSpikeEvent{}, false
	}

	ev.Sector = p.sectorOf(symbol)
	p.stats.spikesDetected.Add(1)
	if p.Metrics != nil {
		p.Metrics.SpikesDetected.WithLabelValues(string(ev.Severity)).Inc()
	}
	p.Logger.Info("%s %s: %d @ %.2f (Rs %s Cr)", ev.Severity, symbol, delta, price, ev.ValueCrores().StringFixed(2))

	// 6. Sinks run on the dispatcher
	if p.Sink != nil {
		p.Sink.Enqueue(ev)
	}
	return ev, true
}

// -----------------------------------------------------------------------------

// RecordMalformed counts a tick dropped before reaching the state store.
func (p *TickProcessor) RecordMalformed() {
	p.stats.ticksMalformed.Add(1)
	if p.Metrics != nil {
		p.Metrics.TicksMalformed.Inc()
	}
}

// -----------------------------------------------------------------------------

func (p *TickProcessor) ProcessingMetrics() models.MProcessingMetrics {
	return p.stats.Snapshot()
}

// -----------------------------------------------------------------------------

func (p *TickProcessor) sectorOf(symbol string) string {
	if s, ok := p.Sectors[symbol]; ok && s != "" {
		return s
	}
	return defaultSector
}
