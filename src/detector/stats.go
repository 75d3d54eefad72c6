package detector

import (
	"sync/atomic"

	"volume-spike-detector/src/models"
)

// PipelineStats counts tick and sink outcomes. Safe for concurrent use.
type PipelineStats struct {
	ticksProcessed   atomic.Uint64
	ticksMalformed   atomic.Uint64
	spikesDetected   atomic.Uint64
	spikesSuppressed atomic.Uint64
	persistOK        atomic.Uint64
	persistFailed    atomic.Uint64
	notifyOK         atomic.Uint64
	notifyFailed     atomic.Uint64
	dropped          atomic.Uint64
}

func (s *PipelineStats) Snapshot() models.MProcessingMetrics {
	return models.MProcessingMetrics{
		TicksProcessed:   s.ticksProcessed.Load(),
		TicksMalformed:   s.ticksMalformed.Load(),
		SpikesDetected:   s.spikesDetected.Load(),
		SpikesSuppressed: s.spikesSuppressed.Load(),
		PersistSucceeded: s.persistOK.Load(),
		PersistFailed:    s.persistFailed.Load(),
		NotifySucceeded:  s.notifyOK.Load(),
		NotifyFailed:     s.notifyFailed.Load(),
		DispatchDropped:  s.dropped.Load(),
	}
}
