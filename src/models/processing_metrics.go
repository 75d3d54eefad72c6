package models

// MProcessingMetrics is a point-in-time view of the tick pipeline counters.
type MProcessingMetrics struct {
	TicksProcessed   uint64 `json:"ticks_processed"`
	TicksMalformed   uint64 `json:"ticks_malformed"`
	SpikesDetected   uint64 `json:"spikes_detected"`
	SpikesSuppressed uint64 `json:"spikes_suppressed"`
	PersistSucceeded uint64 `json:"persist_succeeded"`
	PersistFailed    uint64 `json:"persist_failed"`
	NotifySucceeded  uint64 `json:"notify_succeeded"`
	NotifyFailed     uint64 `json:"notify_failed"`
	DispatchDropped  uint64 `json:"dispatch_dropped"`
}
