package interfaces

import "volume-spike-detector/src/models"

// -----------------------------------------------------------------------------
// IDetectorControl is what the HTTP and gRPC adapters drive.
// -----------------------------------------------------------------------------

type IDetectorControl interface {
	RequestStart() error
	RequestStop() error
	RequestRestart() error
	Status() models.MSupervisorStatus
}

// -----------------------------------------------------------------------------
// ISummaryControl replaces the "send" / "done" chat commands.
// -----------------------------------------------------------------------------

type ISummaryControl interface {
	SendNow()
	DoneForToday()
}

// -----------------------------------------------------------------------------
// IMetricsSource exposes tick pipeline counters.
// -----------------------------------------------------------------------------

type IMetricsSource interface {
	ProcessingMetrics() models.MProcessingMetrics
}
