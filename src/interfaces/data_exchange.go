package interfaces

import "volume-spike-detector/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes fired events to connected dashboards.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// Broadcast must not block the caller.
	Broadcast(event models.MSpikeEvent)
}
