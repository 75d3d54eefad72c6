package interfaces

import (
	"context"

	"volume-spike-detector/src/models"
)

// -----------------------------------------------------------------------------
// INotifier pushes human-readable messages to the operator channel.
// Best effort, no retries.
// -----------------------------------------------------------------------------

type INotifier interface {
	NotifySpike(ctx context.Context, event models.MSpikeEvent) error
	NotifyOperator(ctx context.Context, message string) error
}
