package interfaces

import (
	"context"
	"time"

	"volume-spike-detector/src/models"
)

// -----------------------------------------------------------------------------
// IPersister durably records fired spike events.
// -----------------------------------------------------------------------------

type IPersister interface {
	// Persist appends one event. Idempotency is not guaranteed.
	Persist(ctx context.Context, event models.MSpikeEvent) error
}

// -----------------------------------------------------------------------------
// IActivityReader feeds the periodic summary.
// -----------------------------------------------------------------------------

type IActivityReader interface {
	// SymbolActivitySince aggregates events observed at or after since, ranked
	// by count. The int is the number of events in range.
	SymbolActivitySince(ctx context.Context, since time.Time) ([]models.MSymbolActivity, int, error)
}

// -----------------------------------------------------------------------------
// IEventStore is the storage contract used by the persist sink and the summary.
// -----------------------------------------------------------------------------

type IEventStore interface {
	IPersister
	IActivityReader

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// RecentEvents returns the newest events, newest first.
	RecentEvents(ctx context.Context, limit int) ([]models.MSpikeEvent, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes events older than the retention policy.
	CleanupOldData(ctx context.Context) (int64, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
