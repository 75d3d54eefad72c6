package interfaces

import "context"

// -----------------------------------------------------------------------------
// IFeedHandler receives callbacks from the feed's own read goroutine.
// Implementations must return quickly.
// -----------------------------------------------------------------------------

type IFeedHandler interface {
	OnTick(raw []byte)
	OnError(err error)
	OnClose()
}

// -----------------------------------------------------------------------------
// IFeed is a push-based market-data subscription.
// -----------------------------------------------------------------------------

type IFeed interface {
	// Connect dials the feed and starts delivering messages to handler.
	Connect(ctx context.Context, handler IFeedHandler) error

	// -----------------------------------------------------------------------------

	// Subscribe requests updates for symbols.
	Subscribe(symbols []string) error

	// -----------------------------------------------------------------------------

	// Close tears the connection down. Safe to call more than once.
	Close() error
}
