package interfaces

import "context"

// -----------------------------------------------------------------------------
// ISession is one connected lifetime of the feed.
// -----------------------------------------------------------------------------

type ISession interface {
	// Run blocks until ctx is cancelled or the feed closes.
	Run(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Close releases the feed and drains pending sink work.
	Close() error
}

// -----------------------------------------------------------------------------
// ISessionFactory builds, connects and subscribes a new session.
// -----------------------------------------------------------------------------

type ISessionFactory interface {
	NewSession(ctx context.Context) (ISession, error)
}
