package session

import (
	"context"
	"time"

	"volume-spike-detector/src/data_source/fyers"
	"volume-spike-detector/src/detector"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/observability"
	"volume-spike-detector/src/utils"
)

// Factory builds a connected, subscribed StreamSession per start.
// Pipeline counters are shared across sessions.
type Factory struct {
	Config      *models.MConfig
	Auth        interfaces.IAuthenticator
	Persister   interfaces.IPersister
	Notifier    interfaces.INotifier
	Broadcaster interfaces.IDataExchanger
	Metrics     *observability.Metrics
	Clock       utils.Clock
	Logger      *logger.Logger

	// NewFeed is swapped out in tests.
	NewFeed func() interfaces.IFeed

	stats *detector.PipelineStats
}

// -----------------------------------------------------------------------------

func NewFactory(
	cfg *models.MConfig,
	auth interfaces.IAuthenticator,
	persister interfaces.IPersister,
	notifier interfaces.INotifier,
	broadcaster interfaces.IDataExchanger,
	metrics *observability.Metrics,
	log *logger.Logger,
) *Factory {
	f := &Factory{
		Config:      cfg,
		Auth:        auth,
		Persister:   persister,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Metrics:     metrics,
		Clock:       utils.SystemClock{},
		Logger:      log,
		stats:       &detector.PipelineStats{},
	}
	f.NewFeed = func() interfaces.IFeed {
		return fyers.NewWSFeed(cfg.Feed, auth, log)
	}
	return f
}

// -----------------------------------------------------------------------------

// NewSession connects and subscribes. On failure everything it built is
// released again.
func (f *Factory) NewSession(ctx context.Context) (interfaces.ISession, error) {
	// 1. Sinks
	dispatcher := detector.NewDispatcher(
		f.Persister,
		f.Notifier,
		f.Broadcaster,
		f.Config.Detector.DispatchQueueSize,
		time.Duration(f.Config.Detector.SinkTimeoutSeconds)*time.Second,
		f.stats,
		f.Metrics,
		f.Logger,
	)
	dispatcher.Start()

	// 2. Fresh per-session state
	processor := detector.NewTickProcessor(
		f.Config.Detector,
		detector.NewSymbolStateStore(),
		dispatcher,
		f.Config.Feed.Sectors,
		f.stats,
		f.Metrics,
		f.Logger,
	)

	feed := f.NewFeed()
	sess := newStreamSession(feed, processor, dispatcher, f.Clock, f.Logger)
	if grace := f.Config.Supervisor.StopGraceSeconds; grace > 0 {
		sess.DrainTimeout = time.Duration(grace) * time.Second
	}

	// 3. Connect, then subscribe
	if err := feed.Connect(ctx, sess); err != nil {
		dispatcher.Close()
		return nil, err
	}
	if err := feed.Subscribe(f.Config.Feed.Symbols); err != nil {
		_ = feed.Close()
		dispatcher.Close()
		return nil, err
	}

	f.Logger.Info("Monitoring %d symbols, threshold Rs %.2f Cr",
		len(f.Config.Feed.Symbols), f.Config.Detector.IndividualTradeThreshold/1e7)
	return sess, nil
}

// -----------------------------------------------------------------------------

// ProcessingMetrics aggregates counters over every session built so far.
func (f *Factory) ProcessingMetrics() models.MProcessingMetrics {
	return f.stats.Snapshot()
}
