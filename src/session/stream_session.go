package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"volume-spike-detector/src/data_source/fyers"
	"volume-spike-detector/src/detector"
	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/utils"
)

const (
	pollInterval        = time.Second
	progressInterval    = 10 * time.Second
	defaultDrainTimeout = 2 * time.Second
)

// StreamSession is one connected lifetime of the feed. It owns the feed,
// a fresh symbol state store and the dispatcher for its events.
type StreamSession struct {
	Feed       interfaces.IFeed
	Processor  *detector.TickProcessor
	Dispatcher *detector.Dispatcher
	Clock      utils.Clock
	Logger     *logger.Logger

	// DrainTimeout bounds how long Close waits on pending sink work
	DrainTimeout time.Duration

	messages  atomic.Uint64
	feedDone  chan struct{}
	doneOnce  sync.Once
	errMu     sync.Mutex
	feedErr   error
	closeOnce sync.Once
	closeErr  error
}

// -----------------------------------------------------------------------------

func newStreamSession(feed interfaces.IFeed, proc *detector.TickProcessor, disp *detector.Dispatcher, clock utils.Clock, log *logger.Logger) *StreamSession {
	return &StreamSession{
		Feed:       feed,
		Processor:  proc,
		Dispatcher: disp,
		Clock:      clock,
		Logger:     log,
		feedDone:   make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

// OnTick decodes and processes one feed message.
func (s *StreamSession) OnTick(raw []byte) {
	s.messages.Add(1)

	tick, kind, err := fyers.DecodeTick(raw)
	if err != nil {
		s.Processor.RecordMalformed()
		s.Logger.Debug("Dropped feed message: %v", err)
		return
	}
	if kind == fyers.MessageControl {
		return
	}

	s.Processor.OnTick(tick.Symbol, tick.Price, tick.CumulativeVolume, s.Clock.Now())
}

// -----------------------------------------------------------------------------

func (s *StreamSession) OnError(err error) {
	s.Logger.Error("Feed error: %v", err)
	s.errMu.Lock()
	if s.feedErr == nil {
		s.feedErr = err
	}
	s.errMu.Unlock()
}

// -----------------------------------------------------------------------------

func (s *StreamSession) OnClose() {
	s.doneOnce.Do(func() { close(s.feedDone) })
}

// -----------------------------------------------------------------------------

// Run blocks until ctx is cancelled (nil) or the feed goes away (error).
func (s *StreamSession) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastProgress := s.Clock.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.feedDone:
			s.errMu.Lock()
			err := s.feedErr
			s.errMu.Unlock()
			if err == nil {
				err = helpers.NewFeedError("feed closed", nil)
			}
			return err
		case <-ticker.C:
			if now := s.Clock.Now(); now.Sub(lastProgress) >= progressInterval {
				s.Logger.Debug("Messages received so far: %d", s.messages.Load())
				lastProgress = now
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Close tears down the feed and then drains pending sink work for at most
// DrainTimeout. Events still queued after that are dropped.
func (s *StreamSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Feed.Close()

		timeout := s.DrainTimeout
		if timeout <= 0 {
			timeout = defaultDrainTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Dispatcher.Shutdown(ctx); err != nil {
			s.Logger.Warning("Pending alerts not delivered within %s: %v", timeout, err)
		}

		s.Logger.Info("Session closed after %d messages", s.messages.Load())
	})
	return s.closeErr
}

// -----------------------------------------------------------------------------

// Messages is the number of raw feed messages seen.
func (s *StreamSession) Messages() uint64 {
	return s.messages.Load()
}
