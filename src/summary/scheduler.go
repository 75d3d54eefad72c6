package summary

import (
	"context"
	"sync"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/utils"
)

const checkInterval = time.Minute

// Scheduler sends the summaries once send time has passed and repeats them
// every Interval until DoneForToday is called. The flag resets at midnight.
type Scheduler struct {
	Generator *Generator
	Notifier  interfaces.INotifier
	Clock     utils.Clock
	SendAt    time.Duration
	Interval  time.Duration
	Logger    *logger.Logger

	sendNow chan struct{}

	mu        sync.Mutex
	day       string
	lastSent  time.Time
	doneToday bool
}

// -----------------------------------------------------------------------------

func NewScheduler(gen *Generator, notifier interfaces.INotifier, sendAt, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = 120 * time.Minute
	}
	return &Scheduler{
		Generator: gen,
		Notifier:  notifier,
		Clock:     utils.SystemClock{},
		SendAt:    sendAt,
		Interval:  interval,
		Logger:    log,
		sendNow:   make(chan struct{}, 1),
	}
}

// -----------------------------------------------------------------------------

// SendNow triggers an immediate summary. Repeated calls coalesce.
func (s *Scheduler) SendNow() {
	select {
	case s.sendNow <- struct{}{}:
	default:
	}
}

// DoneForToday stops the repeats until the next day.
func (s *Scheduler) DoneForToday() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDayLocked(s.Clock.Now().In(s.Generator.Location))
	s.doneToday = true
	s.Logger.Info("Summary repeats stopped for %s", s.day)
}

// -----------------------------------------------------------------------------

func (s *Scheduler) Run(ctx context.Context) {
	s.Logger.Info("Summary scheduler started (send at %s, every %s)", s.SendAt, s.Interval)

	for {
		s.Tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-s.sendNow:
			s.send(ctx, s.Clock.Now())
		case <-s.Clock.After(checkInterval):
		}
	}
}

// -----------------------------------------------------------------------------

// Tick sends the summaries if they are due and reports whether it did.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.Clock.Now()
	if !s.due(now) {
		return false
	}
	return s.send(ctx, now)
}

// -----------------------------------------------------------------------------

func (s *Scheduler) due(now time.Time) bool {
	local := now.In(s.Generator.Location)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollDayLocked(local)

	if s.doneToday {
		return false
	}

	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.Generator.Location)
	if local.Before(dayStart.Add(s.SendAt)) {
		return false
	}
	return s.lastSent.IsZero() || now.Sub(s.lastSent) >= s.Interval
}

func (s *Scheduler) rollDayLocked(local time.Time) {
	day := local.Format("2006-01-02")
	if day != s.day {
		s.day = day
		s.doneToday = false
		s.lastSent = time.Time{}
	}
}

// -----------------------------------------------------------------------------

func (s *Scheduler) send(ctx context.Context, now time.Time) bool {
	messages, err := s.Generator.Messages(ctx, now)
	if err != nil {
		s.Logger.Error("Summary generation failed: %v", err)
		return false
	}

	for _, msg := range messages {
		if err := s.Notifier.NotifyOperator(ctx, msg); err != nil {
			s.Logger.Error("Failed to send summary: %v", err)
			return false
		}
	}

	s.mu.Lock()
	s.lastSent = now
	s.mu.Unlock()

	s.Logger.Info("Sent %d summary message(s)", len(messages))
	return true
}
