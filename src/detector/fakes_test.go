package detector

import (
	"context"
	"sync"

	"volume-spike-detector/src/models"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.MSpikeEvent
}

func (s *recordingSink) Enqueue(ev models.MSpikeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) Events() []models.MSpikeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MSpikeEvent(nil), s.events...)
}

type fakePersister struct {
	mu    sync.Mutex
	err   error
	calls []models.MSpikeEvent
	block chan struct{}
}

func (f *fakePersister) Persist(ctx context.Context, ev models.MSpikeEvent) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ev)
	return f.err
}

func (f *fakePersister) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	spikes []models.MSpikeEvent
	panics bool
}

func (f *fakeNotifier) NotifySpike(ctx context.Context, ev models.MSpikeEvent) error {
	if f.panics {
		panic("notifier exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spikes = append(f.spikes, ev)
	return f.err
}

func (f *fakeNotifier) NotifyOperator(ctx context.Context, message string) error {
	return nil
}

func (f *fakeNotifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spikes)
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []models.MSpikeEvent
}

func (f *fakeBroadcaster) Broadcast(ev models.MSpikeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

func (f *fakeBroadcaster) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
