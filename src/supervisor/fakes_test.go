package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/models"
)

type fakeSession struct {
	stubborn   bool
	failCh     chan error
	release    chan struct{}
	closeBlock chan struct{}
	closes     atomic.Int32
}

func newFakeSession() *fakeSession {
	return &fakeSession{failCh: make(chan error, 1), release: make(chan struct{})}
}

func (f *fakeSession) Run(ctx context.Context) error {
	if f.stubborn {
		<-f.release
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-f.failCh:
		return err
	}
}

func (f *fakeSession) Close() error {
	f.closes.Add(1)
	if f.closeBlock != nil {
		<-f.closeBlock
	}
	return nil
}

type fakeFactory struct {
	mu       sync.Mutex
	sessions []*fakeSession
	err      error
	panics    bool
	stubborn  bool
	hangClose bool
}

func (f *fakeFactory) NewSession(context.Context) (interfaces.ISession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("factory exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	s := newFakeSession()
	s.stubborn = f.stubborn
	if f.hangClose {
		s.closeBlock = make(chan struct{})
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

func (f *fakeFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

func (f *fakeFactory) Last() *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[len(f.sessions)-1]
}

func (f *fakeFactory) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeAuth struct {
	valid     atomic.Bool
	reauthErr error
	reauths   atomic.Int32
}

func newFakeAuth(valid bool) *fakeAuth {
	a := &fakeAuth{}
	a.valid.Store(valid)
	return a
}

func (a *fakeAuth) IsAuthenticated(context.Context) bool { return a.valid.Load() }

func (a *fakeAuth) Reauthenticate(context.Context) error {
	a.reauths.Add(1)
	if a.reauthErr != nil {
		return a.reauthErr
	}
	a.valid.Store(true)
	return nil
}

func (a *fakeAuth) AccessToken() string { return "token" }

type fakeWindow struct {
	within atomic.Bool
}

func newFakeWindow(within bool) *fakeWindow {
	w := &fakeWindow{}
	w.within.Store(within)
	return w
}

func (w *fakeWindow) GetOperatingWindow(now time.Time) (time.Time, time.Time) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return day.Add(9*time.Hour + 13*time.Minute), day.Add(16 * time.Hour)
}

func (w *fakeWindow) IsWithinWindow(time.Time) bool { return w.within.Load() }

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) NotifySpike(context.Context, models.MSpikeEvent) error {
	return errors.New("not used")
}

func (n *fakeNotifier) NotifyOperator(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *fakeNotifier) Count(substr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.messages {
		if strings.Contains(m, substr) {
			c++
		}
	}
	return c
}
