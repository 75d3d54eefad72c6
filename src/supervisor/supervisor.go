package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"volume-spike-detector/src/helpers"
	"volume-spike-detector/src/interfaces"
	"volume-spike-detector/src/logger"
	"volume-spike-detector/src/models"
	"volume-spike-detector/src/observability"
	"volume-spike-detector/src/utils"
)

type State string

const (
	StateIdle             State = "IDLE"
	StateWaitingForWindow State = "WAITING_FOR_WINDOW"
	StateStarting         State = "STARTING"
	StateRunning          State = "RUNNING"
	StateStopping         State = "STOPPING"
)

var allStates = []string{
	string(StateIdle),
	string(StateWaitingForWindow),
	string(StateStarting),
	string(StateRunning),
	string(StateStopping),
}

type command int

const (
	cmdStart command = iota
	cmdStop
	cmdRestart
)

const (
	operatorNotifyTimeout = 10 * time.Second
	commandQueueSize      = 16
)

// activeSession is the one session currently owned by the supervisor.
type activeSession struct {
	sess      interfaces.ISession
	cancel    context.CancelFunc
	finished  chan struct{}
	err       error
	startedAt time.Time
}

// -----------------------------------------------------------------------------

// SessionSupervisor owns the lifecycle of the streaming session:
// IDLE -> STARTING -> RUNNING -> STOPPING -> IDLE, plus WAITING_FOR_WINDOW
// outside operating hours. At most one session exists at a time.
type SessionSupervisor struct {
	Config            models.MSupervisorConfig
	SchedulingEnabled bool
	Factory           interfaces.ISessionFactory
	Window            interfaces.IOperatingWindow
	Auth              interfaces.IAuthenticator
	Notifier          interfaces.INotifier
	Backoff           helpers.BackoffPolicy
	Limiter           *RestartLimiter
	Clock             utils.Clock
	Metrics           *observability.Metrics
	Logger            *logger.Logger

	commands chan command
	wake     chan struct{}

	mu             sync.Mutex
	state          State
	override       bool
	held           bool
	withinWindow   bool
	session        *activeSession
	lastAuthCheck  time.Time
	lastError      string
	lastTransition time.Time
	starts         int
	failures       int
	failureNotice  string // cause already reported in the current failure streak
	marketEndSent  string
}

// -----------------------------------------------------------------------------

func NewSessionSupervisor(
	cfg *models.MConfig,
	factory interfaces.ISessionFactory,
	window interfaces.IOperatingWindow,
	auth interfaces.IAuthenticator,
	notifier interfaces.INotifier,
	metrics *observability.Metrics,
	log *logger.Logger,
) *SessionSupervisor {
	sc := cfg.Supervisor
	s := &SessionSupervisor{
		Config:            sc,
		SchedulingEnabled: cfg.Schedule.Enabled,
		Factory:           factory,
		Window:            window,
		Auth:              auth,
		Notifier:          notifier,
		Backoff:           helpers.FixedBackoff{Interval: seconds(sc.RetryDelaySeconds, 10)},
		Limiter: NewRestartLimiter(
			sc.MaxRestarts,
			seconds(sc.RestartWindowSeconds, 300),
			seconds(sc.RestartPauseSeconds, 300),
		),
		Clock:    utils.SystemClock{},
		Metrics:  metrics,
		Logger:   log,
		commands: make(chan command, commandQueueSize),
		wake:     make(chan struct{}, 1),
		state:    StateIdle,
	}
	return s
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// -----------------------------------------------------------------------------
// Control surface
// -----------------------------------------------------------------------------

// RequestStart forces a start, bypassing the operating window. It returns
// helpers.ErrAlreadyRunning when a session is starting, running or stopping.
func (s *SessionSupervisor) RequestStart() error {
	s.mu.Lock()
	active := isActive(s.state)
	s.mu.Unlock()
	if active {
		return helpers.ErrAlreadyRunning
	}
	return s.enqueue(cmdStart)
}

// RequestStop stops the session and holds auto-start until the next start.
func (s *SessionSupervisor) RequestStop() error {
	return s.enqueue(cmdStop)
}

// RequestRestart stops any session and starts a new one with override.
func (s *SessionSupervisor) RequestRestart() error {
	return s.enqueue(cmdRestart)
}

// -----------------------------------------------------------------------------

func (s *SessionSupervisor) enqueue(c command) error {
	select {
	case s.commands <- c:
		s.signal()
		return nil
	default:
		return errors.New("supervisor control queue full")
	}
}

func (s *SessionSupervisor) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// -----------------------------------------------------------------------------

// Status returns a point-in-time snapshot.
func (s *SessionSupervisor) Status() models.MSupervisorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := models.MSupervisorStatus{
		State:          string(s.state),
		Override:       s.override,
		Held:           s.held,
		WithinWindow:   s.withinWindow,
		Restarts:       s.starts,
		LastError:      s.lastError,
		LastTransition: s.lastTransition,
	}
	if s.session != nil {
		st.SessionStartedAt = s.session.startedAt
	}
	return st
}

// State returns the current state.
func (s *SessionSupervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// -----------------------------------------------------------------------------
// Loop
// -----------------------------------------------------------------------------

// Run drives Step until ctx is cancelled, then stops any session.
func (s *SessionSupervisor) Run(ctx context.Context) {
	s.Logger.Info("Supervisor loop started (scheduling enabled: %v)", s.SchedulingEnabled)

	for {
		if ctx.Err() != nil {
			s.Logger.Info("Supervisor shutting down")
			_ = s.StopSession(context.Background(), "shutdown")
			return
		}

		delay := s.safeStep(ctx)

		select {
		case <-ctx.Done():
		case <-s.Clock.After(delay):
		case <-s.wake:
		}
	}
}

// -----------------------------------------------------------------------------

// safeStep never lets a panic escape the loop.
func (s *SessionSupervisor) safeStep(ctx context.Context) time.Duration {
	var delay time.Duration
	err := helpers.SafeRun(s.Logger, "supervisor step", func() error {
		delay = s.Step(ctx)
		return nil
	})
	if err != nil {
		s.recordError(err)
		s.mu.Lock()
		if s.session == nil {
			s.setStateLocked(StateIdle)
		}
		s.mu.Unlock()
		return seconds(s.Config.ErrorDelaySeconds, 10)
	}
	return delay
}

// -----------------------------------------------------------------------------

// Step runs one supervision cycle and returns how long to wait before the next.
func (s *SessionSupervisor) Step(ctx context.Context) time.Duration {
	// 1. Operator commands
	s.drainCommands(ctx)

	// 2. A session that ended on its own is torn down before anything else
	s.reapFinished(ctx)

	// 3. Schedule gate
	now := s.Clock.Now()
	within := !s.SchedulingEnabled || s.Window.IsWithinWindow(now)

	s.mu.Lock()
	s.withinWindow = within
	if within {
		// Normal schedule takes over from a forced start
		s.override = false
	}
	override, held, running := s.override, s.held, s.session != nil
	s.mu.Unlock()

	if !within && !override {
		if running {
			s.Logger.Info("Outside operating window, stopping session")
			_ = s.StopSession(ctx, "window closed")
			s.notifyMarketEnd(now)
		}
		s.setState(StateWaitingForWindow)
		return seconds(s.Config.WindowPollSeconds, 60)
	}

	// 4. Operator hold
	if held {
		if !running {
			s.setState(StateIdle)
		}
		return seconds(s.Config.RunningPollSeconds, 30)
	}

	// 5. Start when nothing is running
	if !running {
		return s.startCycle(ctx)
	}

	// 6. Periodic auth validation
	if now.Sub(s.authCheckedAt()) >= seconds(s.Config.AuthCheckIntervalSeconds, 3600) {
		s.mu.Lock()
		s.lastAuthCheck = now
		s.mu.Unlock()

		s.Logger.Info("Performing periodic auth check")
		if !s.Auth.IsAuthenticated(ctx) {
			s.Logger.Warning("Access token expired, reconnecting")
			_ = s.StopSession(ctx, "auth expired")
			return s.startCycle(ctx)
		}
	}

	return seconds(s.Config.RunningPollSeconds, 30)
}

// -----------------------------------------------------------------------------

// startCycle makes one start attempt subject to the restart limiter.
func (s *SessionSupervisor) startCycle(ctx context.Context) time.Duration {
	now := s.Clock.Now()
	if ok, wait := s.Limiter.Allow(now); !ok {
		s.Logger.Warning("Restart limit reached, pausing starts for %s", wait)
		s.recordError(helpers.ErrRestartLimited)
		s.setState(StateIdle)
		s.notifyOperator(fmt.Sprintf("<b>Detector paused</b>\nRestart limit reached, next attempt in %s", wait.Round(time.Second)))
		return wait
	}

	err := s.StartSession(ctx)
	switch {
	case err == nil:
		s.mu.Lock()
		s.failures = 0
		s.failureNotice = ""
		s.mu.Unlock()
		return seconds(s.Config.RunningPollSeconds, 30)
	case errors.Is(err, helpers.ErrAlreadyRunning):
		return seconds(s.Config.RunningPollSeconds, 30)
	}

	s.mu.Lock()
	s.failures++
	attempt := s.failures
	s.mu.Unlock()
	return s.Backoff.Next(attempt)
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// StartSession authenticates, builds a session and launches it. On failure
// the supervisor is left IDLE.
func (s *SessionSupervisor) StartSession(ctx context.Context) error {
	s.mu.Lock()
	if isActive(s.state) || s.session != nil {
		s.mu.Unlock()
		return helpers.ErrAlreadyRunning
	}
	s.setStateLocked(StateStarting)
	s.mu.Unlock()

	now := s.Clock.Now()
	s.Limiter.Record(now)
	s.Logger.Info("Starting session")

	// 1. Auth gate
	if !s.Auth.IsAuthenticated(ctx) {
		if err := s.Auth.Reauthenticate(ctx); err != nil {
			return s.failStart("auth", err)
		}
	}

	// 2. Connect and subscribe
	sess, err := s.Factory.NewSession(ctx)
	if err != nil {
		return s.failStart("feed", err)
	}

	// 3. Launch
	runCtx, cancel := context.WithCancel(ctx)
	as := &activeSession{
		sess:      sess,
		cancel:    cancel,
		finished:  make(chan struct{}),
		startedAt: now,
	}
	go func() {
		defer s.signal()
		defer close(as.finished)
		as.err = helpers.SafeRun(s.Logger, "session", func() error {
			return sess.Run(runCtx)
		})
	}()

	s.mu.Lock()
	s.session = as
	s.lastAuthCheck = now
	s.starts++
	s.setStateLocked(StateRunning)
	s.mu.Unlock()

	if s.Metrics != nil {
		s.Metrics.SessionStarts.Inc()
	}
	s.Logger.Info("Session running")
	s.notifyOperator("<b>Volume Spike Detector started</b>")
	return nil
}

// -----------------------------------------------------------------------------

func (s *SessionSupervisor) failStart(cause string, err error) error {
	s.Logger.Error("Session start failed (%s): %v", cause, err)
	s.recordError(err)
	s.setState(StateIdle)

	if s.Metrics != nil {
		s.Metrics.SessionFailures.WithLabelValues(cause).Inc()
	}

	// One notice per cause until a start succeeds or the operator retries
	s.mu.Lock()
	repeat := s.failureNotice == cause
	s.failureNotice = cause
	s.mu.Unlock()
	if repeat {
		return err
	}

	msg := fmt.Sprintf("<b>Detector start failed</b>\n%v", err)
	if errors.Is(err, helpers.ErrTokenExpired) {
		msg = "<b>Re-authentication required</b>\nInstall a fresh access token to resume monitoring"
	}
	s.notifyOperator(msg)
	return err
}

// -----------------------------------------------------------------------------

// StopSession cancels the session and tears it down. Waiting for Run to
// return and for Close share one stop grace deadline; past it the supervisor
// moves on, logs an unclean shutdown and leaves Close running in the
// background. The supervisor always ends IDLE.
func (s *SessionSupervisor) StopSession(ctx context.Context, reason string) error {
	s.mu.Lock()
	as := s.session
	if as == nil {
		if s.state != StateWaitingForWindow {
			s.setStateLocked(StateIdle)
		}
		s.mu.Unlock()
		return helpers.ErrNotRunning
	}
	s.setStateLocked(StateStopping)
	s.mu.Unlock()

	s.Logger.Info("Stopping session: %s", reason)
	deadline := s.Clock.After(seconds(s.Config.StopGraceSeconds, 2))
	as.cancel()

	clean := true
	select {
	case <-as.finished:
	case <-deadline:
		clean = false
	case <-ctx.Done():
		clean = false
	}

	closed := make(chan error, 1)
	go func() {
		closed <- helpers.SafeRun(s.Logger, "session close", as.sess.Close)
	}()

	if clean {
		select {
		case err := <-closed:
			if err != nil {
				s.Logger.Error("Session teardown failed: %v", err)
			}
		case <-deadline:
			clean = false
		case <-ctx.Done():
			clean = false
		}
	}
	if !clean {
		s.Logger.Warning("Session teardown exceeded grace period, unclean shutdown")
	}

	s.mu.Lock()
	s.session = nil
	s.setStateLocked(StateIdle)
	s.mu.Unlock()

	if s.Metrics != nil {
		s.Metrics.SessionStops.WithLabelValues(reason).Inc()
	}
	s.notifyOperator(fmt.Sprintf("<b>Volume Spike Detector stopped</b>\nReason: %s", reason))
	return nil
}

// -----------------------------------------------------------------------------

func (s *SessionSupervisor) reapFinished(ctx context.Context) {
	s.mu.Lock()
	as := s.session
	s.mu.Unlock()
	if as == nil {
		return
	}

	select {
	case <-as.finished:
	default:
		return
	}

	if as.err != nil {
		s.Logger.Error("Session ended: %v", as.err)
		s.recordError(as.err)
	} else {
		s.Logger.Warning("Session ended without error")
	}
	_ = s.StopSession(ctx, "feed closed")
}

// -----------------------------------------------------------------------------

func (s *SessionSupervisor) drainCommands(ctx context.Context) {
	for {
		select {
		case c := <-s.commands:
			s.handle(ctx, c)
		default:
			return
		}
	}
}

func (s *SessionSupervisor) handle(ctx context.Context, c command) {
	switch c {
	case cmdStart:
		s.Logger.Info("Operator start requested")
		s.mu.Lock()
		s.held, s.override = false, true
		s.failureNotice = ""
		s.mu.Unlock()
		s.Limiter.Reset()

	case cmdStop:
		s.Logger.Info("Operator stop requested")
		s.mu.Lock()
		s.held, s.override = true, false
		s.mu.Unlock()
		_ = s.StopSession(ctx, "operator stop")

	case cmdRestart:
		s.Logger.Info("Operator restart requested")
		_ = s.StopSession(ctx, "operator restart")
		s.mu.Lock()
		s.held, s.override = false, true
		s.failureNotice = ""
		s.mu.Unlock()
		s.Limiter.Reset()
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func isActive(st State) bool {
	return st == StateStarting || st == StateRunning || st == StateStopping
}

func (s *SessionSupervisor) authCheckedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuthCheck
}

func (s *SessionSupervisor) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(st)
}

func (s *SessionSupervisor) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.Logger.Debug("Supervisor %s -> %s", s.state, st)
	s.state = st
	s.lastTransition = s.Clock.Now()
	if s.Metrics != nil {
		s.Metrics.SetState(string(st), allStates)
	}
}

func (s *SessionSupervisor) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err.Error()
}

// -----------------------------------------------------------------------------

// notifyMarketEnd sends the end-of-session message at most once per day.
func (s *SessionSupervisor) notifyMarketEnd(now time.Time) {
	start, _ := s.Window.GetOperatingWindow(now)
	day := start.Format("2006-01-02")

	s.mu.Lock()
	if s.marketEndSent == day {
		s.mu.Unlock()
		return
	}
	s.marketEndSent = day
	s.mu.Unlock()

	s.notifyOperator(fmt.Sprintf("<b>Market Session Ended</b>\n%s\nMonitoring paused until the next session", start.Format("02-01-2006")))
}

func (s *SessionSupervisor) notifyOperator(msg string) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), operatorNotifyTimeout)
		defer cancel()
		if err := s.Notifier.NotifyOperator(ctx, msg); err != nil {
			s.Logger.Warning("Operator notification failed: %v", err)
		}
	}()
}
