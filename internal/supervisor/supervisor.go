package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rathix/sitefront/internal/health"
)

// ProcessState is the lifecycle state of one site's dev server.
type ProcessState string

const (
	StateNotStarted ProcessState = "notStarted"
	StateStarting   ProcessState = "starting"
	StateHealthy    ProcessState = "healthy"
	StateUnhealthy  ProcessState = "unhealthy"
	StateStopped    ProcessState = "stopped"
	StateCrashed    ProcessState = "crashed"
)

// Supervisor owns the lifecycle of one dev server: launching its command,
// driving the health probe loop, and publishing the current ProcessState.
// The supervisor loop is the single writer of the state slot; any number
// of dispatcher calls read it through Current and WaitUntilHealthy.
type Supervisor struct {
	target  string
	command []string
	workDir string

	spawner        Spawner
	checker        *health.Checker
	startupTimeout time.Duration
	startupPoll    time.Duration
	interval       time.Duration
	probeTimeout   time.Duration
	logger         *slog.Logger

	mu       sync.Mutex
	state    ProcessState
	cause    error
	changed  chan struct{}
	launched bool
	proc     Process
	cancel   context.CancelFunc
	done     chan struct{}
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithSpawner sets the process-spawn capability.
func WithSpawner(sp Spawner) Option {
	return func(s *Supervisor) { s.spawner = sp }
}

// WithProber sets the HTTP client used for health probes.
func WithProber(p health.HTTPProber) Option {
	return func(s *Supervisor) { s.checker = health.NewChecker(p) }
}

// WithStartupTimeout bounds how long the supervisor keeps probing after
// launch before settling in Unhealthy.
func WithStartupTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.startupTimeout = d }
}

// WithStartupPoll sets the probe cadence during startup (for testing).
func WithStartupPoll(d time.Duration) Option {
	return func(s *Supervisor) { s.startupPoll = d }
}

// WithHealthInterval sets the steady-state probe interval.
func WithHealthInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.interval = d }
}

// WithProbeTimeout bounds each individual probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.probeTimeout = d }
}

// New creates a supervisor for one dev server. target is the URL probed
// for health and proxied to. command is optional: when empty the dev
// server is assumed to be managed externally and only the probe loop runs.
func New(target string, command []string, workDir string, opts ...Option) *Supervisor {
	s := &Supervisor{
		target:         target,
		command:        command,
		workDir:        workDir,
		startupTimeout: 30 * time.Second,
		startupPoll:    500 * time.Millisecond,
		interval:       5 * time.Second,
		probeTimeout:   3 * time.Second,
		state:          StateNotStarted,
		changed:        make(chan struct{}),
		done:           make(chan struct{}),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.spawner == nil {
		s.spawner = &ExecSpawner{Logger: s.logger}
	}
	if s.checker == nil {
		s.checker = health.NewChecker(nil)
	}
	return s
}

// Target returns the dev server URL this supervisor probes.
func (s *Supervisor) Target() string {
	return s.target
}

// EnsureStarted launches the dev server and its probe loop. It is
// idempotent: once a launch attempt exists, later calls (including
// concurrent first requests) observe the in-flight attempt and return
// immediately.
func (s *Supervisor) EnsureStarted() {
	s.mu.Lock()
	if s.launched || s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	s.launched = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
}

// Current returns a non-blocking snapshot of the latest known state.
func (s *Supervisor) Current() ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cause returns the recorded failure cause, set when the supervisor
// transitions to Crashed.
func (s *Supervisor) Cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// WaitUntilHealthy blocks while the dev server is still starting, up to
// ctx's deadline. It returns the first Healthy observation, a settled
// Unhealthy/Crashed/Stopped immediately, or the current snapshot once the
// deadline elapses. Abandoning the wait never affects the supervisor.
func (s *Supervisor) WaitUntilHealthy(ctx context.Context) ProcessState {
	for {
		s.mu.Lock()
		state := s.state
		changed := s.changed
		s.mu.Unlock()

		switch state {
		case StateHealthy, StateUnhealthy, StateCrashed, StateStopped:
			return state
		}

		select {
		case <-ctx.Done():
			return s.Current()
		case <-changed:
		}
	}
}

// Shutdown terminates the dev server if running and settles in Stopped.
// Idempotent; called once at process exit.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.state == StateStopped {
		s.mu.Unlock()
		return
	}
	prev := s.state
	s.state = StateStopped
	close(s.changed)
	s.changed = make(chan struct{})
	cancel := s.cancel
	proc := s.proc
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if proc != nil {
		if err := proc.Kill(); err != nil {
			s.logger.Warn("failed to kill dev server", "target", s.target, "error", err)
		}
	}
	s.logger.Info("dev server stopped", "target", s.target, "from", string(prev))
}

// run is the supervisor loop: launch, startup probing, steady probing.
// It is the only writer of ProcessState besides Shutdown.
func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)

	if len(s.command) > 0 {
		proc, err := s.spawner.Spawn(s.command, s.workDir)
		if err != nil {
			s.transition(StateCrashed, fmt.Errorf("failed to launch %q: %w", strings.Join(s.command, " "), err))
			return
		}
		s.mu.Lock()
		if s.state == StateStopped {
			// Shutdown raced the launch; don't leak the child.
			s.mu.Unlock()
			proc.Kill()
			return
		}
		s.proc = proc
		s.mu.Unlock()
		s.logger.Info("dev server launched", "command", strings.Join(s.command, " "), "dir", s.workDir, "target", s.target)

		go func() {
			err := proc.Wait()
			s.onExit(ctx, err)
		}()
	}

	s.transition(StateStarting, nil)

	if !s.awaitStartup(ctx) {
		return
	}
	s.probeLoop(ctx)
}

// awaitStartup probes until the dev server answers or the startup timeout
// elapses. It returns false when the loop should stop entirely.
func (s *Supervisor) awaitStartup(ctx context.Context) bool {
	deadline := time.Now().Add(s.startupTimeout)
	ticker := time.NewTicker(s.startupPoll)
	defer ticker.Stop()

	for {
		if s.terminal() {
			return false
		}
		if err := s.probe(ctx); err == nil {
			s.transition(StateHealthy, nil)
			return true
		} else if ctx.Err() != nil {
			return false
		} else {
			s.logger.Debug("startup probe failed", "target", s.target, "error", err)
		}
		if time.Now().After(deadline) {
			s.transition(StateUnhealthy, nil)
			s.logger.Warn("dev server did not become healthy within startup timeout",
				"target", s.target, "timeout", s.startupTimeout)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// probeLoop keeps probing at the health interval for the life of the
// process. A single failure flips Unhealthy immediately; a later success
// flips back to Healthy.
func (s *Supervisor) probeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.terminal() {
			return
		}
		if err := s.probe(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.transition(StateUnhealthy, nil)
		} else {
			s.transition(StateHealthy, nil)
		}
	}
}

func (s *Supervisor) probe(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()
	return s.checker.Probe(pctx, s.target)
}

// onExit handles the child process exiting. During shutdown this is
// expected; otherwise the dev server died on its own and the supervisor
// settles in Crashed without relaunching.
func (s *Supervisor) onExit(ctx context.Context, err error) {
	if ctx.Err() != nil || s.Current() == StateStopped {
		return
	}
	cause := fmt.Errorf("dev server exited unexpectedly")
	if err != nil {
		cause = fmt.Errorf("dev server exited unexpectedly: %w", err)
	}
	s.transition(StateCrashed, cause)
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// transition swaps the state slot and wakes waiters. Terminal states are
// sticky: Crashed only yields to Stopped, Stopped to nothing.
func (s *Supervisor) transition(next ProcessState, cause error) {
	s.mu.Lock()
	prev := s.state
	if prev == next || prev == StateStopped || (prev == StateCrashed && next != StateStopped) {
		s.mu.Unlock()
		return
	}
	s.state = next
	if cause != nil {
		s.cause = cause
	}
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("dev server state changed",
		"target", s.target,
		"from", string(prev),
		"to", string(next),
	)
	if cause != nil {
		s.logger.Error("dev server failed", "target", s.target, "error", cause)
	}
}

func (s *Supervisor) terminal() bool {
	switch s.Current() {
	case StateStopped, StateCrashed:
		return true
	}
	return false
}
