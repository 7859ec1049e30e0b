// Package launcher starts the managed executable and supervises the login
// until it either succeeds and is handed off, fails, or is interrupted.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.olrik.dev/wrapperctl/internal/core"
	"go.olrik.dev/wrapperctl/internal/logfile"
	"go.olrik.dev/wrapperctl/internal/session"
	"go.olrik.dev/wrapperctl/internal/supervisor"
	"golang.org/x/sys/unix"
)

var (
	// ErrLoginFailed means the managed executable rejected the login. The
	// reason has already been shown to the operator.
	ErrLoginFailed = errors.New("login failed")
	// ErrExitedEarly means the managed executable exited before login completed
	ErrExitedEarly = errors.New("managed process exited before login completed")
	// ErrInterrupted means the operator interrupted the login
	ErrInterrupted = errors.New("interrupted by user")
)

// IsReported reports whether err has already been shown to the operator
func IsReported(err error) bool {
	return errors.Is(err, ErrLoginFailed) ||
		errors.Is(err, ErrExitedEarly) ||
		errors.Is(err, ErrInterrupted)
}

// Console is everything the launcher needs from the operator's terminal
type Console interface {
	session.Operator
	PromptCredentials() (string, error)
	Ready(pid int)
	ExitedEarly(err error)
	Interrupted()
	Flush()
}

// DetachFunc hands a successful session off to the background
type DetachFunc func(supervisor.DetachConfig) (int, error)

// Launcher runs one login attempt
type Launcher struct {
	Config  *core.Configuration
	Console Console
	Detach  DetachFunc
	Sleep   func(time.Duration)
	Now     func() time.Time
}

// New creates a launcher that detaches through a re-executed relay process
func New(cfg *core.Configuration, console Console) *Launcher {
	return &Launcher{
		Config:  cfg,
		Console: console,
		Detach:  supervisor.Detach,
		Sleep:   time.Sleep,
		Now:     time.Now,
	}
}

// waiter reaps the managed process exactly once
type waiter struct {
	done chan struct{}
	err  error
}

func waitFor(cmd *exec.Cmd) *waiter {
	w := &waiter{done: make(chan struct{})}
	go func() {
		w.err = cmd.Wait()
		close(w.done)
	}()
	return w
}

// Run checks the environment, prompts for credentials, starts the managed
// executable and relays its login. It returns nil once the session has been
// moved to the background.
func (l *Launcher) Run(ctx context.Context) error {
	cfg := l.Config

	if err := CheckEnvironment(cfg); err != nil {
		return err
	}

	credentials, err := l.Console.PromptCredentials()
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	logw, err := logfile.New(cfg.LogPath())
	if err != nil {
		return err
	}

	h, err := Spawn(cfg, credentials)
	if err != nil {
		return err
	}
	exited := waitFor(h.Cmd)

	// Installed only now so an interrupt at the credential prompt simply ends the program
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay := session.NewRelay(session.Config{
		ID:          uuid.NewString(),
		Output:      h.Output,
		Input:       h.Input,
		Log:         logw,
		Operator:    l.Console,
		CodeLength:  cfg.TwoFactor.CodeLength,
		Placeholder: cfg.TwoFactor.Placeholder,
		Now:         l.Now,
	})

	return l.supervise(ctx, h, exited, relay.Start(), logw.Path())
}

func (l *Launcher) supervise(ctx context.Context, h *Handle, exited *waiter, outcomes <-chan session.Outcome, logPath string) error {
	processDone := exited.done
	var drain <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			l.Console.Interrupted()
			l.terminate(h, exited)
			h.Close()
			return ErrInterrupted

		case <-processDone:
			// Give the relay a moment to read whatever the process wrote last
			slog.Debug("Managed process exited", "pid", h.PID, "error", exited.err)
			processDone = nil
			drain = time.After(l.Config.Timing.InterruptTimeout)

		case <-drain:
			h.Close()
			l.Console.ExitedEarly(exited.err)
			return ErrExitedEarly

		case out := <-outcomes:
			switch out.Kind {
			case session.OutcomeSuccess:
				return l.handoff(h, exited, out, logPath)
			case session.OutcomeFailure:
				slog.Debug("Login failed", "pid", h.PID, "reason", out.State.Failure)
				l.terminate(h, exited)
				h.Close()
				return ErrLoginFailed
			default:
				if out.Err != nil {
					slog.Debug("Managed process output failed", "pid", h.PID, "error", out.Err)
				}
				l.awaitExit(h, exited)
				h.Close()
				l.Console.ExitedEarly(exited.err)
				return ErrExitedEarly
			}
		}
	}
}

// handoff prints the ready banner and moves the session to the background.
// The managed process keeps running; only the foreground's stream copies are
// closed.
func (l *Launcher) handoff(h *Handle, exited *waiter, out session.Outcome, logPath string) error {
	l.Console.Ready(h.PID)
	l.Console.Flush()
	l.Sleep(l.Config.Timing.HandoffDelay)

	relayPID, err := l.Detach(supervisor.DetachConfig{
		LogPath: logPath,
		Output:  h.Output,
		Pending: out.Pending,
		PID:     h.PID,
		Now:     l.Now,
	})
	if err != nil {
		l.terminate(h, exited)
		h.Close()
		return fmt.Errorf("failed to move to background: %w", err)
	}

	slog.Debug("Session handed off", "pid", h.PID, "relay_pid", relayPID)
	h.Close()
	return nil
}

// awaitExit waits a bounded time for a process whose output has ended, then
// terminates it
func (l *Launcher) awaitExit(h *Handle, exited *waiter) {
	select {
	case <-exited.done:
	case <-time.After(l.Config.Timing.InterruptTimeout):
		l.terminate(h, exited)
	}
}

// terminate sends SIGTERM to the managed process group, waits up to the
// interrupt timeout and then sends SIGKILL
func (l *Launcher) terminate(h *Handle, exited *waiter) {
	select {
	case <-exited.done:
		return
	default:
	}

	timeout := l.Config.Timing.InterruptTimeout
	if err := signalGroup(h, syscall.SIGTERM); err != nil {
		slog.Warn("Failed to send SIGTERM to managed process, forcing kill", "pid", h.PID, "error", err)
		timeout = 0
	}

	select {
	case <-exited.done:
		slog.Debug("Managed process terminated gracefully", "pid", h.PID)
		return
	case <-time.After(timeout):
	}

	slog.Warn(fmt.Sprintf("Managed process did not exit within %v, forcing kill", timeout), "pid", h.PID)
	if err := signalGroup(h, syscall.SIGKILL); err != nil {
		slog.Error("Failed to kill managed process", "pid", h.PID, "error", err)
		return
	}

	select {
	case <-exited.done:
	case <-time.After(time.Second):
		slog.Error("Managed process survived SIGKILL", "pid", h.PID)
	}
}

// signalGroup signals the whole session the process leads, falling back to
// the process itself
func signalGroup(h *Handle, sig syscall.Signal) error {
	if err := unix.Kill(-h.PID, sig); err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	if err := h.Cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
