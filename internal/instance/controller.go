package instance

import (
	"context"
	"errors"
	"log/slog"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Lister is what the controller needs from an Enumerator
type Lister interface {
	ListInstances(ctx context.Context) []Instance
	KillMatching(ctx context.Context, pattern string) int
}

// Signaller delivers signals to PIDs. Signal 0 probes for existence.
type Signaller interface {
	Signal(pid int32, sig syscall.Signal) error
}

// UnixSignaller signals through kill(2)
type UnixSignaller struct{}

func (UnixSignaller) Signal(pid int32, sig syscall.Signal) error {
	return unix.Kill(int(pid), sig)
}

// Controller implements the status and logout operations on top of a Lister
type Controller struct {
	Lister         Lister
	Signaller      Signaller
	GracePeriod    time.Duration
	CleanupPattern string
	Sleep          func(time.Duration)
}

// NewController creates a controller that signals real processes
func NewController(lister Lister, gracePeriod time.Duration, cleanupPattern string) *Controller {
	return &Controller{
		Lister:         lister,
		Signaller:      UnixSignaller{},
		GracePeriod:    gracePeriod,
		CleanupPattern: cleanupPattern,
		Sleep:          time.Sleep,
	}
}

// IsRunning reports whether any instance is running
func (c *Controller) IsRunning(ctx context.Context) bool {
	instances := c.Lister.ListInstances(ctx)
	if len(instances) > 0 {
		slog.Debug("Found running instances", "count", len(instances))
	}
	return len(instances) > 0
}

// Status returns the running instances and whether there are any
func (c *Controller) Status(ctx context.Context) ([]Instance, bool) {
	instances := c.Lister.ListInstances(ctx)
	return instances, len(instances) > 0
}

// TerminationResult is the final state of one PID during logout
type TerminationResult int

const (
	ResultDead             TerminationResult = iota // terminated, gracefully or forced
	ResultNotFound                                  // already gone before SIGTERM
	ResultPermissionDenied                          // SIGTERM refused, process untouched
	ResultFailed                                    // any other signalling error
)

func (r TerminationResult) String() string {
	switch r {
	case ResultDead:
		return "dead"
	case ResultNotFound:
		return "not found"
	case ResultPermissionDenied:
		return "permission denied"
	default:
		return "failed"
	}
}

// Termination records what happened to one PID
type Termination struct {
	PID    int32
	Result TerminationResult
	Forced bool  // SIGKILL was needed
	Err    error // set for ResultFailed
}

// LogoutReport summarises a logout
type LogoutReport struct {
	Found            int
	Killed           int
	PermissionDenied int
	Failed           int // all failures, permission denied included
	Terminations     []Termination
}

// OK reports whether at least one instance was terminated and nothing failed
func (r LogoutReport) OK() bool {
	return r.Killed > 0 && r.Failed == 0
}

// Logout terminates every running instance: SIGTERM, grace period, SIGKILL
// if still alive. A final pattern-based kill catches stragglers. With no
// instances running nothing is signalled at all.
func (c *Controller) Logout(ctx context.Context) LogoutReport {
	instances := c.Lister.ListInstances(ctx)
	report := LogoutReport{Found: len(instances)}
	if len(instances) == 0 {
		return report
	}

	for _, inst := range instances {
		t := c.terminate(inst.PID)
		report.Terminations = append(report.Terminations, t)

		switch t.Result {
		case ResultDead:
			report.Killed++
		case ResultPermissionDenied:
			report.PermissionDenied++
			report.Failed++
		case ResultFailed:
			report.Failed++
		}
	}

	if c.CleanupPattern != "" {
		n := c.Lister.KillMatching(ctx, c.CleanupPattern)
		slog.Debug("Cleanup pass complete", "pattern", c.CleanupPattern, "killed", n)
	}

	return report
}

func (c *Controller) terminate(pid int32) Termination {
	t := Termination{PID: pid}

	if err := c.Signaller.Signal(pid, syscall.SIGTERM); err != nil {
		switch {
		case errors.Is(err, unix.ESRCH):
			t.Result = ResultNotFound
		case errors.Is(err, unix.EPERM):
			t.Result = ResultPermissionDenied
		default:
			t.Result = ResultFailed
			t.Err = err
		}
		slog.Debug("SIGTERM failed", "pid", pid, "result", t.Result, "error", err)
		return t
	}

	c.Sleep(c.GracePeriod)

	// Still alive after the grace period: force it
	err := c.Signaller.Signal(pid, syscall.Signal(0))
	if err == nil {
		slog.Debug("Process survived SIGTERM, sending SIGKILL", "pid", pid)
		t.Forced = true
		err = c.Signaller.Signal(pid, syscall.SIGKILL)
	}
	if err != nil && !errors.Is(err, unix.ESRCH) {
		t.Result = ResultFailed
		t.Err = err
		return t
	}

	t.Result = ResultDead
	return t
}
