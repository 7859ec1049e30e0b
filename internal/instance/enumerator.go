// Package instance finds and terminates running copies of the managed executable.
package instance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Instance is a running managed executable, rebuilt from the process table on every call
type Instance struct {
	PID       int32
	StartTime time.Time // zero when the OS did not report it
}

// Process is the subset of a process-table entry the enumerator needs
type Process interface {
	Pid() int32
	Cmdline(ctx context.Context) (string, error)
	CreateTime(ctx context.Context) (int64, error) // milliseconds since the epoch
	Kill(ctx context.Context) error
}

// ProcessSource lists the processes visible to this user
type ProcessSource func(ctx context.Context) ([]Process, error)

// Enumerator matches process command lines against the managed executable's signature
type Enumerator struct {
	Signature      string // e.g. "./wrapper -D 10020 -M 20020"
	ControllerName string // command lines containing this are never instances
	Source         ProcessSource
}

// NewEnumerator creates an enumerator backed by the OS process table
func NewEnumerator(signature, controllerName string) *Enumerator {
	return &Enumerator{
		Signature:      signature,
		ControllerName: controllerName,
		Source:         SystemProcesses,
	}
}

// ListInstances returns the running instances. Listing errors yield an empty
// result; a process whose command line cannot be read is skipped.
func (e *Enumerator) ListInstances(ctx context.Context) []Instance {
	procs, err := e.Source(ctx)
	if err != nil {
		slog.Debug("Failed to list processes", "error", err)
		return nil
	}

	var instances []Instance
	for _, p := range procs {
		cmdline, err := p.Cmdline(ctx)
		if err != nil {
			continue
		}
		if !matchesCommandLine(cmdline, e.Signature, e.ControllerName) {
			continue
		}

		inst := Instance{PID: p.Pid()}
		if ms, err := p.CreateTime(ctx); err == nil && ms > 0 {
			inst.StartTime = time.UnixMilli(ms)
		}
		instances = append(instances, inst)
	}

	return instances
}

// KillMatching force-kills every process whose command line contains pattern.
// It is a best-effort safety net: all errors are ignored. Returns the number
// of processes signalled.
func (e *Enumerator) KillMatching(ctx context.Context, pattern string) int {
	procs, err := e.Source(ctx)
	if err != nil {
		slog.Debug("Failed to list processes for cleanup", "error", err)
		return 0
	}

	killed := 0
	for _, p := range procs {
		cmdline, err := p.Cmdline(ctx)
		if err != nil || !matchesCommandLine(cmdline, pattern, e.ControllerName) {
			continue
		}
		if err := p.Kill(ctx); err != nil {
			slog.Debug("Cleanup kill failed", "pid", p.Pid(), "error", err)
			continue
		}
		killed++
	}
	return killed
}

// matchesCommandLine reports whether cmdline runs the managed executable.
// The controller itself (and its detached relay) never matches.
func matchesCommandLine(cmdline, signature, controllerName string) bool {
	if signature == "" || !strings.Contains(cmdline, signature) {
		return false
	}
	if controllerName != "" && strings.Contains(cmdline, controllerName) {
		return false
	}
	return true
}

// systemProcess adapts gopsutil's process to Process
type systemProcess struct {
	p *process.Process
}

func (s systemProcess) Pid() int32 { return s.p.Pid }

func (s systemProcess) Cmdline(ctx context.Context) (string, error) {
	return s.p.CmdlineWithContext(ctx)
}

func (s systemProcess) CreateTime(ctx context.Context) (int64, error) {
	return s.p.CreateTimeWithContext(ctx)
}

func (s systemProcess) Kill(ctx context.Context) error {
	return s.p.KillWithContext(ctx)
}

// SystemProcesses lists the OS process table through gopsutil
func SystemProcesses(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, systemProcess{p: p})
	}
	return out, nil
}
