// Package supervisor moves an authenticated session into the background.
//
// Detach re-executes the controller binary as a relay process in its own
// session. The relay inherits the managed executable's output stream as fd 3
// and keeps draining it into the log file after the foreground controller
// has exited, so the managed executable never blocks on a full pipe.
package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.olrik.dev/wrapperctl/internal/logfile"
)

const (
	// EnvRelayLog carries the log file path; its presence makes main run the relay
	EnvRelayLog = "WRAPPERCTL_RELAY_LOG"
	// EnvRelayPID carries the managed process's PID for the relay's own records
	EnvRelayPID = "WRAPPERCTL_RELAY_PID"

	// relayFD is where ExtraFiles[0] lands in the child
	relayFD = 3
)

// DetachConfig describes the session being handed off
type DetachConfig struct {
	LogPath    string
	Output     *os.File // managed process output, handed to the relay as fd 3
	Pending    []byte   // output already read by the foreground but not yet logged
	PID        int      // managed process
	Executable string   // relay binary, defaults to os.Executable()
	Now        func() time.Time
}

// Detach starts the background relay and returns its PID. The relay's stdin
// is /dev/null and its stdout/stderr are appended to the log file. The
// handle is released right away, so the caller may exit immediately.
func Detach(cfg DetachConfig) (int, error) {
	if cfg.Output == nil {
		return 0, fmt.Errorf("no output stream to hand off")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logw, err := logfile.New(cfg.LogPath)
	if err != nil {
		return 0, err
	}

	logPending(logw, cfg.Pending, cfg.Now())

	exe := cfg.Executable
	if exe == "" {
		exe, err = os.Executable()
		if err != nil {
			return 0, fmt.Errorf("failed to get executable path: %w", err)
		}
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	logFile, err := logw.OpenAppend()
	if err != nil {
		return 0, err
	}
	defer logFile.Close()

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("%s=%s", EnvRelayLog, logw.Path()),
		fmt.Sprintf("%s=%d", EnvRelayPID, cfg.PID),
	)
	cmd.Stdin = devNull
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.ExtraFiles = []*os.File{cfg.Output}

	// New session: no controlling terminal, no SIGHUP when the operator's shell goes away
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start relay: %w", err)
	}

	pid := cmd.Process.Pid
	slog.Debug("Started background relay", "relay_pid", pid, "pid", cfg.PID, "log", logw.Path())

	if err := cmd.Process.Release(); err != nil {
		slog.Debug("Failed to release relay process", "relay_pid", pid, "error", err)
	}

	return pid, nil
}

// logPending writes output the foreground read past the success line
func logPending(logw *logfile.Writer, pending []byte, ts time.Time) {
	if len(pending) == 0 {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(string(pending), "\r\n"), "\n") {
		if err := logw.Append(ts, strings.TrimSpace(line)); err != nil {
			slog.Warn("Failed to append to log file", "error", err)
			return
		}
	}
}

// RelayEnv reads the relay settings passed by Detach. ok is false when the
// process was not started as a relay.
func RelayEnv() (logPath string, pid int, ok bool) {
	logPath = os.Getenv(EnvRelayLog)
	if logPath == "" {
		return "", 0, false
	}
	pid, _ = strconv.Atoi(os.Getenv(EnvRelayPID))
	return logPath, pid, true
}

// InheritedOutput returns the output stream handed over by Detach
func InheritedOutput() *os.File {
	return os.NewFile(uintptr(relayFD), "managed-output")
}
