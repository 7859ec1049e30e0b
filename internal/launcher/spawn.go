package launcher

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"go.olrik.dev/wrapperctl/internal/core"
)

// Handle owns the managed process and the controller's ends of its streams
type Handle struct {
	Cmd    *exec.Cmd
	PID    int
	Output *os.File // combined stdout/stderr (pipe read end or PTY master)
	Input  *os.File // stdin (pipe write end or PTY master)
}

// Close releases the controller's copies of the streams. The process itself
// is not signalled.
func (h *Handle) Close() {
	if h.Input != nil {
		h.Input.Close()
	}
	if h.Output != nil && h.Output != h.Input {
		h.Output.Close()
	}
}

// Spawn starts the managed executable in its own session with the given
// "username:password" credentials
func Spawn(cfg *core.Configuration, credentials string) (*Handle, error) {
	cmd := exec.Command(cfg.Wrapper.Executable, cfg.Args(credentials)...)
	cmd.Dir = cfg.Wrapper.Dir
	cmd.Env = os.Environ()

	var (
		h   *Handle
		err error
	)
	switch cfg.Transport {
	case core.TransportPTY:
		h, err = startPTY(cmd)
	default:
		h, err = startPipe(cmd)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cfg.Wrapper.Executable, err)
	}

	slog.Debug("Started managed process", "pid", h.PID, "transport", cfg.Transport, "dir", cmd.Dir)
	return h, nil
}

// startPipe connects stdin to one pipe and both stdout and stderr to another
func startPipe(cmd *exec.Cmd) (*Handle, error) {
	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, err
	}

	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = outW
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	err = cmd.Start()

	// The child has its own copies now
	inR.Close()
	outW.Close()

	if err != nil {
		inW.Close()
		outR.Close()
		return nil, err
	}

	return &Handle{Cmd: cmd, PID: cmd.Process.Pid, Output: outR, Input: inW}, nil
}

// startPTY runs the child on a pseudo-terminal so it line-buffers its output.
// Echo is switched off so relayed input does not show up as output.
func startPTY(cmd *exec.Cmd) (*Handle, error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, err
	}

	if err := disableEcho(tty); err != nil {
		slog.Debug("Could not disable PTY echo", "error", err)
	}

	cmd.Stdin = tty
	cmd.Stdout = tty
	cmd.Stderr = tty
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	err = cmd.Start()
	tty.Close()
	if err != nil {
		ptmx.Close()
		return nil, err
	}

	return &Handle{Cmd: cmd, PID: cmd.Process.Pid, Output: ptmx, Input: ptmx}, nil
}
