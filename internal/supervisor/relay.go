package supervisor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.olrik.dev/wrapperctl/internal/logfile"
)

// RelayConfig configures the background side of a handoff
type RelayConfig struct {
	LogPath string
	PID     int           // managed process, for log records only
	Input   io.ReadCloser // inherited output stream of the managed process
	Now     func() time.Time
}

// RunRelay appends every line from Input to the log file until the stream
// ends or ctx is cancelled. It returns the number of lines written.
func RunRelay(ctx context.Context, cfg RelayConfig) (int, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logw, err := logfile.New(cfg.LogPath)
	if err != nil {
		return 0, err
	}

	slog.Debug("Relay attached", "pid", cfg.PID, "log", logw.Path())

	stop := context.AfterFunc(ctx, func() {
		cfg.Input.Close()
	})
	defer stop()

	reader := bufio.NewReader(cfg.Input)
	lines := 0
	for {
		raw, err := reader.ReadString('\n')
		if raw != "" {
			if err := logw.Append(cfg.Now(), strings.TrimSpace(raw)); err != nil {
				slog.Warn("Failed to append to log file", "error", err)
			} else {
				lines++
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				// EIO from a PTY master also means the child is gone
				slog.Debug("Relay read ended", "error", err)
			}
			break
		}
	}

	slog.Debug("Relay detached, managed process output closed", "pid", cfg.PID, "lines", lines)
	return lines, nil
}
