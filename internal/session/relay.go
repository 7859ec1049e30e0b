package session

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Operator is the human side of the relay
type Operator interface {
	Echo(ts time.Time, line string)
	PromptTwoFactorCode() (string, error)
	TwoFactorFailed()
	TwoFactorVerified()
	LoginFailed()
	AccountDisabled()
	LoginRejected()
}

// LineLogger receives every line read from the managed executable
type LineLogger interface {
	Append(ts time.Time, line string) error
}

// OutcomeKind tells the controlling flow how the relay ended
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota // authenticated and stream ready, hand off
	OutcomeFailure                    // authentication failed, terminate the child
	OutcomeExited                     // output ended before a terminal state
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "exited"
	}
}

// Outcome is sent once by Relay when it stops reading
type Outcome struct {
	Kind    OutcomeKind
	State   State
	Pending []byte // bytes read past the final line, success only
	Err     error  // read error other than io.EOF, exited only
}

// Config configures a Relay
type Config struct {
	ID          string    // Session ID attached to log records
	Output      io.Reader // Combined stdout/stderr of the managed executable
	Input       io.Writer // Stdin of the managed executable
	Log         LineLogger
	Operator    Operator
	CodeLength  int
	Placeholder string
	Now         func() time.Time
}

// Relay consumes the managed executable's output one line at a time
type Relay struct {
	cfg    Config
	state  State
	logger *slog.Logger
}

// NewRelay creates a relay. Now defaults to time.Now.
func NewRelay(cfg Config) *Relay {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Relay{
		cfg:    cfg,
		logger: slog.With("session", cfg.ID),
	}
}

// Start runs the relay on its own goroutine. The returned channel receives
// exactly one Outcome.
func (r *Relay) Start() <-chan Outcome {
	done := make(chan Outcome, 1)
	go func() {
		done <- r.Run()
	}()
	return done
}

// Run reads until a terminal state or end of stream
func (r *Relay) Run() Outcome {
	reader := bufio.NewReader(r.cfg.Output)

	for {
		raw, err := reader.ReadString('\n')
		if raw != "" {
			r.handleLine(strings.TrimSpace(raw))

			switch r.state.Terminal {
			case TerminalSuccess:
				return Outcome{Kind: OutcomeSuccess, State: r.state, Pending: pending(reader)}
			case TerminalFailure:
				return Outcome{Kind: OutcomeFailure, State: r.state}
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			// A PTY master returns EIO once the child has gone; that is still end of stream
			r.logger.Debug("Managed process output ended", "error", err)
			return Outcome{Kind: OutcomeExited, State: r.state, Err: err}
		}
	}
}

// State returns the current session state. Only safe once Run has returned.
func (r *Relay) State() State {
	return r.state
}

func (r *Relay) handleLine(line string) {
	ts := r.cfg.Now()

	if r.state.Echo() {
		r.cfg.Operator.Echo(ts, line)
	}
	if err := r.cfg.Log.Append(ts, line); err != nil {
		r.logger.Warn("Failed to append to log file", "error", err)
	}

	next, fx := Classify(r.state, line)
	if next.Terminal != r.state.Terminal {
		r.logger.Debug("Session reached terminal state", "terminal", next.Terminal, "failure", next.Failure)
	}
	r.state = next
	r.apply(fx)
}

func (r *Relay) apply(fx Effects) {
	if fx.TwoFactorFailed {
		r.cfg.Operator.TwoFactorFailed()
	}
	if fx.TwoFactorVerified {
		r.cfg.Operator.TwoFactorVerified()
	}

	switch fx.Report {
	case FailureLoginFailed:
		r.cfg.Operator.LoginFailed()
	case FailureAccountDisabled:
		r.cfg.Operator.AccountDisabled()
	case FailureRejected:
		r.cfg.Operator.LoginRejected()
	}

	if fx.PromptTwoFactor {
		r.relayTwoFactorCode()
	}
}

func (r *Relay) relayTwoFactorCode() {
	input, err := r.cfg.Operator.PromptTwoFactorCode()
	if err != nil {
		r.logger.Debug("Failed to read 2FA code, sending placeholder", "error", err)
	}

	code := NormalizeCode(input, r.cfg.CodeLength, r.cfg.Placeholder)
	if code != input {
		r.logger.Debug("2FA code has the wrong length, sending placeholder")
	}

	if _, err := io.WriteString(r.cfg.Input, code+"\n"); err != nil {
		r.logger.Warn("Failed to write 2FA code to managed process", "error", err)
		return
	}
	if f, ok := r.cfg.Input.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			r.logger.Warn("Failed to flush 2FA code to managed process", "error", err)
		}
	}
}

func pending(reader *bufio.Reader) []byte {
	n := reader.Buffered()
	if n == 0 {
		return nil
	}
	buf, _ := reader.Peek(n)
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}
