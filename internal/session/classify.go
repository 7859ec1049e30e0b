// Package session interprets the managed executable's output during login.
//
// Classify is a pure transition over State for one line of output. Relay is
// the sequential consumer that reads the output stream, logs and echoes each
// line, applies Classify and carries out the resulting effects (prompting the
// operator, writing the 2FA code to the executable's stdin, reporting).
package session

import (
	"strconv"
	"strings"
)

// Markers recognised in the managed executable's output
const (
	MarkerTwoFactor    = "2FA: true"                  // literal, case-sensitive
	MarkerResponseType = "response type"              // case-insensitive
	MarkerStreamReady  = "listening m3u8 request on" // case-insensitive
	MarkerLoginFailed  = "login failed"               // case-insensitive
)

// Response types reported by the managed executable
const (
	ResponseLoginFailed     = 0
	ResponseAccountDisabled = 4
	ResponseAuthenticated   = 6
)

// Terminal is the outcome a session has settled on
type Terminal int

const (
	TerminalNone Terminal = iota
	TerminalSuccess
	TerminalFailure
)

func (t Terminal) String() string {
	switch t {
	case TerminalSuccess:
		return "success"
	case TerminalFailure:
		return "failure"
	default:
		return "none"
	}
}

// FailureReason distinguishes the fatal login outcomes
type FailureReason int

const (
	FailureNone FailureReason = iota
	FailureLoginFailed        // response type 0
	FailureAccountDisabled    // response type 4
	FailureRejected           // explicit "login failed" line
)

func (r FailureReason) String() string {
	switch r {
	case FailureLoginFailed:
		return "login failed"
	case FailureAccountDisabled:
		return "account disabled"
	case FailureRejected:
		return "login rejected"
	default:
		return "none"
	}
}

// State is the login session as seen through the executable's output
type State struct {
	WaitingFor2FA bool
	ResponseType6 bool
	StreamReady   bool
	ResponseType  *int // last successfully parsed response type
	Terminal      Terminal
	Failure       FailureReason
}

// Echo reports whether output lines are still echoed to the operator.
// Echo stops once the stream-ready marker has been seen.
func (s State) Echo() bool {
	return !s.StreamReady
}

// Effects are the side effects Classify asks the caller to perform, in field order
type Effects struct {
	PromptTwoFactor   bool // prompt for a code and write it to stdin
	TwoFactorFailed   bool
	TwoFactorVerified bool
	Report            FailureReason // failure banner to show, FailureNone for none
}

// Classify applies one line of output to s and returns the new state and the
// effects to perform. Lines arriving after a terminal state leave it unchanged.
func Classify(s State, line string) (State, Effects) {
	var fx Effects
	if s.Terminal != TerminalNone {
		return s, fx
	}

	lower := strings.ToLower(line)

	// 2FA request; nothing else is evaluated for this line
	if strings.Contains(line, MarkerTwoFactor) {
		if !s.WaitingFor2FA {
			s.WaitingFor2FA = true
			fx.PromptTwoFactor = true
		}
		return s, fx
	}

	if strings.Contains(lower, MarkerResponseType) {
		if rt, ok := parseResponseType(lower); ok {
			s.ResponseType = &rt

			if twoFactorFailed(s, rt) {
				fx.TwoFactorFailed = true
				s.WaitingFor2FA = false
			}

			switch rt {
			case ResponseLoginFailed:
				return fail(s, fx, FailureLoginFailed)
			case ResponseAccountDisabled:
				return fail(s, fx, FailureAccountDisabled)
			case ResponseAuthenticated:
				s.ResponseType6 = true
			}
		}
	}

	if strings.Contains(lower, MarkerStreamReady) {
		s.StreamReady = true
	}

	if s.ResponseType6 && s.StreamReady {
		if s.WaitingFor2FA {
			fx.TwoFactorVerified = true
			s.WaitingFor2FA = false
		}
		s.Terminal = TerminalSuccess
		return s, fx
	}

	if strings.Contains(lower, MarkerLoginFailed) {
		if s.WaitingFor2FA {
			fx.TwoFactorFailed = true
			s.WaitingFor2FA = false
		}
		return fail(s, fx, FailureRejected)
	}

	return s, fx
}

// twoFactorFailed reads the ambiguous "waiting and 0 or 4" rule as
// waiting && (rt == 0 || rt == 4).
func twoFactorFailed(s State, rt int) bool {
	return s.WaitingFor2FA && (rt == ResponseLoginFailed || rt == ResponseAccountDisabled)
}

func fail(s State, fx Effects, reason FailureReason) (State, Effects) {
	s.Terminal = TerminalFailure
	s.Failure = reason
	fx.Report = reason
	return s, fx
}

// parseResponseType parses everything after the last "response type" in a
// lower-cased line as an integer
func parseResponseType(lower string) (int, bool) {
	i := strings.LastIndex(lower, MarkerResponseType)
	if i < 0 {
		return 0, false
	}
	rt, err := strconv.Atoi(strings.TrimSpace(lower[i+len(MarkerResponseType):]))
	if err != nil {
		return 0, false
	}
	return rt, true
}

// NormalizeCode returns code when it has exactly length characters, and
// placeholder otherwise. Forwarding a code the executable will reject makes
// it report a failure instead of waiting forever for valid input.
func NormalizeCode(code string, length int, placeholder string) string {
	if code == "" || len([]rune(code)) != length {
		return placeholder
	}
	return code
}
