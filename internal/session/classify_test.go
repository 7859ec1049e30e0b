package session

import (
	"testing"
)

func intPtr(i int) *int { return &i }

func TestClassifyUnmatchedLinesLeaveStateUnchanged(t *testing.T) {
	states := []State{
		{},
		{WaitingFor2FA: true},
		{ResponseType6: true, ResponseType: intPtr(6)},
		{StreamReady: true},
	}
	lines := []string{
		"random info",
		"",
		"starting decryptor on 0.0.0.0:10020",
		"response: ok",
		"2fa: TRUE", // marker is case-sensitive
	}

	for _, before := range states {
		for _, line := range lines {
			after, fx := Classify(before, line)
			if after.WaitingFor2FA != before.WaitingFor2FA ||
				after.ResponseType6 != before.ResponseType6 ||
				after.StreamReady != before.StreamReady ||
				after.ResponseType != before.ResponseType ||
				after.Terminal != before.Terminal {
				t.Errorf("Classify(%+v, %q) changed state to %+v", before, line, after)
			}
			if fx != (Effects{}) {
				t.Errorf("Classify(%+v, %q) produced effects %+v", before, line, fx)
			}
		}
	}
}

func TestClassifyTwoFactorPromptsOncePerEpisode(t *testing.T) {
	s, fx := Classify(State{}, "[+] 2FA: true")
	if !s.WaitingFor2FA || !fx.PromptTwoFactor {
		t.Fatalf("first 2FA line: state %+v, effects %+v, want waiting and prompt", s, fx)
	}

	s, fx = Classify(s, "[+] 2FA: true")
	if !s.WaitingFor2FA {
		t.Error("still waiting after repeated 2FA line")
	}
	if fx.PromptTwoFactor {
		t.Error("repeated 2FA line must not prompt again")
	}
}

func TestClassifyTwoFactorLineSkipsOtherChecks(t *testing.T) {
	s, fx := Classify(State{}, "2FA: true response type 0 login failed")
	if s.Terminal != TerminalNone {
		t.Errorf("Terminal = %v, want none: 2FA lines stop evaluation", s.Terminal)
	}
	if s.ResponseType != nil {
		t.Errorf("ResponseType = %v, want unset", *s.ResponseType)
	}
	if !fx.PromptTwoFactor || fx.Report != FailureNone {
		t.Errorf("effects = %+v", fx)
	}
}

func TestClassifyResponseType(t *testing.T) {
	tests := []struct {
		name          string
		before        State
		line          string
		wantTerminal  Terminal
		wantFailure   FailureReason
		wantType      *int
		wantType6     bool
		want2FAFailed bool
	}{
		{
			name:         "type 0 fails",
			line:         "[.] response type 0",
			wantTerminal: TerminalFailure,
			wantFailure:  FailureLoginFailed,
			wantType:     intPtr(0),
		},
		{
			name:          "type 0 while waiting reports 2FA failure",
			before:        State{WaitingFor2FA: true},
			line:          "response type 0",
			wantTerminal:  TerminalFailure,
			wantFailure:   FailureLoginFailed,
			wantType:      intPtr(0),
			want2FAFailed: true,
		},
		{
			name:         "type 0 after type 6 still fails",
			before:       State{ResponseType6: true, ResponseType: intPtr(6)},
			line:         "response type 0",
			wantTerminal: TerminalFailure,
			wantFailure:  FailureLoginFailed,
			wantType:     intPtr(0),
			wantType6:    true,
		},
		{
			name:         "type 4 disables",
			line:         "response type 4",
			wantTerminal: TerminalFailure,
			wantFailure:  FailureAccountDisabled,
			wantType:     intPtr(4),
		},
		{
			name:          "type 4 while waiting reports 2FA failure",
			before:        State{WaitingFor2FA: true},
			line:          "response type 4",
			wantTerminal:  TerminalFailure,
			wantFailure:   FailureAccountDisabled,
			wantType:      intPtr(4),
			want2FAFailed: true,
		},
		{
			name:      "type 6 sets flag only",
			line:      "Response Type 6",
			wantType:  intPtr(6),
			wantType6: true,
		},
		{
			name:     "other type is recorded",
			line:     "response type 2",
			wantType: intPtr(2),
		},
		{
			name: "unparseable type is ignored",
			line: "response type: unknown",
		},
		{
			name: "trailing text is not an integer",
			line: "response type 6 received",
		},
		{
			name:     "last occurrence wins",
			line:     "response type 6, response type 2",
			wantType: intPtr(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fx := Classify(tt.before, tt.line)
			if s.Terminal != tt.wantTerminal {
				t.Errorf("Terminal = %v, want %v", s.Terminal, tt.wantTerminal)
			}
			if s.Failure != tt.wantFailure || fx.Report != tt.wantFailure {
				t.Errorf("Failure = %v, Report = %v, want %v", s.Failure, fx.Report, tt.wantFailure)
			}
			switch {
			case tt.wantType == nil && tt.before.ResponseType == nil && s.ResponseType != nil:
				t.Errorf("ResponseType = %d, want unset", *s.ResponseType)
			case tt.wantType != nil && (s.ResponseType == nil || *s.ResponseType != *tt.wantType):
				t.Errorf("ResponseType = %v, want %d", s.ResponseType, *tt.wantType)
			}
			if s.ResponseType6 != tt.wantType6 {
				t.Errorf("ResponseType6 = %v, want %v", s.ResponseType6, tt.wantType6)
			}
			if fx.TwoFactorFailed != tt.want2FAFailed {
				t.Errorf("TwoFactorFailed = %v, want %v", fx.TwoFactorFailed, tt.want2FAFailed)
			}
			if tt.want2FAFailed && s.WaitingFor2FA {
				t.Error("WaitingFor2FA should be cleared after a 2FA failure")
			}
		})
	}
}

func TestClassifySuccessRequiresBothSignals(t *testing.T) {
	orders := map[string][]string{
		"type 6 first": {"response type 6", "listening m3u8 request on 127.0.0.1:20020"},
		"marker first": {"Listening M3U8 request on 127.0.0.1:20020", "response type 6"},
	}

	for name, lines := range orders {
		t.Run(name, func(t *testing.T) {
			s, _ := Classify(State{}, lines[0])
			if s.Terminal != TerminalNone {
				t.Fatalf("success after one signal: %+v", s)
			}
			s, fx := Classify(s, lines[1])
			if s.Terminal != TerminalSuccess {
				t.Fatalf("Terminal = %v, want success", s.Terminal)
			}
			if fx.TwoFactorVerified {
				t.Error("TwoFactorVerified without a 2FA episode")
			}
		})
	}

	t.Run("only marker", func(t *testing.T) {
		s, _ := Classify(State{}, "listening m3u8 request on 127.0.0.1:20020")
		s, _ = Classify(s, "response type 2")
		if s.Terminal != TerminalNone {
			t.Errorf("Terminal = %v, want none", s.Terminal)
		}
		if s.Echo() {
			t.Error("echo should stop after the stream-ready marker")
		}
	})
}

func TestClassifySuccessReportsTwoFactorVerified(t *testing.T) {
	s := State{WaitingFor2FA: true, ResponseType6: true, ResponseType: intPtr(6)}
	s, fx := Classify(s, "listening m3u8 request on 127.0.0.1:20020")
	if s.Terminal != TerminalSuccess {
		t.Fatalf("Terminal = %v, want success", s.Terminal)
	}
	if !fx.TwoFactorVerified {
		t.Error("expected TwoFactorVerified")
	}
	if s.WaitingFor2FA {
		t.Error("WaitingFor2FA should be cleared on success")
	}
}

func TestClassifyExplicitLoginFailed(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		s, fx := Classify(State{}, "[!] Login Failed")
		if s.Terminal != TerminalFailure || s.Failure != FailureRejected {
			t.Errorf("state = %+v, want rejected failure", s)
		}
		if fx.Report != FailureRejected || fx.TwoFactorFailed {
			t.Errorf("effects = %+v", fx)
		}
	})

	t.Run("while waiting for 2FA", func(t *testing.T) {
		s, fx := Classify(State{WaitingFor2FA: true}, "login failed")
		if s.Terminal != TerminalFailure {
			t.Errorf("Terminal = %v, want failure", s.Terminal)
		}
		if !fx.TwoFactorFailed {
			t.Error("expected TwoFactorFailed")
		}
	})

	t.Run("success on the same line wins", func(t *testing.T) {
		s := State{ResponseType6: true, ResponseType: intPtr(6)}
		s, fx := Classify(s, "listening m3u8 request on :20020 (login failed earlier)")
		if s.Terminal != TerminalSuccess {
			t.Errorf("Terminal = %v, want success", s.Terminal)
		}
		if fx.Report != FailureNone {
			t.Errorf("Report = %v, want none", fx.Report)
		}
	})
}

func TestClassifyIgnoresLinesAfterTerminal(t *testing.T) {
	done := State{Terminal: TerminalFailure, Failure: FailureAccountDisabled}
	s, fx := Classify(done, "response type 6")
	if s.Terminal != TerminalFailure || s.ResponseType6 {
		t.Errorf("state changed after terminal: %+v", s)
	}
	if fx != (Effects{}) {
		t.Errorf("effects after terminal: %+v", fx)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"123456", "123456"},
		{"", "000000"},
		{"12345", "000000"},
		{"1234567", "000000"},
		{"abcdef", "abcdef"},
	}
	for _, tt := range tests {
		if got := NormalizeCode(tt.code, 6, "000000"); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestTerminalAndReasonStrings(t *testing.T) {
	if TerminalSuccess.String() != "success" || TerminalFailure.String() != "failure" || TerminalNone.String() != "none" {
		t.Error("unexpected Terminal strings")
	}
	if FailureAccountDisabled.String() != "account disabled" {
		t.Errorf("FailureAccountDisabled.String() = %q", FailureAccountDisabled.String())
	}
}
