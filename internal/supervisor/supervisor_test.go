package supervisor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.olrik.dev/wrapperctl/internal/logfile"
)

var fixedNow = func() time.Time { return time.Date(2024, 2, 3, 4, 5, 6, 0, time.Local) }

func TestRunRelayDrainsUntilEOF(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "wrapper_log.txt")

	n, err := RunRelay(context.Background(), RelayConfig{
		LogPath: logPath,
		PID:     1234,
		Input:   io.NopCloser(strings.NewReader("segment 1\r\nsegment 2\npartial")),
		Now:     fixedNow,
	})
	if err != nil {
		t.Fatalf("RunRelay failed: %v", err)
	}
	if n != 3 {
		t.Errorf("lines = %d, want 3", n)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "[2024-02-03 04:05:06] segment 1\n" +
		"[2024-02-03 04:05:06] segment 2\n" +
		"[2024-02-03 04:05:06] partial\n"
	if string(data) != want {
		t.Errorf("log = %q, want %q", string(data), want)
	}
}

func TestRunRelayStopsOnCancel(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunRelay(ctx, RelayConfig{
			LogPath: filepath.Join(t.TempDir(), "log.txt"),
			Input:   r,
		})
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunRelay did not return after cancel")
	}
}

func TestLogPending(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "wrapper_log.txt")
	t.Run("writes complete and partial lines", func(t *testing.T) {
		w := mustWriter(t, logPath)
		logPending(w, []byte("a\nb\r\nc"), fixedNow())

		data, _ := os.ReadFile(logPath)
		want := "[2024-02-03 04:05:06] a\n[2024-02-03 04:05:06] b\n[2024-02-03 04:05:06] c\n"
		if string(data) != want {
			t.Errorf("log = %q, want %q", string(data), want)
		}
	})

	t.Run("nothing pending", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.txt")
		logPending(mustWriter(t, path), nil, fixedNow())
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("log file should not be created when nothing is pending")
		}
	})
}

func TestDetachRequiresOutput(t *testing.T) {
	if _, err := Detach(DetachConfig{LogPath: filepath.Join(t.TempDir(), "log.txt")}); err == nil {
		t.Fatal("expected error without an output stream")
	}
}

func TestDetachStartsRelayWithInheritedStream(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "wrapper_log.txt")
	marker := filepath.Join(dir, "relay-env")

	// Stand-in relay: record the env it was given and copy fd 3 to stdout (the log file)
	script := filepath.Join(dir, "relay.sh")
	body := "#!" + sh + "\n" +
		"echo \"$" + EnvRelayLog + " $" + EnvRelayPID + "\" > " + marker + "\n" +
		"cat <&3\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}

	pid, err := Detach(DetachConfig{
		LogPath:    logPath,
		Output:     r,
		Pending:    []byte("already read\n"),
		PID:        4242,
		Executable: script,
		Now:        fixedNow,
	})
	r.Close()
	if err != nil {
		w.Close()
		t.Fatalf("Detach failed: %v", err)
	}
	if pid <= 0 {
		t.Errorf("pid = %d, want a real PID", pid)
	}

	if _, err := io.WriteString(w, "after handoff\n"); err != nil {
		t.Fatalf("write to relay failed: %v", err)
	}
	w.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, _ := os.ReadFile(logPath)
		env, _ := os.ReadFile(marker)
		if strings.Contains(string(data), "after handoff") && len(env) > 0 {
			if !strings.HasPrefix(string(data), "[2024-02-03 04:05:06] already read\n") {
				t.Errorf("pending output should be logged first, log = %q", string(data))
			}
			if !strings.Contains(string(env), " 4242") || !strings.Contains(string(env), "wrapper_log.txt") {
				t.Errorf("relay env = %q", string(env))
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("relay did not copy the inherited stream into the log file")
}

func TestRelayEnv(t *testing.T) {
	t.Setenv(EnvRelayLog, "")
	if _, _, ok := RelayEnv(); ok {
		t.Error("RelayEnv ok without the env marker")
	}

	t.Setenv(EnvRelayLog, "/tmp/log.txt")
	t.Setenv(EnvRelayPID, "99")
	path, pid, ok := RelayEnv()
	if !ok || path != "/tmp/log.txt" || pid != 99 {
		t.Errorf("RelayEnv() = %q, %d, %v", path, pid, ok)
	}
}

func mustWriter(t *testing.T, path string) *logfile.Writer {
	t.Helper()
	w, err := logfile.New(path)
	if err != nil {
		t.Fatalf("logfile.New failed: %v", err)
	}
	return w
}
