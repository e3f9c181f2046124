package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent"
)

// writeScript drops an executable shell script into a temp dir and
// returns its path. The executor treats "sh" as the interpreter, so
// scripts stand in for real agent modules.
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell-script agent stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newTestExecutor(t *testing.T, modules map[agent.Type]string) *Executor {
	t.Helper()
	e, err := New(Config{
		Interpreter: "sh",
		Modules:     modules,
		BaseURL:     "http://localhost:3000",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func TestRunSuccess(t *testing.T) {
	script := writeScript(t, "answer.sh", `echo "42"`)
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeWeather: script})

	got, err := e.Run(context.Background(), agent.TypeWeather, "what is six times seven", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "42" {
		t.Errorf("Run() = %q, want %q (trimmed stdout)", got, "42")
	}
}

func TestRunNonZeroExit(t *testing.T) {
	script := writeScript(t, "fail.sh", "echo 'geocoding service unreachable' >&2\nexit 1")
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeWeather: script})

	_, err := e.Run(context.Background(), agent.TypeWeather, "weather in Boston", nil)
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Run() error = %v, want *ExecError", err)
	}
	if execErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Stderr, "geocoding service unreachable") {
		t.Errorf("Stderr = %q, want captured stderr text", execErr.Stderr)
	}
}

func TestRunPassesEnvironment(t *testing.T) {
	script := writeScript(t, "env.sh", `echo "$AGENT_MODULE|$AGENT_BASE_URL"`)
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeProduct: script})

	got, err := e.Run(context.Background(), agent.TypeProduct, "q", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := script + "|http://localhost:3000"
	if got != want {
		t.Errorf("child environment = %q, want %q", got, want)
	}
}

func TestRunForwardsRequestOnStdin(t *testing.T) {
	script := writeScript(t, "echoin.sh", "cat")
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeStoreLocator: script})

	got, err := e.Run(context.Background(), agent.TypeStoreLocator, "stores near 02134", map[string]any{"radius": 10})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(got, `"query":"stores near 02134"`) {
		t.Errorf("stdin payload missing query: %s", got)
	}
	if !strings.Contains(got, `"radius":10`) {
		t.Errorf("stdin payload missing parameters: %s", got)
	}
}

func TestRunUnknownType(t *testing.T) {
	script := writeScript(t, "noop.sh", "exit 0")
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeWeather: script})

	_, err := e.Run(context.Background(), agent.TypeSearch, "q", nil)
	if !errors.Is(err, agent.ErrUnknownType) {
		t.Fatalf("Run() error = %v, want ErrUnknownType", err)
	}
}

func TestRunContextCancelKillsChild(t *testing.T) {
	script := writeScript(t, "hang.sh", "sleep 30")
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeWeather: script})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Run(ctx, agent.TypeWeather, "q", nil)
	if err == nil {
		t.Fatal("Run() returned nil error for killed child")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v after cancellation; child not killed", elapsed)
	}
}

func TestRunContextCancelReapsGrandchildren(t *testing.T) {
	// The background sleep inherits the output pipes; a cancel that
	// only reached the shell itself would leave Run blocked on them.
	script := writeScript(t, "spawn.sh", "sleep 30 &\nwait")
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeWeather: script})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Run(ctx, agent.TypeWeather, "q", nil)
	if err == nil {
		t.Fatal("Run() returned nil error for killed child")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run() error = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run() took %v after cancellation; process tree not reaped", elapsed)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Modules: map[agent.Type]string{agent.TypeWeather: "x"}}); err == nil {
		t.Error("New() accepted empty interpreter")
	}
	if _, err := New(Config{Interpreter: "sh"}); err == nil {
		t.Error("New() accepted empty module map")
	}
	if _, err := New(Config{Interpreter: "sh", Modules: map[agent.Type]string{agent.TypeWeather: ""}}); err == nil {
		t.Error("New() accepted empty module path")
	}
}

func TestAgentAdapter(t *testing.T) {
	script := writeScript(t, "answer.sh", `echo "sunny"`)
	e := newTestExecutor(t, map[agent.Type]string{agent.TypeWeather: script})

	a := NewAgent(agent.TypeWeather, e)
	if a.Type() != agent.TypeWeather {
		t.Errorf("Type() = %q", a.Type())
	}
	got, err := a.Execute(context.Background(), "weather in Boston", nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "sunny" {
		t.Errorf("Execute() = %q, want %q", got, "sunny")
	}
}
