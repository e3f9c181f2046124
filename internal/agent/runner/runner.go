// Package runner executes process-backed agents: one interpreter
// subprocess per invocation, a JSON request on stdin, the finished
// answer on stdout. There is no pooling or reuse; output volume is a
// single bounded text reply.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/agent"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/log"
)

// waitDelay bounds how long Wait blocks after cancellation when a
// descendant of the child still holds the output pipes open.
const waitDelay = 3 * time.Second

// ExecError reports a subprocess that exited non-zero. Stderr is kept
// for diagnostics; callers must log it rather than return it to
// untrusted clients.
type ExecError struct {
	AgentType agent.Type
	ExitCode  int
	Stderr    string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("agent %s exited with code %d: %s", e.AgentType, e.ExitCode, e.Stderr)
}

// request is the JSON contract written to the child's stdin.
type request struct {
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Executor resolves agent types to interpreter modules and runs them.
type Executor struct {
	interpreter string
	modules     map[agent.Type]string
	baseURL     string
	logger      log.Logger
}

// Config carries what the Executor needs to spawn children.
type Config struct {
	// Interpreter is the executable that runs agent modules, e.g.
	// "python3".
	Interpreter string
	// Modules maps each process-backed agent type to its module path.
	Modules map[agent.Type]string
	// BaseURL is advertised to children via AGENT_BASE_URL so their
	// tool calls land back on this service.
	BaseURL string
	// Logger may be nil, in which case logs are discarded.
	Logger log.Logger
}

// New creates an Executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Interpreter == "" {
		return nil, fmt.Errorf("runner: interpreter is required")
	}
	if len(cfg.Modules) == 0 {
		return nil, fmt.Errorf("runner: at least one agent module is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	modules := make(map[agent.Type]string, len(cfg.Modules))
	for t, path := range cfg.Modules {
		if path == "" {
			return nil, fmt.Errorf("runner: empty module path for agent %s", t)
		}
		modules[t] = path
	}

	return &Executor{
		interpreter: cfg.Interpreter,
		modules:     modules,
		baseURL:     cfg.BaseURL,
		logger:      logger,
	}, nil
}

// Types returns the agent types this executor can run.
func (e *Executor) Types() []agent.Type {
	types := make([]agent.Type, 0, len(e.modules))
	for t := range e.modules {
		types = append(types, t)
	}
	return types
}

// Run spawns the module for t, writes the request to its stdin, and
// captures both output streams incrementally. Exit code 0 resolves to
// the trimmed stdout; anything else returns an ExecError embedding
// the captured stderr. Canceling ctx kills the child's whole process
// group where the platform supports it, and WaitDelay force-closes
// the pipes after cancellation, so a settled call never leaves Run
// blocked on a straggler.
func (e *Executor) Run(ctx context.Context, t agent.Type, query string, params map[string]any) (string, error) {
	module, ok := e.modules[t]
	if !ok {
		return "", fmt.Errorf("%w: %q has no module", agent.ErrUnknownType, t)
	}

	payload, err := json.Marshal(request{Query: query, Parameters: params})
	if err != nil {
		return "", fmt.Errorf("runner: marshal request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.interpreter, module)
	cmd.Env = append(os.Environ(),
		"AGENT_MODULE="+module,
		"AGENT_BASE_URL="+e.baseURL,
	)
	cmd.Stdin = bytes.NewReader(payload)

	// exec drains both streams for us; interpreters routinely spawn
	// helpers that inherit the pipe write ends, so Wait must not hang
	// on their EOF after the child itself is gone.
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	start := time.Now()
	waitErr := cmd.Run()
	elapsed := time.Since(start)

	if waitErr != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("runner: agent %s: %w", t, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			e.logger.Warn("agent subprocess failed",
				"agent", t,
				"exit_code", exitErr.ExitCode(),
				"elapsed", elapsed)
			return "", &ExecError{
				AgentType: t,
				ExitCode:  exitErr.ExitCode(),
				Stderr:    strings.TrimSpace(stderr.String()),
			}
		}
		return "", fmt.Errorf("runner: agent %s: %w", t, waitErr)
	}

	e.logger.Debug("agent subprocess finished",
		"agent", t,
		"elapsed", elapsed,
		"stdout_bytes", stdout.Len())
	return strings.TrimSpace(stdout.String()), nil
}

// Agent adapts one executor entry to the agent.Agent interface.
type Agent struct {
	t    agent.Type
	exec *Executor
}

// NewAgent wraps t's module as a registrable handler.
func NewAgent(t agent.Type, exec *Executor) *Agent {
	return &Agent{t: t, exec: exec}
}

func (a *Agent) Type() agent.Type { return a.t }

func (a *Agent) Execute(ctx context.Context, query string, params map[string]any) (string, error) {
	return a.exec.Run(ctx, a.t, query, params)
}
