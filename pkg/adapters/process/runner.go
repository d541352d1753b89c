package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/aretw0/releasebot/pkg/ports"
)

// ErrCommandFailed is wrapped by every fatal command failure.
var ErrCommandFailed = errors.New("command failed")

// CommandError describes a fatal command failure.
type CommandError struct {
	Command  string
	Message  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "execution failed"
	}
	return fmt.Sprintf("%s: %q exited with %d. Stderr: %s", msg, e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}

// Runner implements ports.Executor by executing local processes.
// An optional allow-list restricts which programs may run.
type Runner struct {
	allowed  map[string]bool
	binaries map[string]string
	baseDir  string
	env      []string
	logger   *slog.Logger
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithAllowList only lets the named programs run.
func WithAllowList(names ...string) RunnerOption {
	return func(r *Runner) {
		if r.allowed == nil {
			r.allowed = make(map[string]bool)
		}
		for _, n := range names {
			r.allowed[n] = true
		}
	}
}

// WithBinary maps a program name to the executable actually invoked (e.g. "fedpkg" -> "fedpkg-stage").
func WithBinary(name, path string) RunnerOption {
	return func(r *Runner) {
		r.binaries[name] = path
	}
}

// WithBaseDir sets the working directory for commands that do not carry one.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithEnv appends KEY=VALUE pairs to the environment of every command.
func WithEnv(env ...string) RunnerOption {
	return func(r *Runner) {
		r.env = append(r.env, env...)
	}
}

// WithLogger sets the logger for command tracing.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		binaries: make(map[string]string),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Exec runs cmd and captures its output.
// A failing command yields an error only when cmd.Fatal is set; otherwise the
// failure is logged and reported through CommandResult.Success.
func (r *Runner) Exec(ctx context.Context, cmd ports.Command) (ports.CommandResult, error) {
	line := strings.TrimSpace(cmd.Name + " " + strings.Join(cmd.Args, " "))

	if r.allowed != nil && !r.allowed[cmd.Name] {
		return r.fail(cmd, line, ports.CommandResult{ExitCode: -1, Stderr: "program not in allow-list"})
	}

	name := cmd.Name
	if bin, ok := r.binaries[name]; ok {
		name = bin
	}

	c := exec.CommandContext(ctx, name, cmd.Args...)
	c.Dir = cmd.Dir
	if c.Dir == "" {
		c.Dir = r.baseDir
	}
	if len(r.env) > 0 || len(cmd.Env) > 0 {
		c.Env = append(append(c.Environ(), r.env...), cmd.Env...)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	r.logger.Debug("running command", "cmd", line, "dir", c.Dir)
	err := c.Run()

	result := ports.CommandResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Success: err == nil,
	}
	if err == nil {
		return result, nil
	}

	result.ExitCode = -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else if result.Stderr == "" {
		result.Stderr = err.Error()
	}
	return r.fail(cmd, line, result)
}

func (r *Runner) fail(cmd ports.Command, line string, result ports.CommandResult) (ports.CommandResult, error) {
	result.Success = false
	if cmd.Fatal {
		return result, &CommandError{
			Command:  line,
			Message:  cmd.ErrorMessage,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}
	msg := cmd.ErrorMessage
	if msg == "" {
		msg = "command failed"
	}
	r.logger.Warn(msg, "cmd", line, "exit_code", result.ExitCode, "stderr", strings.TrimSpace(result.Stderr))
	return result, nil
}
