package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/stretchr/testify/require"
)

// Handler decides the outcome of one fake command.
// Returning false marks the command as failed.
type Handler func(cmd ports.Command) bool

// FakeExecutor records commands and replies through per-command handlers.
// Commands are matched on "name arg0" first, then on "name".
type FakeExecutor struct {
	mu       sync.Mutex
	Commands []ports.Command
	handlers map[string]Handler
	outputs  map[string]string
}

// NewFakeExecutor returns an executor where every command succeeds unless a handler says otherwise.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{handlers: make(map[string]Handler), outputs: make(map[string]string)}
}

// Stdout makes successful runs of the command key print out.
func (f *FakeExecutor) Stdout(key, out string) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[key] = out
	return f
}

// On registers a handler for a command key such as "fedpkg push" or "kinit".
func (f *FakeExecutor) On(key string, h Handler) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[key] = h
	return f
}

// Fail makes the given command key fail.
func (f *FakeExecutor) Fail(key string) *FakeExecutor {
	return f.On(key, func(ports.Command) bool { return false })
}

// Exec implements ports.Executor with the same fatality rules as the process runner.
func (f *FakeExecutor) Exec(_ context.Context, cmd ports.Command) (ports.CommandResult, error) {
	f.mu.Lock()
	f.Commands = append(f.Commands, cmd)
	h := f.lookup(cmd)
	out := f.output(cmd)
	f.mu.Unlock()

	ok := true
	if h != nil {
		ok = h(cmd)
	}
	if ok {
		return ports.CommandResult{Success: true, Stdout: out}, nil
	}
	res := ports.CommandResult{ExitCode: 1, Stderr: "fake failure"}
	if cmd.Fatal {
		return res, fmt.Errorf("%s: %s failed", cmd.ErrorMessage, Line(cmd))
	}
	return res, nil
}

func (f *FakeExecutor) lookup(cmd ports.Command) Handler {
	if len(cmd.Args) > 0 {
		if h, ok := f.handlers[cmd.Name+" "+cmd.Args[0]]; ok {
			return h
		}
	}
	return f.handlers[cmd.Name]
}

func (f *FakeExecutor) output(cmd ports.Command) string {
	if len(cmd.Args) > 0 {
		if out, ok := f.outputs[cmd.Name+" "+cmd.Args[0]]; ok {
			return out
		}
	}
	return f.outputs[cmd.Name]
}

// Lines returns every recorded command as a single space separated string.
func (f *FakeExecutor) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Commands))
	for _, c := range f.Commands {
		out = append(out, Line(c))
	}
	return out
}

// Count returns how many recorded commands start with prefix.
func (f *FakeExecutor) Count(prefix string) int {
	n := 0
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

// Line renders a command as "name arg1 arg2".
func Line(cmd ports.Command) string {
	return strings.TrimSpace(cmd.Name + " " + strings.Join(cmd.Args, " "))
}

// WriteFile creates a file (and its parents) below dir, failing the test on error.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "Failed to create parent dir")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "Failed to write file")
	return path
}
