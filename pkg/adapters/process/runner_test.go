package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aretw0/releasebot/pkg/adapters/process"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Exec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	ctx := context.Background()
	runner := process.NewRunner()

	t.Run("Captures Stdout", func(t *testing.T) {
		res, err := runner.Exec(ctx, ports.Command{Name: "sh", Args: []string{"-c", "echo hello"}})
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "hello\n", res.Stdout)
	})

	t.Run("Non Fatal Failure Returns Result", func(t *testing.T) {
		res, err := runner.Exec(ctx, ports.Command{
			Name:         "sh",
			Args:         []string{"-c", "echo oops >&2; exit 3"},
			ErrorMessage: "lint failed",
		})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "oops\n", res.Stderr)
	})

	t.Run("Fatal Failure Returns CommandError", func(t *testing.T) {
		_, err := runner.Exec(ctx, ports.Command{
			Name:         "sh",
			Args:         []string{"-c", "exit 1"},
			ErrorMessage: "push failed",
			Fatal:        true,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, process.ErrCommandFailed)

		var cmdErr *process.CommandError
		require.ErrorAs(t, err, &cmdErr)
		assert.Equal(t, 1, cmdErr.ExitCode)
		assert.Contains(t, err.Error(), "push failed")
	})

	t.Run("Missing Binary", func(t *testing.T) {
		res, err := runner.Exec(ctx, ports.Command{Name: "definitely-not-a-real-binary-xyz"})
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, -1, res.ExitCode)
	})

	t.Run("Runs In Command Dir", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0o644))

		res, err := runner.Exec(ctx, ports.Command{Dir: dir, Name: "ls"})
		require.NoError(t, err)
		assert.Contains(t, res.Stdout, "marker")
	})
}

func TestRunner_Options(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}
	ctx := context.Background()

	t.Run("AllowList Rejects Unknown Programs", func(t *testing.T) {
		runner := process.NewRunner(process.WithAllowList("git"))
		_, err := runner.Exec(ctx, ports.Command{Name: "sh", Args: []string{"-c", "true"}, Fatal: true})
		assert.ErrorIs(t, err, process.ErrCommandFailed)
	})

	t.Run("Env And BaseDir", func(t *testing.T) {
		dir := t.TempDir()
		runner := process.NewRunner(process.WithBaseDir(dir), process.WithEnv("RELEASE_BOT_TEST=yes"))
		res, err := runner.Exec(ctx, ports.Command{Name: "sh", Args: []string{"-c", "echo $RELEASE_BOT_TEST; pwd"}})
		require.NoError(t, err)
		assert.Contains(t, res.Stdout, "yes")
		assert.Contains(t, res.Stdout, filepath.Base(dir))
	})

	t.Run("Binary Override", func(t *testing.T) {
		runner := process.NewRunner(process.WithBinary("fedpkg", "echo"))
		res, err := runner.Exec(ctx, ports.Command{Name: "fedpkg", Args: []string{"sources"}})
		require.NoError(t, err)
		assert.Equal(t, "sources\n", res.Stdout)
	})

	t.Run("Nil Logger Keeps Default", func(t *testing.T) {
		runner := process.NewRunner(process.WithLogger(nil))
		res, err := runner.Exec(ctx, ports.Command{Name: "sh", Args: []string{"-c", "exit 3"}})
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
	})
}
