package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/releasebot/internal/config"
	"github.com/aretw0/releasebot/pkg/adapters/memory"
	"github.com/aretw0/releasebot/pkg/adapters/sqlite"
	"github.com/aretw0/releasebot/pkg/domain"
)

func writeConf(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.yaml")
	content := "repository_name: rlsbot-test\nrepository_owner: user-cont\ngithub_token: abc\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSetup(t *testing.T) {
	var stderr bytes.Buffer
	env, err := Setup(Options{
		ConfigPath: writeConf(t, "log:\n  level: warn\n"),
		Keytab:     "/etc/packager.keytab",
		Debug:      true,
		Stderr:     &stderr,
	})
	require.NoError(t, err)

	assert.Equal(t, "user-cont/rlsbot-test", env.Config.FullName())
	assert.Equal(t, "/etc/packager.keytab", env.Config.Keytab)
	assert.NotNil(t, env.Metrics)

	env.Logger.Debug("visible in debug mode")
	assert.Contains(t, stderr.String(), "visible in debug mode")
}

func TestSetup_MissingConfig(t *testing.T) {
	_, err := Setup(Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, Init(&out, dir, "user-cont", "rlsbot-test", false))
	assert.Contains(t, out.String(), "conf.yaml")

	t.Run("Templates Load", func(t *testing.T) {
		cfg, err := config.Load(filepath.Join(dir, "conf.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "user-cont/rlsbot-test", cfg.FullName())
		assert.Equal(t, "release-bot.db", cfg.Ledger.Path)

		raw, err := os.ReadFile(filepath.Join(dir, config.ReleaseConfigFile))
		require.NoError(t, err)
		conf, err := config.ParseReleaseConfig(raw)
		require.NoError(t, err)
		assert.True(t, conf.PyPI)
		assert.Equal(t, "rlsbot-test", conf.PyPIProject)
		assert.Equal(t, []int{3}, conf.PythonVersions)
	})

	t.Run("Refuses To Overwrite", func(t *testing.T) {
		err := Init(&out, dir, "user-cont", "rlsbot-test", false)
		assert.ErrorIs(t, err, ErrFileExists)
	})

	t.Run("Force", func(t *testing.T) {
		assert.NoError(t, Init(&out, dir, "user-cont", "other", true))
	})
}

func TestPreviewChangelog(t *testing.T) {
	dir := t.TempDir()
	content := "# 0.2.0\n\n* Add feature\n\n# 0.1.0\n\n* First\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CHANGELOG.md"), []byte(content), 0o644))

	t.Run("Top Section", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PreviewChangelog(&buf, dir, "0.2.0"))
		assert.Contains(t, buf.String(), "* Add feature")
		assert.NotContains(t, buf.String(), "First")
	})

	t.Run("Older Version Falls Back To Placeholder", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PreviewChangelog(&buf, dir, "0.1.0"))
		assert.Contains(t, buf.String(), "No changelog provided")
	})

	t.Run("Invalid Version", func(t *testing.T) {
		assert.Error(t, PreviewChangelog(&bytes.Buffer{}, dir, "latest"))
	})
}

func recordCycles(t *testing.T, ledger interface {
	RecordCycle(context.Context, *domain.CycleReport) error
}) {
	t.Helper()
	start := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	for i, repo := range []string{"user-cont/a", "user-cont/b"} {
		require.NoError(t, ledger.RecordCycle(context.Background(), &domain.CycleReport{
			ID:         "cycle-" + repo[len(repo)-1:],
			Repository: repo,
			Trigger:    domain.TriggerAll,
			Intent:     &domain.ReleaseIntent{Version: "0.2.0"},
			Steps:      []domain.StepResult{{Step: domain.StepGitHub, Status: domain.StepReleased}},
			Trail:      []domain.CycleState{domain.StateIdle, domain.StateDiscovered, domain.StateGitHubReleased, domain.StateIdle},
			StartedAt:  start.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestWriteHistory(t *testing.T) {
	ledger := memory.NewLedger()
	recordCycles(t, ledger)

	t.Run("Filtered Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeHistory(context.Background(), &buf, ledger, HistoryOptions{Repository: "user-cont/a"}))
		assert.Contains(t, buf.String(), "user-cont/a")
		assert.NotContains(t, buf.String(), "user-cont/b")
	})

	t.Run("All Repositories As JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeHistory(context.Background(), &buf, ledger, HistoryOptions{Repository: "*", JSON: true}))
		var cycles []domain.CycleReport
		require.NoError(t, json.Unmarshal(buf.Bytes(), &cycles))
		require.Len(t, cycles, 2)
		assert.Equal(t, "user-cont/b", cycles[0].Repository)
	})
}

func TestGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := sqlite.Open(context.Background(), path)
	require.NoError(t, err)
	recordCycles(t, ledger)
	require.NoError(t, ledger.Close())

	var buf bytes.Buffer
	env := &Env{Config: config.Config{Ledger: config.LedgerConfig{Path: path}}, Stdout: &buf}

	t.Run("Machine Only", func(t *testing.T) {
		buf.Reset()
		require.NoError(t, Graph(context.Background(), &Env{Stdout: &buf}, ""))
		assert.NotContains(t, buf.String(), "classDef")
	})

	t.Run("Cycle Overlay", func(t *testing.T) {
		buf.Reset()
		require.NoError(t, Graph(context.Background(), env, "cycle-a"))
		assert.Contains(t, buf.String(), "class github_released current;")
	})

	t.Run("Unknown Cycle", func(t *testing.T) {
		assert.Error(t, Graph(context.Background(), env, "nope"))
	})

	t.Run("No Ledger", func(t *testing.T) {
		err := History(context.Background(), &Env{Stdout: &buf}, HistoryOptions{})
		assert.ErrorIs(t, err, ErrNoLedger)
	})
}

func TestOpenJobs(t *testing.T) {
	t.Run("Inline Without Redis", func(t *testing.T) {
		env := &Env{Config: config.Config{Redis: config.RedisConfig{LockRepository: true}}}
		j, err := openJobs(context.Background(), env)
		require.NoError(t, err)
		defer j.close()

		assert.True(t, j.inline)
		assert.IsType(t, &memory.Queue{}, j.queue)
		assert.IsType(t, &memory.Locker{}, j.locker)
	})

	t.Run("Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		env := &Env{Config: config.Config{Redis: config.RedisConfig{
			Address: mr.Addr(),
			Queue:   "test:jobs",
		}}}
		j, err := openJobs(context.Background(), env)
		require.NoError(t, err)
		defer j.close()

		assert.False(t, j.inline)
		assert.Nil(t, j.locker)

		ctx := context.Background()
		require.NoError(t, j.queue.Enqueue(ctx, domain.Job{ID: "j1", Owner: "o", Repository: "r"}))
		assert.True(t, mr.Exists("test:jobs"))
		job, err := j.queue.Dequeue(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "j1", job.ID)
	})

	t.Run("Unreachable Redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, err := openJobs(context.Background(), &Env{Config: config.Config{Redis: config.RedisConfig{Address: addr}}})
		assert.Error(t, err)
	})
}
