package fedpkg_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/releasebot/internal/testutils"
	"github.com/aretw0/releasebot/pkg/adapters/fedpkg"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// distGit fakes the dist-git side effects: clone creates the package checkout
// and every spectool run downloads a new tarball.
func distGit(t *testing.T) *testutils.FakeExecutor {
	t.Helper()
	downloads := 0
	return testutils.NewFakeExecutor().
		On("fedpkg clone", func(cmd ports.Command) bool {
			testutils.WriteFile(t, cmd.Dir, "example/example.spec", exampleSpec)
			return true
		}).
		On("spectool", func(cmd ports.Command) bool {
			downloads++
			testutils.WriteFile(t, cmd.Dir, fmt.Sprintf("example-%d.tar.gz", downloads), "tarball")
			return true
		})
}

func newState(branches ...string) *domain.ReleaseState {
	return domain.NewReleaseState(
		domain.ReleaseIntent{Version: "0.0.2", AuthorName: "John Doe", AuthorEmail: "jdoe@example.com"},
		domain.ReleaseConfig{Fedora: true, FedoraBranches: branches},
	)
}

func newUpdater(t *testing.T, exec ports.Executor) *fedpkg.Updater {
	return fedpkg.New(exec, fedpkg.Config{Package: "example", FASUsername: "packager"},
		fedpkg.WithTempDir(t.TempDir()),
		fedpkg.WithClock(func() time.Time { return time.Date(2018, 12, 24, 0, 0, 0, 0, time.UTC) }),
	)
}

func TestUpdater_Release(t *testing.T) {
	t.Run("Fast Forward", func(t *testing.T) {
		exec := distGit(t)
		var specAtCommit string
		exec.On("fedpkg commit", func(cmd ports.Command) bool {
			data, err := os.ReadFile(filepath.Join(cmd.Dir, "example.spec"))
			require.NoError(t, err)
			specAtCommit = string(data)
			return true
		})

		report, err := newUpdater(t, exec).Release(context.Background(), newState("f28", "master", "f28"))
		require.NoError(t, err)

		assert.Equal(t, domain.BuildReport{
			{Branch: "master", Status: domain.BranchUpdated},
			{Branch: "f28", Status: domain.BranchUpdated},
		}, report)
		assert.Equal(t, []string{
			"kinit -R packager@FEDORAPROJECT.ORG",
			"fedpkg clone example",
			"fedpkg switch-branch master",
			"fedpkg sources",
			"fedpkg lint",
			"spectool -g " + filepath.Join(exec.Commands[1].Dir, "example", "example.spec"),
			"fedpkg new-sources example-1.tar.gz",
			"fedpkg commit -m Update to 0.0.2",
			"fedpkg push",
			"fedpkg build",
			"fedpkg switch-branch f28",
			"git merge master --ff-only",
			"fedpkg push",
			"fedpkg build",
		}, exec.Lines())
		assert.Contains(t, specAtCommit, "Version:        0.0.2\nRelease:        1%{?dist}\n")
		assert.Contains(t, specAtCommit, "* Mon Dec 24 2018 John Doe <jdoe@example.com> 0.0.2-1\n- 0.0.2 release\n")
		assert.NoDirExists(t, exec.Commands[1].Dir, "dist-git clone must be removed")
	})

	t.Run("Merge Failure Updates From Scratch", func(t *testing.T) {
		exec := distGit(t).Fail("git merge")

		report, err := newUpdater(t, exec).Release(context.Background(), newState("f28"))
		require.NoError(t, err)
		require.Len(t, report, 2)
		assert.Equal(t, domain.BranchUpdated, report[1].Status)
		assert.Equal(t, fedpkg.ReasonFromScratch, report[1].Reason)
		assert.Equal(t, 2, exec.Count("fedpkg commit"))
		assert.Equal(t, 1, exec.Count("fedpkg new-sources example-2.tar.gz"))
	})

	t.Run("Auxiliary Branch Failures", func(t *testing.T) {
		exec := distGit(t).
			On("fedpkg switch-branch", func(cmd ports.Command) bool { return cmd.Args[1] != "f27" })

		report, err := newUpdater(t, exec).Release(context.Background(), newState("f27", "f28"))
		require.NoError(t, err)
		require.Len(t, report, 3)
		assert.Equal(t, domain.BranchSkipped, report[1].Status)
		assert.Equal(t, "f27", report[1].Branch)
		assert.Equal(t, "f28", report[2].Branch)
		assert.Equal(t, domain.BranchUpdated, report[2].Status)
	})

	t.Run("Auxiliary Push Failure", func(t *testing.T) {
		exec := distGit(t).On("fedpkg push", func(cmd ports.Command) bool { return cmd.Fatal })

		report, err := newUpdater(t, exec).Release(context.Background(), newState("f28"))
		require.NoError(t, err)
		assert.Equal(t, domain.BranchFailed, report[1].Status)
		assert.Contains(t, report[1].Reason, `Pushing branch "f28" to Fedora failed`)
		assert.Equal(t, 1, exec.Count("git merge"))
		assert.Equal(t, 1, exec.Count("fedpkg build"), "no build after a failed push")
	})

	t.Run("No New Sources On Default Branch", func(t *testing.T) {
		exec := distGit(t).On("spectool", func(ports.Command) bool { return true })

		report, err := newUpdater(t, exec).Release(context.Background(), newState("f28"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDefaultBranch)
		assert.ErrorIs(t, err, domain.ErrNoNewSources)
		assert.Equal(t, domain.SeverityBranchFatal, domain.SeverityOf(err))
		assert.Zero(t, exec.Count("fedpkg commit"))
		assert.Zero(t, exec.Count("fedpkg switch-branch f28"))
		require.Len(t, report, 1)
		assert.Equal(t, domain.BranchFailed, report[0].Status)
	})

	t.Run("Default Branch Lint Failure", func(t *testing.T) {
		exec := distGit(t).Fail("fedpkg lint")

		_, err := newUpdater(t, exec).Release(context.Background(), newState("f28"))
		require.ErrorIs(t, err, domain.ErrDefaultBranch)
		assert.Zero(t, exec.Count("spectool"))
	})

	t.Run("Missing Spec File", func(t *testing.T) {
		exec := distGit(t).On("fedpkg clone", func(cmd ports.Command) bool {
			require.NoError(t, os.MkdirAll(filepath.Join(cmd.Dir, "example"), 0o755))
			return true
		})

		_, err := newUpdater(t, exec).Release(context.Background(), newState())
		require.ErrorIs(t, err, domain.ErrDefaultBranch)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestUpdater_Ticket(t *testing.T) {
	t.Run("Keytab", func(t *testing.T) {
		keytab := testutils.WriteFile(t, t.TempDir(), "bot.keytab", "secret")
		exec := distGit(t)
		u := fedpkg.New(exec, fedpkg.Config{Package: "example", FASUsername: "packager", Keytab: keytab},
			fedpkg.WithTempDir(t.TempDir()))

		_, err := u.Release(context.Background(), newState())
		require.NoError(t, err)
		assert.Equal(t, "kinit packager@FEDORAPROJECT.ORG -k -t "+keytab, exec.Lines()[0])
	})

	t.Run("Failure Aborts Before Clone", func(t *testing.T) {
		exec := distGit(t).Fail("kinit")

		report, err := newUpdater(t, exec).Release(context.Background(), newState("f28"))
		require.ErrorIs(t, err, domain.ErrNoTicket)
		assert.Empty(t, report)
		assert.Equal(t, 1, len(exec.Lines()))
	})

	t.Run("Missing Username", func(t *testing.T) {
		exec := distGit(t)
		u := fedpkg.New(exec, fedpkg.Config{Package: "example"})

		_, err := u.Release(context.Background(), newState())
		require.True(t, errors.Is(err, domain.ErrNoTicket))
		assert.Empty(t, exec.Lines())
	})
}
