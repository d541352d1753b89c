package domain

import (
	"fmt"
	"os"
	"slices"
)

// CycleState is the position of the release state machine within one cycle.
type CycleState string

const (
	StateIdle                 CycleState = "idle"
	StateDiscovered           CycleState = "discovered"
	StateGitHubReleased       CycleState = "github_released"
	StatePackageReleased      CycleState = "package_released"
	StateDistributionReleased CycleState = "distribution_released"
)

// CanTransitionTo reports whether the machine may move from s to next.
// Every state may fall back to Idle; otherwise the order is strictly linear.
func (s CycleState) CanTransitionTo(next CycleState) bool {
	if next == StateIdle {
		return true
	}
	switch s {
	case StateIdle:
		return next == StateDiscovered
	case StateDiscovered:
		return next == StateGitHubReleased
	case StateGitHubReleased:
		return next == StatePackageReleased
	case StatePackageReleased:
		return next == StateDistributionReleased
	default:
		return false
	}
}

// Target is a downstream publishing surface that can be toggled per repository.
type Target string

const (
	TargetPackageIndex Target = "pypi"
	TargetDistribution Target = "fedora"
)

// ReleaseState is the mutable record describing the release under construction.
// It is created once per cycle and discarded when the cycle returns to Idle.
type ReleaseState struct {
	version   string
	Commitish string

	AuthorName  string
	AuthorEmail string

	// ChangelogEntries override the generated changelog line in packaging metadata.
	ChangelogEntries []string

	Targets              map[Target]bool
	DistributionBranches []string
	PythonVersions       []int
	PackageProject       string

	// WorkDir backs every artifact downloaded or built during the cycle.
	WorkDir *WorkDir
	// ProjectRoot is the extracted source tree of the released version.
	ProjectRoot string

	// Completed holds the steps that released or skipped in this cycle.
	// A step only runs once the step before it is in here.
	Completed map[StepID]bool

	Intent ReleaseIntent
}

// NewReleaseState seeds a state from a discovered intent and the repository release configuration.
func NewReleaseState(intent ReleaseIntent, conf ReleaseConfig) *ReleaseState {
	s := &ReleaseState{
		version:              intent.Version,
		Commitish:            intent.SourceReference,
		AuthorName:           intent.AuthorName,
		AuthorEmail:          intent.AuthorEmail,
		ChangelogEntries:     slices.Clone(conf.Changelog),
		Targets:              make(map[Target]bool),
		DistributionBranches: slices.Clone(conf.FedoraBranches),
		PythonVersions:       slices.Clone(conf.PythonVersions),
		PackageProject:       conf.PyPIProject,
		Completed:            make(map[StepID]bool),
		Intent:               intent,
	}
	if conf.AuthorName != "" {
		s.AuthorName = conf.AuthorName
	}
	if conf.AuthorEmail != "" {
		s.AuthorEmail = conf.AuthorEmail
	}
	if conf.PyPI {
		s.Targets[TargetPackageIndex] = true
	}
	if conf.Fedora {
		s.Targets[TargetDistribution] = true
	}
	return s
}

// Version is the target semantic version. It never changes after construction.
func (s *ReleaseState) Version() string {
	return s.version
}

// Enabled reports whether a downstream target is configured for this release.
func (s *ReleaseState) Enabled(t Target) bool {
	return s.Targets[t]
}

// MarkCompleted records that step released or found its target already up to date.
func (s *ReleaseState) MarkCompleted(step StepID) {
	s.Completed[step] = true
}

// WorkDir is a temporary directory owned by exactly one cycle.
type WorkDir struct {
	Path string
}

// NewWorkDir creates a fresh temporary directory.
func NewWorkDir(pattern string) (*WorkDir, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	return &WorkDir{Path: dir}, nil
}

// Close removes the directory and everything below it. It is safe to call on a nil WorkDir.
func (w *WorkDir) Close() error {
	if w == nil || w.Path == "" {
		return nil
	}
	path := w.Path
	w.Path = ""
	return os.RemoveAll(path)
}
