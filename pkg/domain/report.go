package domain

import (
	"fmt"
	"strings"
	"time"
)

// StepID identifies one publishing step of the state machine.
type StepID string

const (
	StepGitHub       StepID = "github"
	StepPackageIndex StepID = "pypi"
	StepDistribution StepID = "fedora"
	// Steps outside the three publishing targets, used in error reporting.
	StepScan      StepID = "scan"
	StepConfig    StepID = "config"
	StepReleasePR StepID = "release_pr"
	StepComment   StepID = "comment"
	StepCycle     StepID = "cycle"
)

// StepStatus is the outcome of one step within a cycle.
type StepStatus string

const (
	StepReleased StepStatus = "released"
	StepSkipped  StepStatus = "skipped"
	StepFailed   StepStatus = "failed"
	StepDisabled StepStatus = "disabled"
)

// StepResult records what happened to a step in one cycle.
type StepResult struct {
	Step   StepID     `json:"step"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// BranchStatus is the per-branch outcome of a distribution update.
type BranchStatus string

const (
	BranchUpdated BranchStatus = "updated"
	BranchSkipped BranchStatus = "skipped"
	BranchFailed  BranchStatus = "failed"
)

// BranchResult is the outcome of updating one distribution branch.
type BranchResult struct {
	Branch string       `json:"branch"`
	Status BranchStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// BuildReport collects branch results in the order branches were processed.
type BuildReport []BranchResult

// Updated returns the names of branches that received the new version.
func (r BuildReport) Updated() []string {
	var out []string
	for _, b := range r {
		if b.Status == BranchUpdated {
			out = append(out, b.Branch)
		}
	}
	return out
}

// CycleReport is the outcome of one full cycle, handed to drivers and the ledger.
type CycleReport struct {
	ID         string         `json:"id"`
	Repository string         `json:"repository"`
	Trigger    Trigger        `json:"trigger"`
	Intent     *ReleaseIntent `json:"intent,omitempty"`
	Steps      []StepResult   `json:"steps,omitempty"`
	Branches   BuildReport    `json:"branches,omitempty"`
	Notes      []string       `json:"notes,omitempty"`
	// Trail lists the machine states visited, starting at Idle.
	Trail      []CycleState `json:"trail,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Err        string       `json:"error,omitempty"`
}

// Step returns the result recorded for id, if any.
func (r *CycleReport) Step(id StepID) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == id {
			return s, true
		}
	}
	return StepResult{}, false
}

// Outcome summarises the cycle for metrics and logs.
func (r *CycleReport) Outcome() string {
	switch {
	case r.Err != "":
		return "error"
	case r.Intent == nil:
		return "idle"
	}
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return "partial"
		}
	}
	return "success"
}

// Notes is the append-only progress buffer of one cycle.
// It is flushed as a single comment at the end of the cycle.
type Notes struct {
	lines []string
}

// Addf appends a formatted progress line.
func (n *Notes) Addf(format string, args ...any) {
	n.lines = append(n.lines, fmt.Sprintf(format, args...))
}

// Lines returns a copy of the buffered lines.
func (n *Notes) Lines() []string {
	return append([]string(nil), n.lines...)
}

// Empty reports whether nothing was buffered.
func (n *Notes) Empty() bool {
	return len(n.lines) == 0
}

// String joins the lines into the comment body.
func (n *Notes) String() string {
	return strings.Join(n.lines, "\n")
}

// Reset clears the buffer.
func (n *Notes) Reset() {
	n.lines = nil
}
