package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVersion is returned when a string is not a valid semantic version.
	ErrInvalidVersion = errors.New("invalid semantic version")

	// ErrIntentConflict is returned when more than one open issue requests a release.
	ErrIntentConflict = errors.New("multiple release issues are open")

	// ErrNoReleaseConfig is returned when the repository has no usable release-conf.yaml.
	ErrNoReleaseConfig = errors.New("release configuration not found")

	// ErrInvalidConfig is returned when the bot or repository configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrReleaseNotFound is returned when the registry has no release for a version.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrNoTicket is returned when no kerberos ticket could be obtained for the packager.
	ErrNoTicket = errors.New("failed to obtain kerberos ticket")

	// ErrNoNewSources is returned when fetching upstream sources added no file.
	ErrNoNewSources = errors.New("no new sources")

	// ErrDefaultBranch is returned when a packaging step fails on the default branch.
	ErrDefaultBranch = errors.New("default branch update failed")

	// ErrBranchExists is returned when the release branch for a version already exists.
	ErrBranchExists = errors.New("release branch already exists")

	// ErrQueueEmpty is returned by a job queue when no job arrived before the timeout.
	ErrQueueEmpty = errors.New("job queue is empty")
)

// Severity decides how far a failure propagates.
type Severity int

const (
	// SeverityRecoverable failures are logged and noted; the rest of the cycle continues.
	SeverityRecoverable Severity = iota
	// SeverityBranchFatal failures abort the distribution update only.
	SeverityBranchFatal
	// SeverityCycleFatal failures abort the cycle before any side effect.
	SeverityCycleFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityBranchFatal:
		return "fatal-to-branch"
	case SeverityCycleFatal:
		return "fatal-to-cycle"
	default:
		return "unknown"
	}
}

// ReleaseError attaches a severity and the failing step to an underlying error.
type ReleaseError struct {
	Severity Severity
	Step     StepID
	Err      error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Step, e.Severity, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}

// Recoverable wraps err as a recoverable failure of step.
func Recoverable(step StepID, err error) error {
	return &ReleaseError{Severity: SeverityRecoverable, Step: step, Err: err}
}

// BranchFatal wraps err as a failure that aborts the distribution update.
func BranchFatal(step StepID, err error) error {
	return &ReleaseError{Severity: SeverityBranchFatal, Step: step, Err: err}
}

// CycleFatal wraps err as a failure that aborts the whole cycle.
func CycleFatal(step StepID, err error) error {
	return &ReleaseError{Severity: SeverityCycleFatal, Step: step, Err: err}
}

// SeverityOf returns the severity carried by err. Plain errors are recoverable.
func SeverityOf(err error) Severity {
	var re *ReleaseError
	if errors.As(err, &re) {
		return re.Severity
	}
	return SeverityRecoverable
}
