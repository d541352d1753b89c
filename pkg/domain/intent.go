package domain

// IntentKind tells where a release intent was discovered.
type IntentKind string

const (
	IntentPullRequest IntentKind = "pull_request"
	IntentIssue       IntentKind = "issue"
)

// ReleaseIntent is the ephemeral result of scanning: a signal that a specific version should be released.
type ReleaseIntent struct {
	Kind    IntentKind `json:"kind"`
	Version string     `json:"version"`
	// SourceReference is the merge commit of a pull request, or the issue node ID.
	SourceReference string `json:"source_reference"`
	// SubjectID identifies the pull request or issue that receives the progress comment.
	SubjectID string `json:"subject_id"`
	Number    int    `json:"number"`
	Title     string `json:"title"`
	// PreviousVersion is the highest released version at scan time.
	PreviousVersion string `json:"previous_version"`
	AuthorLogin     string `json:"author_login,omitempty"`
	AuthorName      string `json:"author_name,omitempty"`
	AuthorEmail     string `json:"author_email,omitempty"`
}

// Trigger selects which discovery paths a cycle runs.
type Trigger string

const (
	// TriggerAll is used by the timer driver.
	TriggerAll         Trigger = "all"
	TriggerIssue       Trigger = "issue"
	TriggerPullRequest Trigger = "pull_request"
)

// Includes reports whether the trigger covers the given discovery path.
func (t Trigger) Includes(kind IntentKind) bool {
	switch t {
	case TriggerAll, "":
		return true
	case TriggerIssue:
		return kind == IntentIssue
	case TriggerPullRequest:
		return kind == IntentPullRequest
	default:
		return false
	}
}
