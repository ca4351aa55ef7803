package entities

import "time"

// ReviewState enumerates review request lifecycle states.
type ReviewState string

const (
	// StateOpen marks a review request as open.
	StateOpen ReviewState = "OPEN"
	// StateClosed marks a review request as closed.
	StateClosed ReviewState = "CLOSED"
)

// Workflow labels.
const (
	LabelReady      = "ready"
	LabelRFR        = "rfr"
	LabelSponsor    = "sponsor"
	LabelIntegrated = "integrated"
)

// ReviewRequest is the forge's pull request as seen by the engine.
type ReviewRequest struct {
	ID         string
	Repository string
	Title      string
	Body       string
	Author     User
	HeadHash   Hash
	SourceRef  string
	TargetRef  string
	Labels     []string
	State      ReviewState
	WebURL     string
}

// HasLabel reports whether the label is set.
func (r ReviewRequest) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// PreIntegrationRef is the branch name dependent requests target while this
// request is still open.
func (r ReviewRequest) PreIntegrationRef() string {
	return "pr/" + r.ID
}

// Comment is a single entry in a review request's or commit's discussion.
type Comment struct {
	ID        string
	Author    User
	Body      string
	CreatedAt time.Time
}

// ReviewVerdict is the outcome of a structured review.
type ReviewVerdict string

const (
	VerdictApproved ReviewVerdict = "APPROVED"
	VerdictRejected ReviewVerdict = "CHANGES_REQUESTED"
	VerdictNone     ReviewVerdict = "COMMENTED"
)

// Review is a structured approval or rejection.
type Review struct {
	Reviewer    User
	Verdict     ReviewVerdict
	Hash        Hash
	SubmittedAt time.Time
}
