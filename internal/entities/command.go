package entities

// CommandKind names a supported chat command.
type CommandKind string

const (
	CommandIntegrate CommandKind = "integrate"
	CommandBackport  CommandKind = "backport"
)

// CommandInvocation is an incoming command. It is immutable once dispatched.
// Integrate commands reference a review request, backport commands a commit.
type CommandInvocation struct {
	Kind          CommandKind
	User          User
	Args          string
	Repository    string
	PullRequestID string
	Commit        Hash
}
