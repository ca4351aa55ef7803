package entities

// CheckStatus is the state of an automated status check.
type CheckStatus string

const (
	CheckSuccess    CheckStatus = "SUCCESS"
	CheckInProgress CheckStatus = "IN_PROGRESS"
	CheckFailure    CheckStatus = "FAILURE"
)

// Check is a named automated check run against a revision.
type Check struct {
	Name   string
	Hash   Hash
	Status CheckStatus
}
