package entities

// Role is a census role.
type Role string

const (
	// RoleContributor may author changes but not push them.
	RoleContributor Role = "contributor"
	// RoleCommitter may push to shared branches and sponsor others.
	RoleCommitter Role = "committer"
	// RoleReviewer is a committer whose approvals count as reviews.
	RoleReviewer Role = "reviewer"
)

// Contributor is a census record. The engine never mutates it.
type Contributor struct {
	Username string
	FullName string
	Role     Role
}

// IsCommitter reports whether the contributor has push privilege.
func (c Contributor) IsCommitter() bool {
	return c.Role == RoleCommitter || c.Role == RoleReviewer
}

// DisplayName returns the full name when known, the username otherwise.
func (c Contributor) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Username
}
