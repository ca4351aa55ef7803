// Package census resolves forge users to contributor records.
package census

import (
	"fmt"
	"os"
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
	"gopkg.in/yaml.v3"
)

// Directory is the read-only identity service used by the workflows.
type Directory interface {
	// Domain is the mail domain used to derive contributor email addresses.
	Domain() string
	// Contributor looks up a census username.
	Contributor(username string) (entities.Contributor, bool)
	// Resolve maps a forge account through the namespace.
	Resolve(user entities.User) (entities.Contributor, bool)
	// IsCommitter reports whether the forge account may push.
	IsCommitter(user entities.User) bool
	// ProfileURL links to the census page of a username.
	ProfileURL(username string) string
	// BylawsURL links to the definition of a contributor.
	BylawsURL() string
}

type fileContributor struct {
	Username string `yaml:"username"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

type file struct {
	Domain       string            `yaml:"domain"`
	URL          string            `yaml:"url"`
	Bylaws       string            `yaml:"bylaws"`
	Namespace    map[string]string `yaml:"namespace"`
	Contributors []fileContributor `yaml:"contributors"`
}

// Census is an immutable snapshot of the census file.
type Census struct {
	domain    string
	url       string
	bylaws    string
	namespace map[string]string
	people    map[string]entities.Contributor
}

var _ Directory = (*Census)(nil)

// Load reads a census file from disk.
func Load(path string) (*Census, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read census: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML census document.
func Parse(data []byte) (*Census, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode census: %w", err)
	}
	if f.Domain == "" {
		return nil, fmt.Errorf("%w: census domain is required", entities.ErrInvalidArgument)
	}

	c := &Census{
		domain:    f.Domain,
		url:       strings.TrimSuffix(f.URL, "/"),
		bylaws:    f.Bylaws,
		namespace: make(map[string]string, len(f.Namespace)),
		people:    make(map[string]entities.Contributor, len(f.Contributors)),
	}
	for login, username := range f.Namespace {
		c.namespace[login] = username
	}
	for i, p := range f.Contributors {
		if p.Username == "" {
			return nil, fmt.Errorf("%w: contributors[%d] has no username", entities.ErrInvalidArgument, i)
		}
		role := entities.Role(strings.ToLower(p.Role))
		switch role {
		case entities.RoleContributor, entities.RoleCommitter, entities.RoleReviewer:
		case "":
			role = entities.RoleContributor
		default:
			return nil, fmt.Errorf("%w: contributors[%d] has unknown role %q", entities.ErrInvalidArgument, i, p.Role)
		}
		c.people[p.Username] = entities.Contributor{Username: p.Username, FullName: p.FullName, Role: role}
	}
	return c, nil
}

// Domain implements Directory.
func (c *Census) Domain() string { return c.domain }

// Contributor implements Directory.
func (c *Census) Contributor(username string) (entities.Contributor, bool) {
	p, ok := c.people[username]
	return p, ok
}

// Resolve implements Directory.
func (c *Census) Resolve(user entities.User) (entities.Contributor, bool) {
	username, ok := c.namespace[user.Login]
	if !ok {
		return entities.Contributor{}, false
	}
	return c.Contributor(username)
}

// IsCommitter implements Directory.
func (c *Census) IsCommitter(user entities.User) bool {
	p, ok := c.Resolve(user)
	return ok && p.IsCommitter()
}

// ProfileURL implements Directory.
func (c *Census) ProfileURL(username string) string {
	return c.url + "#" + username
}

// BylawsURL implements Directory.
func (c *Census) BylawsURL() string {
	return c.bylaws
}
