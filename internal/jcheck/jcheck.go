// Package jcheck runs the final review rules on a candidate revision before
// it is pushed.
package jcheck

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tubbz-alt/skara/internal/census"
	"github.com/Tubbz-alt/skara/internal/commitmsg"
	"github.com/Tubbz-alt/skara/internal/entities"
	"github.com/Tubbz-alt/skara/internal/vcs"
)

// Checker inspects a candidate revision and returns the rule violations.
// An empty result means the revision may be pushed.
type Checker interface {
	Check(ctx context.Context, repo vcs.Repository, rev entities.Hash, dir census.Directory) ([]string, error)
}

// Rule inspects one aspect of a commit.
type Rule func(c *entities.Commit, msg commitmsg.Message, dir census.Directory) []string

// Rules is a Checker evaluating a fixed list of rules in order.
type Rules []Rule

var _ Checker = Rules(nil)

// Default returns the standard rule set.
func Default(minReviewers int) Rules {
	return Rules{
		TitleRule,
		AuthorRule,
		ReviewersRule(minReviewers),
	}
}

// Check implements Checker.
func (r Rules) Check(ctx context.Context, repo vcs.Repository, rev entities.Hash, dir census.Directory) ([]string, error) {
	c, err := repo.Lookup(ctx, rev)
	if err != nil {
		return nil, fmt.Errorf("jcheck %s: %w", rev, err)
	}
	msg := commitmsg.Parse(c.Message)
	var problems []string
	for _, rule := range r {
		problems = append(problems, rule(c, msg, dir)...)
	}
	return problems, nil
}

// TitleRule requires a non-empty title without trailing punctuation.
func TitleRule(_ *entities.Commit, msg commitmsg.Message, _ census.Directory) []string {
	if msg.Title == "" {
		return []string{"The commit message must start with a non-empty title"}
	}
	if strings.HasSuffix(msg.Title, ".") {
		return []string{"The commit message title must not end with a period"}
	}
	return nil
}

// AuthorRule requires a complete author identity.
func AuthorRule(c *entities.Commit, _ commitmsg.Message, _ census.Directory) []string {
	var problems []string
	if strings.TrimSpace(c.Author.Name) == "" {
		problems = append(problems, "The commit author has no name")
	}
	if !strings.Contains(c.Author.Email, "@") {
		problems = append(problems, fmt.Sprintf("The commit author email `%s` is not valid", c.Author.Email))
	}
	return problems
}

// ReviewersRule requires credited reviewers to be known to the census and at
// least minimum of them to hold the reviewer role.
func ReviewersRule(minimum int) Rule {
	return func(_ *entities.Commit, msg commitmsg.Message, dir census.Directory) []string {
		var problems []string
		qualified := 0
		for _, username := range msg.Reviewers {
			p, ok := dir.Contributor(username)
			if !ok {
				problems = append(problems, fmt.Sprintf("The reviewer `%s` is not a known contributor", username))
				continue
			}
			if p.Role == entities.RoleReviewer {
				qualified++
			}
		}
		if qualified < minimum {
			noun := "reviewer"
			if minimum != 1 {
				noun += "s"
			}
			problems = append(problems, fmt.Sprintf("The change must be reviewed by at least %d %s with role reviewer", minimum, noun))
		}
		return problems
	}
}
