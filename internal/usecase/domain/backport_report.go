package domain

import (
	"fmt"
	"strings"

	"github.com/Tubbz-alt/skara/internal/commitmsg"
	"github.com/Tubbz-alt/skara/internal/marker"
)

const commitDateLayout = "2 Jan 2006"

func conflictReport(r *backportRun, unmerged []string) string {
	hash := r.commit.Hash
	target := fmt.Sprintf("[%s](%s)", r.target.Name(), r.target.WebURL())

	lines := []string{
		mention(r.inv.User, ":warning: could not backport `%s` to %s due to conflicts in the following files:",
			hash.Abbreviate(), target),
		"",
	}
	for _, path := range unmerged {
		lines = append(lines, "- "+path)
	}
	lines = append(lines,
		"",
		"To manually resolve these conflicts run the following commands in your personal fork of "+target+":",
		"",
		"```",
		"$ git checkout -b "+r.branch,
		"$ git fetch --no-tags "+r.source.WebURL()+" "+hash.Hex(),
		"$ git cherry-pick --no-commit "+hash.Hex(),
		"$ # Resolve conflicts",
		"$ git add files/with/resolved/conflicts",
		"$ git commit -m 'Backport "+hash.Hex()+"'",
		"```",
		"",
		fmt.Sprintf("Once you have resolved the conflicts as explained above continue with creating a pull request "+
			"towards the %s with the title \"Backport %s\".", target, hash.Hex()),
	)
	return strings.Join(lines, "\n")
}

// backportDescription renders the body of the backport pull request.
func (u *Usecase) backportDescription(r *backportRun) string {
	c := r.commit
	commitURL := c.WebURL
	if commitURL == "" {
		commitURL = r.source.CommitURL(c.Hash)
	}

	info := fmt.Sprintf("The commit being backported was authored by %s on %s",
		c.Author.Name, c.Committed.Format(commitDateLayout))
	reviewers := u.reviewerLinks(commitmsg.Parse(c.Message).Reviewers)
	if len(reviewers) == 0 {
		info += " and had no reviewers."
	} else {
		info += " and was reviewed by " + listing(reviewers) + "."
	}

	name := u.settings.Bot.Name
	if name == "" {
		name = u.settings.Bot.Login
	}
	lines := []string{
		"Hi all,",
		"",
		fmt.Sprintf("this is an _automatically_ generated pull request containing a backport of [%s](%s) as requested by @%s",
			c.Hash.Abbreviate(), commitURL, r.inv.User.Login),
		"",
		info,
		"",
		"Thanks,",
		name,
		"",
		marker.Backport(c.Hash),
	}
	return strings.Join(lines, "\n")
}

func (u *Usecase) reviewerLinks(usernames []string) []string {
	res := make([]string, 0, len(usernames))
	for _, username := range usernames {
		link := fmt.Sprintf("[%s](%s)", username, u.deps.Census.ProfileURL(username))
		if c, ok := u.deps.Census.Contributor(username); ok && c.FullName != "" {
			link = c.FullName + " (" + link + ")"
		}
		res = append(res, link)
	}
	return res
}

// listing joins names with commas and a final "and".
func listing(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
