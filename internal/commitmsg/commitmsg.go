// Package commitmsg parses and formats the structured commit messages the
// bot writes when integrating a change.
//
//	Title line
//
//	Optional summary paragraph
//
//	Co-authored-by: Name <email>
//	Reviewed-by: alice, bob
//	Backport-of: <40 hex digits>
package commitmsg

import (
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
)

const (
	coAuthorPrefix = "Co-authored-by: "
	reviewedPrefix = "Reviewed-by: "
	backportPrefix = "Backport-of: "
)

// Message is a structured commit message.
type Message struct {
	Title     string
	Summary   []string
	CoAuthors []entities.Ident
	Reviewers []string
	Original  entities.Hash
}

// Parse reads a commit message. Unknown lines after the title become
// summary lines; trailers are recognised anywhere after the title.
func Parse(text string) Message {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	var m Message
	if len(lines) == 0 {
		return m
	}
	m.Title = strings.TrimSpace(lines[0])
	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, coAuthorPrefix) {
			if id, ok := ParseIdent(strings.TrimPrefix(line, coAuthorPrefix)); ok {
				m.CoAuthors = append(m.CoAuthors, id)
				continue
			}
		}
		if strings.HasPrefix(line, reviewedPrefix) {
			for _, r := range strings.Split(strings.TrimPrefix(line, reviewedPrefix), ",") {
				if r = strings.TrimSpace(r); r != "" {
					m.AddReviewer(r)
				}
			}
			continue
		}
		if strings.HasPrefix(line, backportPrefix) {
			if h, err := entities.ParseHash(strings.TrimPrefix(line, backportPrefix)); err == nil {
				m.Original = h
				continue
			}
		}
		m.Summary = append(m.Summary, line)
	}
	return m
}

// CoAuthors extracts Co-authored-by trailers from free text such as a pull
// request description.
func CoAuthors(text string) []entities.Ident {
	var res []entities.Ident
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, coAuthorPrefix) {
			continue
		}
		if id, ok := ParseIdent(strings.TrimPrefix(line, coAuthorPrefix)); ok {
			res = append(res, id)
		}
	}
	return res
}

// ParseIdent reads "Name <email>".
func ParseIdent(s string) (entities.Ident, bool) {
	s = strings.TrimSpace(s)
	lt := strings.LastIndex(s, "<")
	if lt <= 0 || !strings.HasSuffix(s, ">") {
		return entities.Ident{}, false
	}
	name := strings.TrimSpace(s[:lt])
	email := strings.TrimSpace(s[lt+1 : len(s)-1])
	if name == "" || email == "" {
		return entities.Ident{}, false
	}
	return entities.Ident{Name: name, Email: email}, true
}

// AddReviewer appends a reviewer unless already credited.
func (m *Message) AddReviewer(username string) {
	for _, r := range m.Reviewers {
		if r == username {
			return
		}
	}
	m.Reviewers = append(m.Reviewers, username)
}

// Format renders the message.
func (m Message) Format() string {
	var b strings.Builder
	b.WriteString(m.Title)
	b.WriteString("\n")
	if len(m.Summary) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(m.Summary, "\n"))
		b.WriteString("\n")
	}

	var trailers []string
	for _, c := range m.CoAuthors {
		trailers = append(trailers, coAuthorPrefix+c.String())
	}
	if len(m.Reviewers) > 0 {
		trailers = append(trailers, reviewedPrefix+strings.Join(m.Reviewers, ", "))
	}
	if !m.Original.IsZero() {
		trailers = append(trailers, backportPrefix+m.Original.Hex())
	}
	if len(trailers) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(trailers, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}
