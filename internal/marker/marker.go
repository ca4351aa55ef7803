// Package marker reads and writes the structured tokens the bot embeds in
// its comments.
//
// A marker occupies one line and has the form
//
//	<!-- KEYWORD PAYLOAD -->
//
// where KEYWORD is one of the fixed keywords below and PAYLOAD is either a
// full 40 digit lower-case hex revision id or a single whitespace-free
// username, depending on the keyword.
package marker

import (
	"sort"
	"strings"

	"github.com/Tubbz-alt/skara/internal/entities"
)

const (
	openToken  = "<!-- "
	closeToken = " -->"
)

// Kind is a marker keyword.
type Kind string

const (
	// KindBackport records the source revision of a backport request.
	KindBackport Kind = "backport"
	// KindReadyForSponsor records the head approved for sponsoring.
	KindReadyForSponsor Kind = "ready-for-sponsor"
	// KindAddReviewer credits a reviewer added by comment.
	KindAddReviewer Kind = "add reviewer"
	// KindRemoveReviewer withdraws a credit added by comment.
	KindRemoveReviewer Kind = "remove reviewer"
)

// keywords is ordered longest first so that no keyword shadows another.
var keywords = []Kind{KindReadyForSponsor, KindRemoveReviewer, KindAddReviewer, KindBackport}

// Marker is a parsed token. Exactly one of Hash and User is set.
type Marker struct {
	Kind Kind
	Hash entities.Hash
	User string
}

func (k Kind) carriesHash() bool {
	return k == KindBackport || k == KindReadyForSponsor
}

// Backport renders a backport provenance marker.
func Backport(h entities.Hash) string { return render(KindBackport, h.Hex()) }

// ReadyForSponsor renders a ready-for-sponsor marker.
func ReadyForSponsor(h entities.Hash) string { return render(KindReadyForSponsor, h.Hex()) }

// AddReviewer renders a manual reviewer credit.
func AddReviewer(username string) string { return render(KindAddReviewer, username) }

// RemoveReviewer renders the withdrawal of a manual reviewer credit.
func RemoveReviewer(username string) string { return render(KindRemoveReviewer, username) }

func render(k Kind, payload string) string {
	return openToken + string(k) + " " + payload + closeToken
}

// Parse reads a single line. It returns false unless the whole line, after
// trimming surrounding whitespace, is a well-formed marker.
func Parse(line string) (Marker, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, openToken) || !strings.HasSuffix(line, closeToken) || len(line) < len(openToken)+len(closeToken) {
		return Marker{}, false
	}
	inner := line[len(openToken) : len(line)-len(closeToken)]
	for _, k := range keywords {
		prefix := string(k) + " "
		if !strings.HasPrefix(inner, prefix) {
			continue
		}
		payload := inner[len(prefix):]
		if k.carriesHash() {
			if len(payload) != entities.HashLength || !entities.IsHex(payload) {
				return Marker{}, false
			}
			return Marker{Kind: k, Hash: entities.Hash(payload)}, true
		}
		if payload == "" || strings.ContainsAny(payload, " \t") {
			return Marker{}, false
		}
		return Marker{Kind: k, User: payload}, true
	}
	return Marker{}, false
}

// Scan returns every marker in body, in line order.
func Scan(body string) []Marker {
	var res []Marker
	for _, line := range strings.Split(body, "\n") {
		if m, ok := Parse(line); ok {
			res = append(res, m)
		}
	}
	return res
}

// chronological returns the comments authored by bot, oldest first.
func chronological(comments []entities.Comment, bot entities.User) []entities.Comment {
	own := make([]entities.Comment, 0, len(comments))
	for _, c := range comments {
		if c.Author.Is(bot) {
			own = append(own, c)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].CreatedAt.Before(own[j].CreatedAt)
	})
	return own
}

// FirstBackport returns the source revision recorded by the oldest backport
// marker the bot wrote. Later or duplicate markers are ignored.
func FirstBackport(comments []entities.Comment, bot entities.User) (entities.Hash, bool) {
	for _, c := range chronological(comments, bot) {
		for _, m := range Scan(c.Body) {
			if m.Kind == KindBackport {
				return m.Hash, true
			}
		}
	}
	return "", false
}

// LatestReadyForSponsor returns the head recorded by the newest
// ready-for-sponsor marker the bot wrote.
func LatestReadyForSponsor(comments []entities.Comment, bot entities.User) (entities.Hash, bool) {
	var (
		latest entities.Hash
		found  bool
	)
	for _, c := range chronological(comments, bot) {
		for _, m := range Scan(c.Body) {
			if m.Kind == KindReadyForSponsor {
				latest, found = m.Hash, true
			}
		}
	}
	return latest, found
}

// ManualReviewers replays add/remove reviewer markers in order and returns
// the credited usernames in the order they were first added.
func ManualReviewers(comments []entities.Comment, bot entities.User) []string {
	var order []string
	credited := make(map[string]bool)
	for _, c := range chronological(comments, bot) {
		for _, m := range Scan(c.Body) {
			switch m.Kind {
			case KindAddReviewer:
				if !credited[m.User] {
					credited[m.User] = true
					order = append(order, m.User)
				}
			case KindRemoveReviewer:
				if credited[m.User] {
					delete(credited, m.User)
					order = remove(order, m.User)
				}
			}
		}
	}
	return order
}

func remove(list []string, target string) []string {
	res := make([]string, 0, len(list))
	for _, v := range list {
		if v != target {
			res = append(res, v)
		}
	}
	return res
}
