package entities

import (
	"fmt"
	"strings"
)

// HashLength is the number of hex digits in a full revision id.
const HashLength = 40

const abbreviatedLength = 7

// Hash is a content-addressed revision identifier.
type Hash string

// ParseHash validates a full-length hex revision id. Upper-case digits are
// accepted and normalized.
func ParseHash(s string) (Hash, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != HashLength {
		return "", fmt.Errorf("%w: revision id must be %d hex digits, got %q", ErrInvalidArgument, HashLength, s)
	}
	if !IsHex(s) {
		return "", fmt.Errorf("%w: revision id %q is not hex", ErrInvalidArgument, s)
	}
	return Hash(s), nil
}

// IsHex reports whether s consists of lower-case hex digits only.
func IsHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return s != ""
}

// Hex returns the full identifier.
func (h Hash) Hex() string { return string(h) }

// Abbreviate returns the short form used in branch names and replies.
func (h Hash) Abbreviate() string {
	if len(h) <= abbreviatedLength {
		return string(h)
	}
	return string(h[:abbreviatedLength])
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool { return h == "" }

func (h Hash) String() string { return string(h) }
