package model

import "strings"

// Stripe checkout session identifiers start with this prefix and never exceed
// SessionIDMaxLen characters.
const (
	SessionIDPrefix = "cs_"
	SessionIDMaxLen = 66
)

// SanitizeSessionID normalizes a raw redirect query value into something safe
// to use as a lookup key. Redirects occasionally arrive mangled: a fragment or
// a second query string glued onto the token, or the whole token duplicated
// back-to-back by a double navigation. Returns "" when nothing usable remains.
func SanitizeSessionID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Cut accidental fragment/query concatenation. The separators are only
	// meaningful after the token itself has started.
	if i := strings.IndexAny(s, "#?"); i > 0 {
		s = s[:i]
	} else if i == 0 {
		return ""
	}

	// Fold a duplicated token: "cs_abc...cs_def..." keeps the first occurrence.
	if strings.HasPrefix(s, SessionIDPrefix) {
		if j := strings.Index(s[len(SessionIDPrefix):], SessionIDPrefix); j >= 0 {
			s = s[:len(SessionIDPrefix)+j]
		}
	}

	return strings.TrimSpace(s)
}

// IsValidSessionID reports whether id may be sent to the backend at all.
// Anything failing this check must short-circuit before any network call.
func IsValidSessionID(id string) bool {
	if id == "" || len(id) > SessionIDMaxLen {
		return false
	}
	return strings.HasPrefix(id, SessionIDPrefix) && len(id) > len(SessionIDPrefix)
}
