package util

import "strings"

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// Mentions formats ids with the given mention prefix, e.g. "<#" for channels
// or "<@&" for roles.
func Mentions(prefix string, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = prefix + id + ">"
	}
	return out
}

// JoinMentions renders ids as mentions joined by sep.
func JoinMentions(prefix string, ids []string, sep string) string {
	return strings.Join(Mentions(prefix, ids), sep)
}
