package util

import (
	"regexp"
	"strings"
)

var (
	spaceRunPattern   = regexp.MustCompile(`[ \x{00A0}]{2,}`)
	newlineRunPattern = regexp.MustCompile(`\n{3,}`)
)

// TruncateString truncates a string to maxRunes characters (rune-based, not byte-based)
// If truncated, appends "..." to the result
func TruncateString(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "..."
}

// TruncateBytes cuts s to at most n bytes without splitting a UTF-8 sequence.
func TruncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// NormalizeTranscript is the single normalization applied before any cache key
// is derived from a transcript. It is idempotent.
func NormalizeTranscript(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", " ")
	s = spaceRunPattern.ReplaceAllString(s, " ")
	s = newlineRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// NormalizeKey lowercases, collapses whitespace runs and trims. Used to match
// requested skill names against rubric entries.
func NormalizeKey(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
