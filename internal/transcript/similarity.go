package transcript

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/xrash/smetrics"
	"golang.org/x/text/unicode/norm"
)

var (
	titleWords = regexp.MustCompile(`\b(account|executive|exec|manager|director|turnitin|inc|ltd|llc)\b`)
	nonLetters = regexp.MustCompile(`[^a-z\s]`)
)

// canonName lowercases, strips accents and job-title noise.
func canonName(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	t := strings.ToLower(b.String())
	t = titleWords.ReplaceAllString(t, " ")
	t = nonLetters.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

// Winkler prefix boost settings used for display names.
const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// NameSimilarity is the Jaro-Winkler similarity of two display names after
// canonName. A name that canonicalises to nothing matches nothing.
func NameSimilarity(a, b string) float64 {
	ca, cb := canonName(a), canonName(b)
	if ca == "" || cb == "" {
		return 0
	}
	return smetrics.JaroWinkler(ca, cb, boostThreshold, prefixSize)
}
