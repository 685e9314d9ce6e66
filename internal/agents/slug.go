package agents

import (
	"strings"
	"unicode"

	"github.com/example/research-reporter/internal/models"
)

// Slugify lowercases s, turns whitespace into hyphens and drops everything
// that is not a letter, digit or hyphen. Hyphen runs collapse to one.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// tableOfContents pairs every planned heading with its anchor.
func tableOfContents(names []string) []models.TOCEntry {
	out := make([]models.TOCEntry, 0, len(names))
	for _, n := range names {
		out = append(out, models.TOCEntry{Name: n, Anchor: Slugify(n)})
	}
	return out
}
