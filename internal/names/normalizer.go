// Package names canonicalizes free-text street names so the
// geographic feed, the schedule table and community reports can be
// compared. Every component that compares street names must go
// through Normalize; a second normalization path is a correctness bug.
package names

import "strings"

// Street-type prefixes stripped from the head of a name. Quote
// characters are removed before prefix matching, so the abbreviated
// forms appear here without them.
var streetPrefixes = []string{
	"רחוב ",
	"רח. ",
	"רח ",
	"שדרות ",
	"שד. ",
	"שד ",
	"דרך ",
	"טיילת ",
	"סמטת ",
	"סמ. ",
	"סמ ",
}

var quoteReplacer = strings.NewReplacer(
	"'", "",
	"`", "",
	"\"", "",
	"׳", "",
	"״", "",
	"’", "",
	"‘", "",
	"”", "",
	"“", "",
)

// Normalize canonicalizes a raw street name: quote-style characters
// stripped, whitespace collapsed, recognized street-type prefixes
// removed. Empty input yields the empty string. Normalize is
// idempotent.
func Normalize(raw string) string {
	s := quoteReplacer.Replace(raw)
	s = strings.Join(strings.Fields(s), " ")

	for {
		stripped := false
		for _, prefix := range streetPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return s
}
