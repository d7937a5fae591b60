package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var punctRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
var spaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases, strips punctuation, and collapses whitespace so
// near-identical headlines from different feeds produce the same form.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// StripHTML removes markup from feed-supplied text; feeds routinely ship
// summaries wrapped in HTML. Returns the input unchanged when it does
// not parse.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// Fingerprint derives the stable dedup hash from normalized title and
// source. Unique across all candidates, forever.
func Fingerprint(title, source string) string {
	sum := sha256.Sum256([]byte(Normalize(title) + "|" + Normalize(source)))
	return hex.EncodeToString(sum[:])
}
