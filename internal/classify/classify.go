// Package classify assigns category and region tags from keyword
// dictionaries and derives event signatures for repeat-coverage
// detection.
package classify

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultCategory is assigned when no dictionary keyword matches.
	DefaultCategory = "general"
	// DefaultRegion is assigned when no regional hint is found.
	DefaultRegion = "global"
)

var categoryKeywords = map[string][]string{
	"geopolitics": {"war", "military", "attack", "conflict", "sanction", "invasion", "strike", "troops", "defense", "missile"},
	"economy":     {"market", "stock", "trade", "inflation", "gdp", "recession", "economy", "financial", "bank", "interest rate"},
	"tech":        {"artificial intelligence", "tech", "software", "startup", "cybersecurity", "algorithm", "crypto"},
	"health":      {"pandemic", "vaccine", "health", "disease", "medical", "virus", "hospital", "treatment"},
	"climate":     {"climate", "weather", "hurricane", "flood", "wildfire", "carbon", "emission", "green energy"},
	"politics":    {"election", "president", "congress", "parliament", "vote", "campaign", "minister", "government", "policy"},
	"disaster":    {"earthquake", "tsunami", "disaster", "emergency", "evacuation", "casualty", "rescue"},
	"business":    {"merger", "acquisition", "ceo", "revenue", "profit", "earnings", "ipo", "investment"},
	"sports":      {"match", "tournament", "championship", "league", "olympic", "goal", "cricket", "football"},
}

var regionKeywords = map[string][]string{
	"north_america": {"usa", "america", "united states", "canada", "mexico"},
	"south_america": {"venezuela", "brazil", "argentina", "colombia", "chile", "peru"},
	"europe":        {"uk", "britain", "france", "germany", "italy", "spain", "russia", "ukraine"},
	"middle_east":   {"israel", "iran", "saudi", "syria", "iraq", "lebanon", "yemen"},
	"asia":          {"china", "japan", "korea", "india", "pakistan", "indonesia", "philippines", "nepal"},
	"africa":        {"nigeria", "south africa", "kenya", "egypt", "ethiopia"},
	"oceania":       {"australia", "new zealand"},
}

var signatureStopwords = map[string]bool{
	"breaking": true, "the": true, "a": true, "an": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"by": true, "with": true, "after": true, "over": true,
}

var wordRe = regexp.MustCompile(`\b\w+\b`)

// Category returns the first matching category for the text, keys in
// stable order so repeated calls agree.
func Category(headline, body string) string {
	text := strings.ToLower(headline + " " + body)
	for _, cat := range sortedKeys(categoryKeywords) {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return DefaultCategory
}

// Region returns the geographic region hinted by the text or source name.
func Region(headline, body, source string) string {
	text := strings.ToLower(headline + " " + body)
	for _, region := range sortedKeys(regionKeywords) {
		for _, kw := range regionKeywords[region] {
			if strings.Contains(text, kw) {
				return region
			}
		}
	}

	src := strings.ToLower(source)
	switch {
	case strings.Contains(src, "asia"):
		return "asia"
	case strings.Contains(src, "europe"):
		return "europe"
	}
	return DefaultRegion
}

// EventSignature reduces a headline to its first significant words,
// sorted, so differently worded coverage of one event collides.
func EventSignature(headline string) string {
	words := wordRe.FindAllString(strings.ToLower(headline), -1)
	significant := make([]string, 0, 4)
	for _, w := range words {
		if signatureStopwords[w] || len(w) <= 3 {
			continue
		}
		significant = append(significant, w)
		if len(significant) == 4 {
			break
		}
	}
	sort.Strings(significant)
	return strings.Join(significant, " ")
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
