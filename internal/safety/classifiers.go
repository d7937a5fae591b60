package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternClassifier flags any match from a fixed regexp set and charges
// a flat penalty per distinct matching pattern.
type PatternClassifier struct {
	name     string
	penalty  int
	patterns []*regexp.Regexp
}

// NewPatternClassifier compiles the given patterns case-insensitively.
func NewPatternClassifier(name string, penalty int, patterns []string) *PatternClassifier {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile("(?i)"+p))
	}
	return &PatternClassifier{name: name, penalty: penalty, patterns: compiled}
}

// Name identifies the classifier in violation strings.
func (c *PatternClassifier) Name() string { return c.name }

// Inspect reports the summed penalty and the matched patterns.
func (c *PatternClassifier) Inspect(text string) (int, []string) {
	total := 0
	var violations []string
	for _, re := range c.patterns {
		if re.MatchString(text) {
			total += c.penalty
			violations = append(violations, re.String())
		}
	}
	return total, violations
}

var misinfoPatterns = []string{
	`5g causes cancer`,
	`vaccines cause autism`,
	`flat earth`,
	`chemtrails`,
	`crisis actors`,
	`miracle cure`,
	`drinking bleach`,
}

var clickbaitPatterns = []string{
	`you won't believe`,
	`doctors hate`,
	`one weird trick`,
	`shocking secret`,
	`they don't want you to know`,
	`number \d+ will shock you`,
	`what happened next will`,
}

var spamPatterns = []string{
	`buy now`,
	`click here`,
	`limited time offer`,
	`earn \$\d+ from home`,
	`free money`,
	`get rich quick`,
}

var violencePatterns = []string{
	`\bkill all\b`,
	`\bexterminate\b`,
	`\bmass murder\b`,
	`\bgraphic (content|footage)\b`,
}

var unreliableSources = []string{
	"infowars", "naturalnews", "beforeitsnews", "yournewswire",
	"truepundit", "zerohedge",
}

// DefaultRegistry assembles the standard battery. Penalty weights: the
// worst single category alone clears a mid-range threshold, while mild
// clickbait only dents the score.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPatternClassifier("violence", 60, violencePatterns))
	r.Register(NewPatternClassifier("misinformation", 50, misinfoPatterns))
	r.Register(NewPatternClassifier("clickbait", 15, clickbaitPatterns))
	r.Register(NewPatternClassifier("spam", 20, spamPatterns))
	return r
}

func inspectSource(source string) (int, []string) {
	src := strings.ToLower(source)
	for _, bad := range unreliableSources {
		if strings.Contains(src, bad) {
			return 50, []string{fmt.Sprintf("source: unreliable outlet %q", bad)}
		}
	}
	return 0, nil
}
