// Package question picks the visitor's latest real question out of a chat
// history that may carry widget banners and greetings.
package question

import (
	"regexp"
	"strings"

	"portfolio-api/internal/domain"
)

var (
	quoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"\r\n", "\n", "\r", "\n",
	)
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
)

// Extractor applies compiled Rules. It is safe for concurrent use.
type Extractor struct {
	banners   []*regexp.Regexp
	greetings []*regexp.Regexp
	minWords  int
}

// Latest scans messages newest to oldest and returns the cleaned question
// from the first user message that has one.
func (e *Extractor) Latest(messages []domain.Message) (string, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if !messages[i].IsUser() {
			continue
		}
		if q := e.Clean(messages[i].Body.String()); q != "" {
			return q, true
		}
	}
	return "", false
}

// Clean reduces one message's text to its best question line, or "".
func (e *Extractor) Clean(text string) string {
	s := Normalize(text)
	for _, re := range e.banners {
		s = re.ReplaceAllString(s, " ")
	}
	s = collapseSpace(s)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line == "" || e.IsGreeting(line) {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return ""
	}

	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasSuffix(lines[i], "?") || len(strings.Fields(lines[i])) >= e.minWords {
			return lines[i]
		}
	}
	return lines[len(lines)-1]
}

// IsGreeting reports whether s is nothing but a greeting.
func (e *Extractor) IsGreeting(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, re := range e.greetings {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// Normalize straightens curly quotes, unifies line endings, collapses runs of
// horizontal whitespace and trims every line. It is idempotent.
func Normalize(s string) string {
	return collapseSpace(quoteReplacer.Replace(s))
}

func collapseSpace(s string) string {
	lines := strings.Split(horizontalSpace.ReplaceAllString(s, " "), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
