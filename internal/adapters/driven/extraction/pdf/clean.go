package pdf

import (
	"regexp"
	"strings"
)

var (
	blankRuns   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	pageNumbers = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	spaceRuns   = regexp.MustCompile(` +`)
)

// CleanText collapses runs of blank lines, drops lines holding only a page
// number and squeezes repeated spaces.
func CleanText(text string) string {
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = pageNumbers.ReplaceAllString(text, "")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
