package hiring

import (
	"regexp"
	"strings"
)

var (
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBold    = regexp.MustCompile(`\*{1,2}([^*]+)\*{1,2}`)
	mdBullet  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdLink    = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdBlank   = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown turns agent output into plain text for the terminal:
// headings, emphasis and links lose their markup and bullets become "• ".
func CleanMarkdown(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = mdHeading.ReplaceAllString(text, "")
	text = mdBullet.ReplaceAllString(text, "• ")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdBlank.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
