package util

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// Excerpt strips HTML tags from content and truncates the plain text to
// maxLen characters, appending "..." when anything was cut. Truncation
// counts runes so multi-byte text never splits mid-character.
func Excerpt(content string, maxLen int) string {
	plain := strings.TrimSpace(tagPattern.ReplaceAllString(content, ""))
	runes := []rune(plain)
	if len(runes) <= maxLen {
		return plain
	}
	return string(runes[:maxLen]) + "..."
}
