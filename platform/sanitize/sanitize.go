// Package sanitize provides text sanitization utilities for user-facing output.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// htmlTagRegex matches HTML tags
	htmlTagRegex = regexp.MustCompile(`<[^>]*>`)
	// spaceRunRegex matches runs of two or more spaces
	spaceRunRegex = regexp.MustCompile(`\s{2,}`)
)

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Re-strip after entity decode to catch encoded tags
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// DisplayText cleans a string for display inside a generated document:
// emoji and other pictographic symbols are removed, control characters and
// line breaks become single spaces, and repeated whitespace is collapsed.
func DisplayText(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case unicode.IsControl(r):
			// drop
		case isDecorative(r):
			// drop
		default:
			b.WriteRune(r)
		}
	}

	out := spaceRunRegex.ReplaceAllString(b.String(), " ")
	return strings.TrimSpace(out)
}

// isDecorative reports whether the rune falls in an emoji or pictograph block.
func isDecorative(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map symbols
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental pictographs
		return true
	case r >= 0x1F1E0 && r <= 0x1F1FF: // regional indicators
		return true
	case r >= 0x2700 && r <= 0x27BF: // dingbats
		return true
	case r >= 0x2600 && r <= 0x26FF: // miscellaneous symbols
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, zero-width joiner
		return true
	}
	return false
}
