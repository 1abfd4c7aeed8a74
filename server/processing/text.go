package processing

import (
	"regexp"
	"strings"
	"unicode"
)

var tagPattern = regexp.MustCompile(`<.*?>`)

// Normalize produces the canonical form of a chat message: no carriage
// returns, no whitespace runs, no angle-bracket tags, trimmed and lowercase.
// It is total and idempotent.
func Normalize(raw string) string {
	text := ReplaceLineBreaks(raw)
	text = CollapseWhitespace(text)
	text = StripTags(text)
	// Removing a tag can join the spaces on either side of it.
	text = CollapseWhitespace(text)
	text = strings.TrimSpace(text)
	return strings.ToLower(text)
}

// ReplaceLineBreaks replaces every CRLF sequence with a single space.
func ReplaceLineBreaks(text string) string {
	return strings.ReplaceAll(text, "\r\n", " ")
}

// CollapseWhitespace replaces every run of Unicode whitespace with one space.
func CollapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// StripTags removes every <...> substring, matching non-greedily so
// "<b>x</b>" loses both tags but keeps x.
func StripTags(text string) string {
	return tagPattern.ReplaceAllString(text, "")
}
