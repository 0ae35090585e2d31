package routes

import (
	"regexp"
	"strings"
)

// MaxCommentLength caps the description carried by a route.
const MaxCommentLength = 150

// blockTag finds the first Javadoc block tag. Inline tags such as
// {@link Foo} are preceded by a brace and do not match.
var blockTag = regexp.MustCompile(`(^|\s)@\w+`)

// CleanJavadoc turns a raw /** ... */ block into a one-line description.
func CleanJavadoc(raw string) string {
	if raw == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "/**")
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	text := strings.Join(lines, " ")
	if loc := blockTag.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = strings.Join(strings.Fields(text), " ")

	if r := []rune(text); len(r) > MaxCommentLength {
		text = string(r[:MaxCommentLength]) + "..."
	}
	return text
}
