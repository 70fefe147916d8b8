package publish

import (
	"regexp"
	"strings"
)

var (
	// Collapses runs of whitespace that are not newlines; line breaks are
	// meaningful in note bodies and must survive normalization.
	interiorSpace = regexp.MustCompile(`[^\S\n]+`)

	topicPattern     = regexp.MustCompile(`#([^\s#]+)`)
	topicNameCleaner = regexp.MustCompile(`[^\p{L}\p{N}_]`)
)

// NormalizeText keeps only characters in the Basic Multilingual Plane,
// replacing the rest with spaces, then collapses interior whitespace. The
// browser input path drops supplementary-plane characters (most emoji)
// rather than typing them.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r <= 0xFFFF {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.TrimSpace(interiorSpace.ReplaceAllString(b.String(), " "))
}

// ExtractTopics pulls `#topic` tags out of body text, returning the body
// with the tags removed alongside the deduplicated topic names. Topic names
// are stripped to letters, digits, and underscores.
func ExtractTopics(body string) (string, []string) {
	matches := topicPattern.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return body, nil
	}

	var topics []string
	seen := map[string]bool{}
	for _, m := range matches {
		name := topicNameCleaner.ReplaceAllString(m[1], "")
		if name != "" && !seen[name] {
			topics = append(topics, name)
			seen[name] = true
		}
	}

	cleaned := topicPattern.ReplaceAllString(body, "")
	cleaned = strings.TrimSpace(interiorSpace.ReplaceAllString(cleaned, " "))
	return cleaned, topics
}
