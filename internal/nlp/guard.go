// Package nlp turns a free-form chat message into a structured inspector
// sighting: a guard screens out spam, the extractor finds line, station and
// direction, and the verifier applies topology-aware corrections.
package nlp

import "strings"

// Screen decides whether a message is worth running through the extraction
// pipeline. It rejects questions, spam and trivia before any expensive work;
// the reason names the first failed check for the log record.
func Screen(text string) (ok bool, reason string) {
	runes := []rune(text)
	switch {
	case len(runes) < 3:
		return false, "too short"
	case strings.Contains(text, "?"):
		return false, "question"
	case len(runes) > 250:
		return false, "too long"
	case strings.Contains(text, "http"):
		return false, "contains link"
	case countEmoticons(runes) > 5:
		return false, "too many emojis"
	}
	return true, ""
}

// countEmoticons counts characters in the Unicode emoticons block.
func countEmoticons(runes []rune) int {
	var n int
	for _, r := range runes {
		if r >= 0x1F600 && r <= 0x1F64F {
			n++
		}
	}
	return n
}
