package nlp

import (
	"strings"
	"unicode"
)

var lineSeparators = strings.NewReplacer(",", " ", ".", " ", "-", " ", "/", " ")

// detectLine finds the transit line a message mentions, or "" when none (or
// no unambiguous one) is found.
//
// A token names a line only when it equals the line id case-insensitively;
// substring matches caused too many false positives in live chat. Pure-digit
// line ids (trams) additionally require the literal token "tram" directly
// before them, so counts like "2 Kontrolleure" are never read as tram line 2.
func (e *Extractor) detectLine(text string) string {
	words := strings.Fields(lineSeparators.Replace(strings.ToLower(text)))

	// Fuse split line mentions: a lone "s" or "u" followed by another token
	// becomes one token ("u" "8" -> "u8").
	tokens := make([]string, 0, len(words))
	for i, word := range words {
		if (word == "s" || word == "u") && i+1 < len(words) {
			tokens = append(tokens, word+words[i+1])
		} else {
			tokens = append(tokens, word)
		}
	}

	lines := e.topo.Lines() // descending length, so the first hit is the longest

	matches := make(map[string][]string)
	var order []string
	for i, token := range tokens {
		if _, seen := matches[token]; seen {
			continue
		}
		for _, line := range lines {
			if !strings.EqualFold(token, line) {
				continue
			}
			if isDigits(line) && (i == 0 || tokens[i-1] != "tram") {
				continue
			}
			if _, seen := matches[token]; !seen {
				order = append(order, token)
			}
			matches[token] = append(matches[token], line)
		}
	}

	if len(matches) == 0 {
		return ""
	}
	if len(order) == 1 {
		return matches[order[0]][0]
	}
	// Several tokens look like lines; trust only a token that matched more
	// than one id, and take its longest. Anything else stays ambiguous.
	for _, token := range order {
		if len(matches[token]) > 1 {
			return matches[token][0]
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
