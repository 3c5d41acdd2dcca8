package nlp

import (
	"context"
	"regexp"
	"strings"
)

// directionKeywords are the lexical triggers that mark the next (or
// previous) word as the train's heading. Closed set, multilingual, includes
// the common "richtig" typo for "richtung".
var directionKeywords = map[string]bool{
	"nach": true, "richtung": true, "bis": true, "zu": true,
	"to": true, "towards": true, "direction": true, "ri": true,
	"richtig": true,
}

var standaloneSU = regexp.MustCompile(`\b(s|u)\b`)

var stationSeparators = strings.NewReplacer(".", " ", ",", " ")

// normalizeText produces the working form for direction and station
// detection: lowercased, dots and commas spaced out, and standalone s/u
// tokens removed since they are line prefixes, not name material.
func normalizeText(text string) string {
	return standaloneSU.ReplaceAllString(stationSeparators.Replace(strings.ToLower(text)), "")
}

// findDirection scans normalized text for a direction keyword and resolves
// the heading station around it. It returns the residual text with the
// keyword and the consumed word removed, so station detection never re-reads
// the same word.
func (e *Extractor) findDirection(ctx context.Context, text, line string) (direction, residual string, err error) {
	words := strings.Fields(text)

	for i, word := range words {
		if !directionKeywords[word] {
			continue
		}

		parts := strings.SplitN(text, word, 2)
		var lastTried string
		if len(parts) > 1 {
			for _, candidate := range strings.Fields(parts[1]) {
				lastTried = candidate
				found, _, err := e.findStation(ctx, candidate, line, false)
				if err != nil {
					return "", text, err
				}
				if found != "" {
					return found, removeDirectionAndKeyword(text, word, candidate), nil
				}
			}
		}

		// Nothing after the keyword resolved; try the word before it
		// ("osloer richtung" style).
		if i > 0 {
			found, _, err := e.findStation(ctx, words[i-1], line, false)
			if err != nil {
				return "", text, err
			}
			if found != "" {
				return found, removeDirectionAndKeyword(text, word, lastTried), nil
			}
		}
	}

	return "", text, nil
}

// removeDirectionAndKeyword strips the consumed "keyword word" pair from the
// text; when the exact pair is absent, only the first keyword occurrence
// goes.
func removeDirectionAndKeyword(text, keyword, word string) string {
	if word != "" {
		segment := keyword + " " + word
		if strings.Contains(text, segment) {
			return strings.TrimSpace(strings.ReplaceAll(text, segment, ""))
		}
	}
	return strings.TrimSpace(strings.Replace(text, keyword, "", 1))
}
