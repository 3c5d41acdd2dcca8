package ner

import (
	"context"
	"strings"
	"unicode"
)

// chatStopwords are tokens that never name a location in inspector chat:
// report vocabulary, direction keywords and filler words. The list follows
// the vocabulary observed in the live group.
var chatStopwords = map[string]bool{
	"kontrolle": true, "kontrolleure": true, "kontrolleur": true,
	"kontis": true, "konti": true, "controller": true, "ticket": true,
	"jetzt": true, "gerade": true, "grade": true, "eben": true,
	"heute": true, "achtung": true, "vorsicht": true, "blauwesten": true,
	"westen": true, "zivil": true, "uniform": true, "bahnhof": true,
	"gleis": true, "bahn": true, "tram": true, "bus": true, "zug": true,
	"nach": true, "richtung": true, "bis": true, "zu": true, "to": true,
	"towards": true, "direction": true, "ri": true, "richtig": true,
	"in": true, "im": true, "am": true, "an": true, "auf": true,
	"der": true, "die": true, "das": true, "und": true, "mit": true,
	"bei": true, "von": true, "vom": true, "sind": true, "ist": true,
	"war": true, "waren": true, "and": true, "the": true, "at": true,
	"on": true, "are": true, "is": true, "was": true,
}

// LexiconTagger is a heuristic offline tagger: it strips line mentions,
// direction keywords and chat vocabulary, then emits the remaining token
// runs as spans. Meant as a last resort when neither the NER service nor an
// LLM is configured; the fuzzy matcher downstream absorbs its imprecision.
type LexiconTagger struct {
	lineTokens map[string]bool
}

// NewLexiconTagger creates a tagger that additionally skips the given line
// ids wherever they appear as tokens.
func NewLexiconTagger(lines []string) *LexiconTagger {
	lineTokens := make(map[string]bool, len(lines))
	for _, line := range lines {
		lineTokens[strings.ToLower(line)] = true
	}
	return &LexiconTagger{lineTokens: lineTokens}
}

// Tag returns the location-candidate spans of the message.
func (t *LexiconTagger) Tag(_ context.Context, text string) ([]string, error) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '.' || r == '!' || r == '?'
	})

	var spans []string
	var run []string
	flush := func() {
		if len(run) > 0 {
			spans = append(spans, strings.Join(run, " "))
			run = nil
		}
	}

	for _, token := range tokens {
		lowered := strings.ToLower(token)
		if chatStopwords[lowered] || t.lineTokens[lowered] || isNumeric(lowered) || len([]rune(lowered)) < 3 {
			flush()
			continue
		}
		run = append(run, token)
	}
	flush()
	return spans, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
