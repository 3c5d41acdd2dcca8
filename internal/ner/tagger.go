// Package ner finds candidate location spans in free text. The extraction
// pipeline treats the tagger as a black box: it only consumes the ordered
// list of spans and fuzzy-matches them against the station pool itself.
package ner

import "context"

// Tagger extracts location-like spans from a message, in order of
// appearance. Spans are verbatim substrings of the input; returning none is
// not an error.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]string, error)
}

// TaggerFunc adapts a function to the Tagger interface.
type TaggerFunc func(ctx context.Context, text string) ([]string, error)

// Tag calls f.
func (f TaggerFunc) Tag(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}
