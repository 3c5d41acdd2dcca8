package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

const llmTaggerPrompt = `You extract location names from transit chat messages.

The messages are short reports about ticket inspectors on public transport,
written in German or English, often with typos and slang. Return every
substring that names a station, stop or place, verbatim as it appears in the
message, in order of appearance.

Respond with a JSON array of strings and nothing else. If the message names
no location, respond with [].

Message:
%s`

// LLMTagger uses a chat model as the span extractor. It is the fallback when
// no dedicated NER service is configured.
type LLMTagger struct {
	llm llms.Model
}

// NewLLMTagger creates a tagger over the given model.
func NewLLMTagger(llm llms.Model) *LLMTagger {
	return &LLMTagger{llm: llm}
}

// Tag asks the model for location spans and parses the JSON array out of its
// response. Spans the model invents (not substrings of the input) are
// dropped, so downstream matching only ever sees verbatim message text.
func (t *LLMTagger) Tag(ctx context.Context, text string) ([]string, error) {
	response, err := t.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf(llmTaggerPrompt, text)),
			},
		},
	}, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	responseText := ""
	if response != nil && len(response.Choices) > 0 {
		responseText = response.Choices[0].Content
	}

	spans, err := parseSpanResponse(responseText)
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(text)
	verbatim := spans[:0]
	for _, span := range spans {
		if strings.Contains(lowered, strings.ToLower(span)) {
			verbatim = append(verbatim, span)
		}
	}
	return verbatim, nil
}

func parseSpanResponse(response string) ([]string, error) {
	response = strings.TrimSpace(response)

	jsonStart := strings.Index(response, "[")
	jsonEnd := strings.LastIndex(response, "]")
	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no valid JSON array found in response")
	}

	var spans []string
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &spans); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return spans, nil
}
