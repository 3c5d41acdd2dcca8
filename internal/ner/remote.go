package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteTagger calls a dedicated NER service over HTTP. The service wraps a
// transformer model fine-tuned on transit chat; its API is a single POST
// /extract-locations endpoint.
type RemoteTagger struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteTagger creates a tagger for the NER service at baseURL.
func NewRemoteTagger(baseURL string) *RemoteTagger {
	return &RemoteTagger{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Locations []string `json:"locations"`
}

// Tag sends the message to the NER service and returns the spans it found.
func (t *RemoteTagger) Tag(ctx context.Context, text string) ([]string, error) {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/extract-locations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ner service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ner service returned %d: %s", resp.StatusCode, respBody)
	}

	var result remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding ner response: %w", err)
	}
	return result.Locations, nil
}
