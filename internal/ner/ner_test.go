package ner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteTagger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract-locations", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "U8 hermannplatz richtung wittenau", req["text"])
		json.NewEncoder(w).Encode(map[string][]string{
			"locations": {"hermannplatz", "wittenau"},
		})
	}))
	defer server.Close()

	tagger := NewRemoteTagger(server.URL)
	spans, err := tagger.Tag(context.Background(), "U8 hermannplatz richtung wittenau")
	require.NoError(t, err)
	assert.Equal(t, []string{"hermannplatz", "wittenau"}, spans)
}

func TestRemoteTaggerServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tagger := NewRemoteTagger(server.URL)
	_, err := tagger.Tag(context.Background(), "osloer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestParseSpanResponse(t *testing.T) {
	spans, err := parseSpanResponse("Here you go:\n```json\n[\"Osloer Straße\", \"Pankow\"]\n```")
	require.NoError(t, err)
	assert.Equal(t, []string{"Osloer Straße", "Pankow"}, spans)

	spans, err = parseSpanResponse("[]")
	require.NoError(t, err)
	assert.Empty(t, spans)

	_, err = parseSpanResponse("no locations found")
	assert.Error(t, err)
}

func TestLexiconTagger(t *testing.T) {
	tagger := NewLexiconTagger([]string{"U8", "U6", "S41"})

	tests := []struct {
		text string
		want []string
	}{
		{"U8 hermannplatz richtung wittenau", []string{"hermannplatz", "wittenau"}},
		{"Kontrolle jetzt U6 Mehringdamm", []string{"Mehringdamm"}},
		{"2 Controller osloer strasse", []string{"osloer strasse"}},
		{"achtung kontrolle", nil},
	}
	for _, tt := range tests {
		spans, err := tagger.Tag(context.Background(), tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, spans, "text: %s", tt.text)
	}
}
