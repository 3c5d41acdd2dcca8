package nlp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreen(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		accept bool
	}{
		{"normal report", "U8 Hermannplatz Richtung Wittenau", true},
		{"short but valid", "Zoo", true},
		{"too short", "U8", false},
		{"question", "Fährt die U8 heute?", false},
		{"too long", strings.Repeat("a", 251), false},
		{"link", "http://spam.example U8 Hermannplatz", false},
		{"five emojis pass", "Kontrolle 😀😀😀😀😀", true},
		{"six emojis rejected", "Kontrolle 😀😀😀😀😀😀", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Screen(tt.text)
			assert.Equal(t, tt.accept, ok)
			if !tt.accept {
				assert.NotEmpty(t, reason)
			}
		})
	}
}

func TestScreenBoundaryLengths(t *testing.T) {
	ok, _ := Screen(strings.Repeat("a", 250))
	assert.True(t, ok, "exactly 250 characters is still acceptable")

	ok, _ = Screen("ab")
	assert.False(t, ok)

	ok, _ = Screen("abc")
	assert.True(t, ok)
}
