package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			words:    []string{"badger", "badger", "badger"},
		},
		{
			name: "Leet speak and internal punctuation",
			// "B.4.d.g.€r" spans 10 runes, all replaced
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
			words:    []string{"badger"},
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
			words:    []string{"snake", "badger"},
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
			words:    []string{"badger"},
		},
		{
			name:     "Clean message stays untouched",
			input:    "Nothing to hide in here",
			expected: "Nothing to hide in here",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sanitized, found := mod.Censor(tt.input)
			req.Equal(tt.expected, sanitized)
			req.Equal(tt.words, found)
		})
	}
}

func TestLoadCensoredWords_Embedded_Dictionaries(t *testing.T) {
	req := require.New(t)

	// When loading the embedded language files
	data, err := LoadCensoredWords()

	// Then words are deduplicated across languages
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.NotEmpty(data.Words)
	seen := map[string]int{}
	for _, w := range data.Words {
		seen[w]++
		req.Equal(1, seen[w])
	}
	req.Contains(data.Words, "idiot")
}
