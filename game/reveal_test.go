package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObscureShowFull(t *testing.T) {
	lines := []string{"", "the quick brown fox", "ночь, улица, фонарь", "123 !?"}
	for _, line := range lines {
		assert.Equal(t, line, Obscure(line, true, true, 33))
		assert.Equal(t, line, Obscure(line, true, false, 10))
	}
}

func TestObscure(t *testing.T) {
	tests := []struct {
		name           string
		line           string
		revealLastWord bool
		percent        int
		want           string
	}{
		{
			name:           "empty line",
			line:           "",
			revealLastWord: true,
			percent:        50,
			want:           "",
		},
		{
			name:           "no reveal masks every letter",
			line:           "roses are red",
			revealLastWord: false,
			percent:        50,
			want:           "∗∗∗∗∗ ∗∗∗ ∗∗∗",
		},
		{
			name:           "punctuation and digits untouched",
			line:           "1, 2, 3!",
			revealLastWord: false,
			percent:        50,
			want:           "1, 2, 3!",
		},
		{
			// 11 letters total, 50% -> 5; last word has 4 letters,
			// so all of it shows.
			name:           "short last word fully revealed",
			line:           "roses are red",
			revealLastWord: true,
			percent:        50,
			want:           "∗∗∗∗∗ ∗∗∗ red",
		},
		{
			// 13 letters total, 10% -> 1; only the trailing letter of
			// the last word shows.
			name:           "long last word truncated to budget",
			line:           "a tiny violetflower",
			revealLastWord: true,
			percent:        10,
			want:           "∗ ∗∗∗∗ ∗∗∗∗∗∗∗∗∗∗∗r",
		},
		{
			// Trailing punctuation stays put; the word before it is
			// the last word.
			name:           "trailing punctuation",
			line:           "who goes there?",
			revealLastWord: true,
			percent:        50,
			want:           "∗∗∗ ∗∗∗∗ there?",
		},
		{
			name:           "cyrillic",
			line:           "мороз и солнце",
			revealLastWord: true,
			percent:        50,
			want:           "∗∗∗∗∗ ∗ солнце",
		},
		{
			// 12 letters, 10% -> 1 letter budget.
			name:           "cyrillic small budget",
			line:           "мороз и солнце",
			revealLastWord: true,
			percent:        10,
			want:           "∗∗∗∗∗ ∗ ∗∗∗∗∗е",
		},
		{
			name:           "zero budget reveals nothing",
			line:           "hi",
			revealLastWord: true,
			percent:        10,
			want:           "∗∗",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Obscure(tt.line, false, tt.revealLastWord, tt.percent)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObscureExactBudgetBoundary(t *testing.T) {
	// Single all-letter word of length 10 with a 30% budget: exactly the
	// last 3 letters show, everything before is masked.
	got := Obscure("whispering", false, true, 30)
	assert.Equal(t, strings.Repeat("∗", 7)+"ing", got)
}
