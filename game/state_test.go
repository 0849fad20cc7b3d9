package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampSettings(t *testing.T) {
	tests := []struct {
		name  string
		patch SettingsPatch
		want  Settings
	}{
		{
			name: "in-range values pass through unchanged",
			patch: SettingsPatch{
				MaxPlayers:            8,
				ShowFullPreviousLine:  true,
				RevealLastWordInLines: true,
				RevealAtMostPercent:   25,
				StepDuration:          60_000,
				TurnOnTts:             false,
			},
			want: Settings{
				Language:              "en",
				MaxPlayers:            8,
				ShowFullPreviousLine:  true,
				RevealLastWordInLines: true,
				RevealAtMostPercent:   25,
				StepDuration:          60_000,
				TurnOnTts:             false,
			},
		},
		{
			name: "below range lands on lower bounds",
			patch: SettingsPatch{
				MaxPlayers:          1,
				RevealAtMostPercent: 0,
				StepDuration:        1_000,
			},
			want: Settings{
				Language:            "en",
				MaxPlayers:          MinPlayers,
				RevealAtMostPercent: MinRevealPercent,
				StepDuration:        MinStepDuration,
			},
		},
		{
			name: "above range lands on upper bounds",
			patch: SettingsPatch{
				MaxPlayers:          100,
				RevealAtMostPercent: 99,
				StepDuration:        3_600_000,
			},
			want: Settings{
				Language:            "en",
				MaxPlayers:          MaxPlayers,
				RevealAtMostPercent: MaxRevealPercent,
				StepDuration:        MaxStepDuration,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings("en")
			s.clampSettings(tt.patch)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestClampIdempotence(t *testing.T) {
	s := DefaultSettings("ru")
	s.clampSettings(SettingsPatch{MaxPlayers: 100, RevealAtMostPercent: 5, StepDuration: 500})

	once := s
	s.clampSettings(SettingsPatch{
		MaxPlayers:            once.MaxPlayers,
		ShowFullPreviousLine:  once.ShowFullPreviousLine,
		RevealLastWordInLines: once.RevealLastWordInLines,
		RevealAtMostPercent:   once.RevealAtMostPercent,
		StepDuration:          once.StepDuration,
		TurnOnTts:             once.TurnOnTts,
	})
	assert.Equal(t, once, s, "re-applying clamped settings must be a no-op")
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("ru")
	assert.Equal(t, "ru", s.Language)
	assert.True(t, s.ShowFullPreviousLine)
	assert.True(t, s.RevealLastWordInLines)
	assert.Equal(t, 33, s.RevealAtMostPercent)
	assert.Equal(t, int64(180_000), s.StepDuration)
	assert.True(t, s.TurnOnTts)
}
