package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael213532/ai-debate/internal/transport/ws"
)

func TestParseParticipants(t *testing.T) {
	got, err := parseParticipants([]string{"openai:gpt-4o", "anthropic:claude-3-opus-20240229:devil's advocate"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "openai", got[0].Provider)
	assert.Equal(t, "gpt-4o", got[0].ModelID)
	assert.Empty(t, got[0].Role)
	assert.Equal(t, "anthropic", got[1].Provider)
	assert.Equal(t, "devil's advocate", got[1].Role)
}

func TestParseParticipantsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		entries []string
	}{
		{"too few", []string{"openai:gpt-4o"}},
		{"missing model", []string{"openai", "google:gemini-1.5-pro"}},
		{"empty provider", []string{":gpt-4o", "google:gemini-1.5-pro"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseParticipants(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestCommandFrame(t *testing.T) {
	frame, quit := commandFrame("   ")
	assert.Nil(t, frame)
	assert.False(t, quit)

	_, quit = commandFrame("/quit")
	assert.True(t, quit)

	frame, _ = commandFrame("/stop")
	require.NotNil(t, frame)
	assert.Equal(t, ws.TypeStop, frame.Type)

	frame, _ = commandFrame(" consider costs ")
	require.NotNil(t, frame)
	assert.Equal(t, ws.TypeIntervention, frame.Type)
	assert.Equal(t, "consider costs", frame.Content)
}
