package debate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michael213532/ai-debate/internal/domain"
)

func TestSystemPromptRoundGuidance(t *testing.T) {
	p := domain.Participant{ModelName: "GPT-4o", Role: "skeptic"}

	first := systemPrompt(p, 1, 3)
	assert.True(t, strings.HasPrefix(first, "You are GPT-4o participating in a structured debate. Your assigned perspective/role is: skeptic."))
	assert.Contains(t, first, "This is Round 1.")

	middle := systemPrompt(p, 2, 3)
	assert.Contains(t, middle, "This is Round 2. Respond to the other participants' arguments")

	final := systemPrompt(p, 3, 3)
	assert.Contains(t, final, "This is the final round (Round 3).")
	assert.True(t, strings.HasSuffix(final, "Focus on substance over rhetoric."))

	// A single round is both first and final; first wins.
	assert.Contains(t, systemPrompt(domain.Participant{ModelID: "m"}, 1, 1), "You are m participating")
}

func TestRoundContext(t *testing.T) {
	assert.Equal(t, "DEBATE TOPIC: Tabs or spaces?\n\nPlease provide your initial response to this topic.",
		roundContext("Tabs or spaces?", nil, 1))

	history := []domain.Message{
		{Round: 1, ParticipantID: domain.UserParticipantID, Content: "Think about Go."},
		{Round: 1, ParticipantID: "p1", ModelName: "A", Content: "Tabs."},
		{Round: 1, ParticipantID: "p2", ModelName: "B", Content: "Spaces."},
	}
	got := roundContext("Tabs or spaces?", history, 2)
	assert.Equal(t, "DEBATE TOPIC: Tabs or spaces?\n\nPREVIOUS DISCUSSION:\n\n"+
		"[Round 1] A:\nTabs.\n\n"+
		"[Round 1] B:\nSpaces.\n\n"+
		"[Round 1] USER INTERVENTION:\nThink about Go.\n\n"+
		"---\nPlease provide your Round 2 response, engaging with the above discussion.", got)
}

func TestSummaryContextSkipsSummaryRound(t *testing.T) {
	history := []domain.Message{
		{Round: 1, ParticipantID: "p1", ModelName: "A", Content: "Tabs."},
		{Round: domain.SummaryRound, ParticipantID: "p1", ModelName: "A", Content: "old summary"},
	}
	got := summaryContext("Tabs or spaces?", history)
	assert.Contains(t, got, "FULL DEBATE TRANSCRIPT:\n\n[Round 1] A:\nTabs.")
	assert.NotContains(t, got, "old summary")
	assert.Contains(t, got, "one-line verdict")
	assert.Contains(t, summarySystemPrompt(domain.Participant{ModelName: "A"}), "balanced summary")
}
