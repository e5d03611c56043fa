package debate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/domain"
)

func TestRoundExecutorResultsInParticipantOrder(t *testing.T) {
	var mu sync.Mutex
	var events []domain.Event
	emit := func(ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
	}

	alpha, beta := newFakeProvider("alpha"), newFakeProvider("beta")
	x := NewRoundExecutor(llm.NewRegistry(alpha, beta), staticKeys{"alpha": "ka", "beta": "kb"}, emit, testConfig())
	session := testSession(1, "alpha", "beta")
	session.Images = []domain.Image{{Data: "AAAA", MediaType: "image/png"}}
	session.Participants[1].Role = "devil's advocate"

	results := x.Run(context.Background(), RoundInput{
		SessionID:    session.SessionID,
		UserID:       session.UserID,
		Topic:        session.Topic,
		Images:       session.Images,
		Participants: session.Participants,
		Round:        1,
		TotalRounds:  1,
	})

	require.Len(t, results, 2)
	assert.Equal(t, "p1", results[0].Participant.ID)
	assert.Equal(t, "alpha says #1", results[0].Content)
	assert.Equal(t, "p2", results[1].Participant.ID)
	assert.True(t, results[1].OK())

	req := beta.requests()[0]
	assert.Equal(t, "beta-model", req.Model)
	assert.Equal(t, "kb", req.APIKey)
	assert.Contains(t, req.SystemPrompt, "devil's advocate")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Len(t, req.Messages[0].Images, 1)

	// Chunks of one participant keep their order.
	var alphaChunks []string
	for _, ev := range events {
		if ev.Type == domain.EventTypeChunk && ev.ParticipantID == "p1" {
			alphaChunks = append(alphaChunks, ev.Content)
			assert.Equal(t, "ALPHA", ev.ModelName)
			assert.Equal(t, "alpha", ev.Provider)
		}
	}
	assert.Equal(t, []string{"alpha", " says", " #1"}, alphaChunks)
}

func TestRoundExecutorCancelledParticipants(t *testing.T) {
	gate := make(chan struct{})
	alpha := newFakeProvider("alpha")
	alpha.gate = gate
	x := NewRoundExecutor(llm.NewRegistry(alpha), staticKeys{"alpha": "k"}, func(domain.Event) {}, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := x.Run(ctx, RoundInput{
		Topic:        "t",
		Participants: []domain.Participant{{ID: "p1", Provider: "alpha", ModelID: "m"}},
		Round:        1,
		TotalRounds:  1,
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].OK())
	assert.Equal(t, domain.FailureCancelled, results[0].Kind)
}
