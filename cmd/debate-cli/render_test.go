package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/michael213532/ai-debate/internal/domain"
)

func TestRendererBuffersConcurrentStreams(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	events := []domain.Event{
		{Type: domain.EventTypeRoundStart, Round: 1, TotalRounds: 2},
		{Type: domain.EventTypeModelStart, Round: 1, ParticipantID: "p1", ModelName: "Alpha"},
		{Type: domain.EventTypeModelStart, Round: 1, ParticipantID: "p2", ModelName: "Beta"},
		{Type: domain.EventTypeChunk, Round: 1, ParticipantID: "p1", Content: "Hello "},
		{Type: domain.EventTypeChunk, Round: 1, ParticipantID: "p2", Content: "Other "},
		{Type: domain.EventTypeChunk, Round: 1, ParticipantID: "p1", Content: "world"},
		{Type: domain.EventTypeModelEnd, Round: 1, ParticipantID: "p1", ModelName: "Alpha"},
		{Type: domain.EventTypeChunk, Round: 1, ParticipantID: "p2", Content: "view"},
		{Type: domain.EventTypeModelEnd, Round: 1, ParticipantID: "p2", ModelName: "Beta"},
	}
	for _, ev := range events {
		assert.False(t, r.Handle(ev))
	}

	s := out.String()
	assert.Contains(t, s, "Round 1 of 2")
	assert.Contains(t, s, "Alpha is thinking...")
	assert.Contains(t, s, "Hello world")
	assert.Contains(t, s, "Other view")
	assert.Empty(t, r.buffers)
}

func TestRendererErrorsAndSummary(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	r.Handle(domain.Event{Type: domain.EventTypeChunk, Round: 1, ParticipantID: "p2", Content: "partial"})
	r.Handle(domain.Event{
		Type:          domain.EventTypeModelError,
		Round:         1,
		ParticipantID: "p2",
		ModelName:     "Beta",
		Error:         domain.FailureRateLimited,
		Hint:          "slow down",
	})
	r.Handle(domain.Event{Type: domain.EventTypeSummaryStart, ModelName: "Alpha"})
	r.Handle(domain.Event{Type: domain.EventTypeSummaryChunk, Content: "All "})
	r.Handle(domain.Event{Type: domain.EventTypeSummaryChunk, Content: "agreed."})
	r.Handle(domain.Event{Type: domain.EventTypeSummaryEnd})

	s := out.String()
	assert.Contains(t, s, "Beta failed: RateLimited (slow down)")
	assert.NotContains(t, s, "partial")
	assert.Contains(t, s, "Summary by Alpha")
	assert.Contains(t, s, "All agreed.")
	assert.Empty(t, r.buffers)
}

func TestRendererSessionEnd(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	assert.False(t, r.Handle(domain.Event{Type: domain.EventTypeInterventionReceived, Round: 2, Content: "Be brief"}))
	assert.False(t, r.Handle(domain.Event{Type: domain.EventTypePing}))
	assert.True(t, r.Handle(domain.Event{Type: domain.EventTypeSessionEnd, Status: domain.SessionStatusStopped}))

	s := out.String()
	assert.Contains(t, s, "Be brief")
	assert.Contains(t, s, "Session stopped")
}
