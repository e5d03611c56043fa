package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael213532/ai-debate/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(id, userID string, createdAt time.Time) *domain.Session {
	return &domain.Session{
		SessionID: id,
		UserID:    userID,
		Topic:     "Is Go the best language for services?",
		Images:    []domain.Image{{Data: "AAAA", MediaType: "image/png"}},
		Participants: []domain.Participant{
			{ID: "p1", Provider: "openai", ModelID: "gpt-4o", ModelName: "GPT-4o", Role: "optimist"},
			{ID: "p2", Provider: "anthropic", ModelID: "claude-3-opus-20240229", ModelName: "Claude 3 Opus"},
		},
		Rounds:    2,
		Status:    domain.SessionStatusPending,
		CreatedAt: createdAt,
		Metadata:  json.RawMessage(`{"source":"test"}`),
	}
}

func TestSQLiteStoreSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	now := time.Now()
	require.NoError(t, store.CreateSession(ctx, testSession("s1", "u1", now.Add(-time.Minute))))
	require.NoError(t, store.CreateSession(ctx, testSession("s2", "u1", now)))
	require.NoError(t, store.CreateSession(ctx, testSession("s3", "u2", now)))

	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.SessionStatusPending, got.Status)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, "optimist", got.Participants[0].Role)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "image/png", got.Images[0].MediaType)
	assert.Nil(t, got.EndedAt)
	assert.JSONEq(t, `{"source":"test"}`, string(got.Metadata))

	missing, err := store.GetSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := store.ListSessions(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].SessionID)
	assert.Equal(t, "s1", list[1].SessionID)

	list, err = store.ListSessions(ctx, "u1", 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteStoreSessionStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateSession(ctx, testSession("s1", "u1", time.Now())))

	require.NoError(t, store.UpdateSessionStatus(ctx, "s1", domain.SessionStatusRunning, 1))
	got, err := store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusRunning, got.Status)
	assert.Equal(t, 1, got.CurrentRound)

	endedAt := time.Now()
	require.NoError(t, store.UpdateSessionEnded(ctx, "s1", domain.SessionStatusCompleted, 2, endedAt))
	got, err = store.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusCompleted, got.Status)
	assert.Equal(t, 2, got.CurrentRound)
	require.NotNil(t, got.EndedAt)
	assert.WithinDuration(t, endedAt, *got.EndedAt, time.Second)
}

func TestSQLiteStoreTranscript(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateSession(ctx, testSession("s1", "u1", time.Now())))

	base := time.Now()
	messages := []domain.Message{
		{MessageID: "m1", Round: 1, ParticipantID: "p1", ModelName: "GPT-4o", Provider: "openai", Content: "Yes.", CreatedAt: base},
		{MessageID: "m2", Round: 1, ParticipantID: "user", Content: "What about Rust?", CreatedAt: base.Add(time.Millisecond)},
		{MessageID: "m3", Round: 2, ParticipantID: "p2", ModelName: "Claude 3 Opus", Provider: "anthropic", Content: "It depends.", CreatedAt: base.Add(2 * time.Millisecond)},
		{MessageID: "m4", Round: domain.SummaryRound, ParticipantID: "p1", ModelName: "GPT-4o", Provider: "openai", Content: "Summary.", CreatedAt: base.Add(3 * time.Millisecond)},
	}
	require.NoError(t, store.SaveTranscript(ctx, "s1", messages))
	// Saving again replaces rather than duplicating.
	require.NoError(t, store.SaveTranscript(ctx, "s1", messages))

	got, err := store.GetMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	ids := []string{got[0].MessageID, got[1].MessageID, got[2].MessageID, got[3].MessageID}
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids)
	assert.Equal(t, "s1", got[1].SessionID)
	assert.True(t, got[1].IsIntervention())
	assert.Empty(t, got[1].ModelName)

	err = store.SaveTranscript(ctx, "s1", []domain.Message{{MessageID: "x", SessionID: "other", Content: "x"}})
	assert.Error(t, err)
}

func TestSQLiteStoreEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateSession(ctx, testSession("s1", "u1", time.Now())))

	events := []domain.StoredEvent{
		{EventID: "e1", SessionID: "s1", Ts: 100, Type: domain.EventTypeRoundStart, Payload: json.RawMessage(`{"round":1}`)},
		{EventID: "e2", SessionID: "s1", Ts: 200, Type: domain.EventTypeModelError},
		{EventID: "e3", SessionID: "s1", Ts: 300, Type: domain.EventTypeSessionEnd},
	}
	for i := range events {
		require.NoError(t, store.CreateEvent(ctx, &events[i]))
	}

	all, err := store.GetEvents(ctx, EventFilter{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.JSONEq(t, `{"round":1}`, string(all[0].Payload))
	assert.Nil(t, all[1].Payload)

	after, err := store.GetEvents(ctx, EventFilter{SessionID: "s1", AfterTs: 100})
	require.NoError(t, err)
	assert.Len(t, after, 2)

	typed, err := store.GetEvents(ctx, EventFilter{SessionID: "s1", Types: []string{"session_end", "round_start"}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, typed, 1)
	assert.Equal(t, "e1", typed[0].EventID)
}

func TestSQLiteStoreAPIKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	got, err := store.GetAPIKey(ctx, "u1", "openai")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.SaveAPIKey(ctx, "u1", "openai", []byte("sealed-1")))
	require.NoError(t, store.SaveAPIKey(ctx, "u1", "openai", []byte("sealed-2")))
	require.NoError(t, store.SaveAPIKey(ctx, "u1", "anthropic", []byte("sealed-3")))
	require.NoError(t, store.SaveAPIKey(ctx, "u2", "google", []byte("sealed-4")))

	got, err = store.GetAPIKey(ctx, "u1", "openai")
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed-2"), got)

	providers, err := store.ListAPIKeyProviders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic", "openai"}, providers)

	require.NoError(t, store.DeleteAPIKey(ctx, "u1", "openai"))
	require.NoError(t, store.DeleteAPIKey(ctx, "u1", "openai"))
	providers, err = store.ListAPIKeyProviders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"anthropic"}, providers)
}

func TestEnsureColumnIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.migrate())
	require.NoError(t, store.ensureColumn("sessions", "current_round", "ALTER TABLE sessions ADD COLUMN current_round INTEGER"))
}
