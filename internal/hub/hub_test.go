package hub

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/metrics"
)

func chunk(participant string, round int, content string) domain.Event {
	return domain.Event{Type: domain.EventTypeChunk, ParticipantID: participant, Round: round, Content: content}
}

func lifecycle(t domain.EventType, participant string, round int) domain.Event {
	return domain.Event{Type: t, ParticipantID: participant, Round: round}
}

func TestPublishFansOutPerSession(t *testing.T) {
	h := NewHub(8, nil)
	a := h.NewConnection("s1", nil)
	b := h.NewConnection("s1", nil)
	other := h.NewConnection("s2", nil)
	h.Register(a)
	h.Register(b)
	h.Register(other)

	assert.Equal(t, 3, h.GetConnectionCount())
	assert.Equal(t, 2, h.GetSessionCount())

	h.Publish("s1", lifecycle(domain.EventTypeRoundStart, "", 1))

	assert.Equal(t, 1, a.Pending())
	assert.Equal(t, 1, b.Pending())
	assert.Equal(t, 0, other.Pending())

	select {
	case <-a.Ready():
	default:
		t.Fatal("expected ready signal")
	}
	events := a.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeRoundStart, events[0].Type)
	assert.Nil(t, a.Drain())
}

func TestPublishWithoutConnections(t *testing.T) {
	h := NewHub(4, nil)
	h.Publish("missing", lifecycle(domain.EventTypeSessionEnd, "", 0))
	assert.False(t, h.HasActiveConnections("missing"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(4, nil)
	c := h.NewConnection("s1", nil)
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)

	select {
	case <-c.Done():
	default:
		t.Fatal("expected done to be closed")
	}
	assert.Equal(t, 0, h.GetConnectionCount())
	assert.False(t, h.HasActiveConnections("s1"))

	h.Publish("s1", lifecycle(domain.EventTypeRoundStart, "", 1))
	assert.Equal(t, 0, c.Pending())
}

func TestOverflowCoalescesLatestChunk(t *testing.T) {
	h := NewHub(2, nil)
	c := h.NewConnection("s1", nil)
	h.Register(c)

	h.Publish("s1", lifecycle(domain.EventTypeModelStart, "p1", 1))
	h.Publish("s1", chunk("p1", 1, "Hel"))
	h.Publish("s1", chunk("p1", 1, "lo"))
	h.Publish("s1", chunk("p1", 1, "!"))

	events := c.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "Hello!", events[1].Content)
}

func TestOverflowDropsChunkWithoutQueuedFragment(t *testing.T) {
	h := NewHub(2, nil)
	c := h.NewConnection("s1", nil)
	h.Register(c)

	h.Publish("s1", chunk("p1", 1, "a"))
	h.Publish("s1", lifecycle(domain.EventTypeModelStart, "p2", 1))
	// p2's latest queued event is model_start, not a fragment.
	h.Publish("s1", chunk("p2", 1, "lost"))
	// p1's latest queued event is a fragment.
	h.Publish("s1", chunk("p1", 1, "b"))

	events := c.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "ab", events[0].Content)
	assert.Equal(t, domain.EventTypeModelStart, events[1].Type)
}

func TestOverflowDoesNotMergeAcrossLifecycle(t *testing.T) {
	h := NewHub(2, nil)
	c := h.NewConnection("s1", nil)
	h.Register(c)

	h.Publish("s1", chunk("p1", 1, "a"))
	h.Publish("s1", lifecycle(domain.EventTypeModelEnd, "p1", 1))
	h.Publish("s1", chunk("p1", 1, "late"))

	events := c.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Content)
}

func TestOverflowSummaryChunks(t *testing.T) {
	h := NewHub(2, nil)
	c := h.NewConnection("s1", nil)
	h.Register(c)

	h.Publish("s1", domain.Event{Type: domain.EventTypeSummaryStart})
	h.Publish("s1", domain.Event{Type: domain.EventTypeSummaryChunk, Content: "x"})
	h.Publish("s1", domain.Event{Type: domain.EventTypeSummaryChunk, Content: "y"})

	events := c.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, "xy", events[1].Content)
}

func TestOverflowKeepsLifecycleUntilReserveExhausted(t *testing.T) {
	m := metrics.New()
	h := NewHub(2, m)
	c := h.NewConnection("s1", nil)
	h.Register(c)

	h.Publish("s1", chunk("p1", 1, "a"))
	h.Publish("s1", chunk("p2", 1, "b"))
	h.Publish("s1", domain.Event{Type: domain.EventTypePing})
	assert.Equal(t, 2, c.Pending())

	h.Publish("s1", lifecycle(domain.EventTypeModelEnd, "p1", 1))
	h.Publish("s1", lifecycle(domain.EventTypeModelEnd, "p2", 1))
	assert.Equal(t, 4, c.Pending())
	assert.True(t, h.HasActiveConnections("s1"))

	h.Publish("s1", lifecycle(domain.EventTypeRoundEnd, "", 1))

	select {
	case <-c.Done():
	default:
		t.Fatal("expected slow consumer to be closed")
	}
	assert.False(t, h.HasActiveConnections("s1"))
	assert.Equal(t, 0, c.Pending())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `debate_outbox_overflow_total{outcome="discarded"} 1`), body)
	assert.True(t, strings.Contains(body, `debate_outbox_overflow_total{outcome="slow_consumer"} 1`), body)
	assert.True(t, strings.Contains(body, "debate_websocket_connections 0"), body)
}

func TestSendTargetsOneConnection(t *testing.T) {
	h := NewHub(4, nil)
	a := h.NewConnection("s1", nil)
	b := h.NewConnection("s1", nil)
	h.Register(a)
	h.Register(b)

	require.NoError(t, h.Send(a, domain.Event{Type: domain.EventTypeError, Message: "rejected"}))
	assert.Equal(t, 1, a.Pending())
	assert.Equal(t, 0, b.Pending())
}
