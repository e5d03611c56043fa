package hub

import (
	"sync"

	"github.com/michael213532/ai-debate/internal/domain"
)

// Outcome is what Enqueue did with an event.
type Outcome int

const (
	// Queued means the event was appended.
	Queued Outcome = iota
	// Coalesced means a fragment was merged into a queued fragment.
	Coalesced
	// Discarded means the event was dropped.
	Discarded
	// Overflow means a lifecycle event found no room; the connection must
	// be closed.
	Overflow
)

// outbox is a bounded per-connection event queue.
//
// Up to limit events of any kind are queued. Past that, fragments are merged
// into their stream's latest queued fragment or dropped, pings are dropped,
// and lifecycle events may use a reserve of limit more slots.
type outbox struct {
	mu     sync.Mutex
	items  []domain.Event
	limit  int
	closed bool
	// notify holds one token while items is non-empty.
	notify chan struct{}
}

func newOutbox(limit int) *outbox {
	if limit <= 0 {
		limit = 256
	}
	return &outbox{
		items:  make([]domain.Event, 0, limit),
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

func (o *outbox) enqueue(ev domain.Event) Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return Discarded
	}

	n := len(o.items)
	if n < o.limit {
		o.push(ev)
		return Queued
	}

	switch {
	case ev.Type.Streaming():
		for i := n - 1; i >= 0; i-- {
			if !sameStream(o.items[i], ev) {
				continue
			}
			if o.items[i].Type == ev.Type {
				o.items[i].Content += ev.Content
				o.items[i].Ts = ev.Ts
				return Coalesced
			}
			break
		}
		return Discarded
	case ev.Type == domain.EventTypePing:
		return Discarded
	case n < 2*o.limit:
		o.push(ev)
		return Queued
	default:
		return Overflow
	}
}

func (o *outbox) push(ev domain.Event) {
	o.items = append(o.items, ev)
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns every queued event.
func (o *outbox) drain() []domain.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == 0 {
		return nil
	}
	out := o.items
	o.items = make([]domain.Event, 0, o.limit)
	return out
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.items = nil
}

func (o *outbox) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// sameStream reports whether queued belongs to the fragment stream of ev:
// one participant's round for chunks, the summary for summary chunks.
func sameStream(queued, ev domain.Event) bool {
	if ev.Type == domain.EventTypeSummaryChunk {
		switch queued.Type {
		case domain.EventTypeSummaryStart, domain.EventTypeSummaryChunk, domain.EventTypeSummaryEnd, domain.EventTypeSummaryError:
			return true
		}
		return false
	}
	return queued.ParticipantID == ev.ParticipantID && queued.Round == ev.Round && queued.ParticipantID != ""
}
