package service

import (
	"context"
	"log"

	"github.com/michael213532/ai-debate/internal/domain"
)

// recorderBuffer holds a few rounds of lifecycle events for a slow store.
const recorderBuffer = 256

// recorder persists one session's lifecycle events in emission order on its
// own goroutine, off the orchestrator's emit lock.
type recorder struct {
	svc         *Service
	sessionID   string
	totalRounds int
	events      chan domain.Event
	done        chan struct{}
}

func (s *Service) newRecorder(session *domain.Session) *recorder {
	r := &recorder{
		svc:         s,
		sessionID:   session.SessionID,
		totalRounds: session.Rounds,
		events:      make(chan domain.Event, recorderBuffer),
		done:        make(chan struct{}),
	}
	go r.run()
	return r
}

// record queues ev. It blocks only while the buffer is full.
func (r *recorder) record(ev domain.Event) {
	r.events <- ev
}

// close flushes queued events and waits until they are written. No event may
// be recorded afterwards.
func (r *recorder) close() {
	close(r.events)
	<-r.done
}

func (r *recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		r.persist(ev)
	}
}

func (r *recorder) persist(ev domain.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	switch ev.Type {
	case domain.EventTypeRoundStart:
		if err := r.svc.store.UpdateSessionStatus(ctx, r.sessionID, domain.SessionStatusRunning, ev.Round); err != nil {
			log.Printf("ERROR: failed to update session %s: %v", r.sessionID, err)
		}
	case domain.EventTypeSummaryStart:
		if err := r.svc.store.UpdateSessionStatus(ctx, r.sessionID, domain.SessionStatusSummarizing, r.totalRounds); err != nil {
			log.Printf("ERROR: failed to update session %s: %v", r.sessionID, err)
		}
	}
	r.svc.recordEvent(ctx, ev)
}
