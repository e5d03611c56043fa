package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/michael213532/ai-debate/internal/debate"
	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/repository"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// emitterFor fans orchestrator events out to live clients, metrics and the
// session's recorder. Fragments are delivered live only.
func (s *Service) emitterFor(rec *recorder) debate.Emitter {
	return debate.EmitterFunc(func(ev domain.Event) {
		if s.publisher != nil {
			s.publisher.Publish(rec.sessionID, ev)
		}
		if ev.Type.Streaming() {
			return
		}
		if ev.Type == domain.EventTypeModelError || ev.Type == domain.EventTypeSummaryError {
			s.metrics.ModelError(ev.Provider, string(ev.Error))
		}
		rec.record(ev)
	})
}

// recordEvent appends a lifecycle event to the event log.
func (s *Service) recordEvent(ctx context.Context, ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("ERROR: failed to marshal event: %v", err)
		return
	}
	stored := &domain.StoredEvent{
		EventID:   "evt_" + uuid.New().String()[:8],
		SessionID: ev.SessionID,
		Ts:        ev.Ts,
		Type:      ev.Type,
		Payload:   payload,
	}
	if err := s.store.CreateEvent(ctx, stored); err != nil {
		log.Printf("ERROR: failed to record %s event for session %s: %v", ev.Type, ev.SessionID, err)
	}
}

// GetEvents returns recorded lifecycle events of a session.
func (s *Service) GetEvents(ctx context.Context, userID, sessionID string, afterTs int64, types []string, limit int) ([]domain.StoredEvent, error) {
	if _, err := s.getOwned(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	events, err := s.store.GetEvents(ctx, repository.EventFilter{
		SessionID: sessionID,
		AfterTs:   afterTs,
		Types:     types,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.StoredEvent{}
	}
	return events, nil
}
