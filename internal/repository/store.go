// Package repository persists sessions, transcripts, lifecycle events and
// sealed credentials.
package repository

import (
	"context"
	"time"

	"github.com/michael213532/ai-debate/internal/domain"
)

// Store defines the interface for data persistence.
//
// Getters return (nil, nil) when the record does not exist.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]domain.Session, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, currentRound int) error
	UpdateSessionEnded(ctx context.Context, sessionID string, status domain.SessionStatus, currentRound int, endedAt time.Time) error

	// Message operations
	SaveTranscript(ctx context.Context, sessionID string, messages []domain.Message) error
	GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.StoredEvent) error
	GetEvents(ctx context.Context, filter EventFilter) ([]domain.StoredEvent, error)

	// Credential operations. Values are sealed by the caller.
	SaveAPIKey(ctx context.Context, userID, provider string, sealed []byte) error
	GetAPIKey(ctx context.Context, userID, provider string) ([]byte, error)
	DeleteAPIKey(ctx context.Context, userID, provider string) error
	ListAPIKeyProviders(ctx context.Context, userID string) ([]string, error)

	// Lifecycle
	Close() error
}

// EventFilter provides filtering options for events.
type EventFilter struct {
	SessionID string
	AfterTs   int64
	Types     []string
	Limit     int
}
