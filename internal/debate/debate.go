// Package debate runs multi-round discussions between streaming LLM
// participants.
package debate

import (
	"context"
	"errors"
	"time"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/domain"
)

var (
	// ErrInvalidSession is returned when a session cannot be started.
	ErrInvalidSession = errors.New("invalid session")
	// ErrInterventionRejected is returned when the session is not accepting
	// interventions.
	ErrInterventionRejected = errors.New("intervention rejected")

	// errStopped and errSessionExpired are cancellation causes.
	errStopped        = errors.New("session stopped")
	errSessionExpired = errors.New("session time limit exceeded")
)

// Emitter receives orchestration events in emission order. Emit must not
// block for long; it is called with the orchestrator's emission lock held.
type Emitter interface {
	Emit(event domain.Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event domain.Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event domain.Event) { f(event) }

// ProviderSource resolves a vendor identifier to an adapter.
type ProviderSource interface {
	Get(vendor string) (llm.Provider, bool)
}

// CredentialSource resolves the credential a user has for a vendor.
type CredentialSource interface {
	APIKey(ctx context.Context, userID, provider string) (string, error)
}

// Config bounds a discussion.
type Config struct {
	// ModelTimeout bounds one participant call. Zero disables it.
	ModelTimeout time.Duration
	// SessionTimeout bounds the whole session. Zero disables it.
	SessionTimeout  time.Duration
	MaxParticipants int
	MaxRounds       int
	// FailOnSilentRound ends the session as failed when every participant
	// of a round fails.
	FailOnSilentRound bool
	// MaxTokens is passed to providers when positive.
	MaxTokens int
}

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{
		ModelTimeout:    120 * time.Second,
		SessionTimeout:  30 * time.Minute,
		MaxParticipants: 6,
		MaxRounds:       10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxParticipants <= 0 {
		c.MaxParticipants = d.MaxParticipants
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	return c
}
