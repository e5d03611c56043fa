// Package domain defines the core domain models for the discussion service.
package domain

// SessionStatus represents the lifecycle status of a session.
type SessionStatus string

const (
	SessionStatusPending     SessionStatus = "pending"
	SessionStatusRunning     SessionStatus = "running"
	SessionStatusSummarizing SessionStatus = "summarizing"
	SessionStatusCompleted   SessionStatus = "completed"
	SessionStatusStopped     SessionStatus = "stopped"
	SessionStatusFailed      SessionStatus = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusStopped, SessionStatusFailed:
		return true
	}
	return false
}

// EventType represents the type of an orchestration event.
type EventType string

const (
	EventTypeRoundStart           EventType = "round_start"
	EventTypeRoundEnd             EventType = "round_end"
	EventTypeModelStart           EventType = "model_start"
	EventTypeChunk                EventType = "chunk"
	EventTypeModelEnd             EventType = "model_end"
	EventTypeModelError           EventType = "model_error"
	EventTypeSummaryStart         EventType = "summary_start"
	EventTypeSummaryChunk         EventType = "summary_chunk"
	EventTypeSummaryEnd           EventType = "summary_end"
	EventTypeSummaryError         EventType = "summary_error"
	EventTypeInterventionReceived EventType = "intervention_received"
	EventTypeSessionEnd           EventType = "session_end"
	EventTypeError                EventType = "error"
	// Keep-alive, carries no session semantics.
	EventTypePing EventType = "ping"
)

// Streaming reports whether the event carries a text fragment.
func (t EventType) Streaming() bool {
	return t == EventTypeChunk || t == EventTypeSummaryChunk
}

// FailureKind classifies a provider failure independently of the vendor.
type FailureKind string

const (
	FailureAuthInvalid      FailureKind = "AuthInvalid"
	FailureRateLimited      FailureKind = "RateLimited"
	FailureQuotaExceeded    FailureKind = "QuotaExceeded"
	FailureModelUnavailable FailureKind = "ModelUnavailable"
	FailureProviderFault    FailureKind = "ProviderFault"
	FailureNetwork          FailureKind = "Network"
	FailureCancelled        FailureKind = "Cancelled"
)

// UserParticipantID is the participant sentinel for intervention messages.
const UserParticipantID = "user"

// SummaryRound is the round number reserved for the final summary.
const SummaryRound = 0
