package domain

import (
	"encoding/json"
	"time"
)

// Image is an attachment on the topic, sent to vision-capable providers.
type Image struct {
	Data      string `json:"data"` // base64, no data: prefix
	MediaType string `json:"media_type"`
}

// Participant is one configured model entry in a session.
type Participant struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	ModelID   string `json:"model_id"`
	ModelName string `json:"model_name"`
	Role      string `json:"role,omitempty"`
}

// Session represents one discussion.
type Session struct {
	SessionID       string          `json:"session_id"`
	UserID          string          `json:"user_id"`
	Topic           string          `json:"topic"`
	Images          []Image         `json:"images,omitempty"`
	Participants    []Participant   `json:"participants"`
	Rounds          int             `json:"rounds"`
	SummarizerIndex int             `json:"summarizer_index"`
	CurrentRound    int             `json:"current_round"`
	Status          SessionStatus   `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

// Summarizer returns the designated summarizer participant.
func (s *Session) Summarizer() (Participant, bool) {
	if s.SummarizerIndex < 0 || s.SummarizerIndex >= len(s.Participants) {
		return Participant{}, false
	}
	return s.Participants[s.SummarizerIndex], true
}

// Message is one complete contribution to the transcript.
type Message struct {
	MessageID     string    `json:"message_id"`
	SessionID     string    `json:"session_id"`
	Round         int       `json:"round"`
	ParticipantID string    `json:"participant_id"`
	ModelName     string    `json:"model_name,omitempty"`
	Provider      string    `json:"provider,omitempty"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsIntervention reports whether the message was authored by the user.
func (m Message) IsIntervention() bool {
	return m.ParticipantID == UserParticipantID
}

// Event describes orchestration progress. Fields not relevant to a type are
// omitted on the wire.
type Event struct {
	Type          EventType     `json:"type"`
	SessionID     string        `json:"session_id,omitempty"`
	Ts            int64         `json:"ts"` // Unix milliseconds
	Round         int           `json:"round,omitempty"`
	TotalRounds   int           `json:"total_rounds,omitempty"`
	ParticipantID string        `json:"participant_id,omitempty"`
	ModelName     string        `json:"model_name,omitempty"`
	Provider      string        `json:"provider,omitempty"`
	Content       string        `json:"content,omitempty"`
	Error         FailureKind   `json:"error,omitempty"`
	Hint          string        `json:"hint,omitempty"`
	Status        SessionStatus `json:"status,omitempty"`
	Message       string        `json:"message,omitempty"`
}

// StoredEvent is a recorded lifecycle event for replay.
type StoredEvent struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Ts        int64           `json:"ts"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
