package domain

// ParticipantConfig is a participant as supplied by the caller.
type ParticipantConfig struct {
	Provider  string `json:"provider"`
	ModelID   string `json:"model_id"`
	ModelName string `json:"model_name"`
	Role      string `json:"role,omitempty"`
}

// CreateSessionRequest represents the request to create a discussion.
type CreateSessionRequest struct {
	Topic           string              `json:"topic"`
	Images          []Image             `json:"images,omitempty"`
	Participants    []ParticipantConfig `json:"participants"`
	Rounds          int                 `json:"rounds"`
	SummarizerIndex int                 `json:"summarizer_index"`
}

// SessionDetail is a session together with its transcript.
type SessionDetail struct {
	Session  *Session  `json:"session"`
	Messages []Message `json:"messages"`
}

// InterventionRequest carries a user-authored message.
type InterventionRequest struct {
	Content string `json:"content"`
}

// APIKeyRequest saves a provider credential.
type APIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// ProviderStatus reports whether a provider has a usable credential.
type ProviderStatus struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}

// ModelInfo describes a model from the catalog.
type ModelInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Provider     string `json:"provider"`
	ProviderName string `json:"provider_name"`
}

// APIKeyTestResult reports the outcome of a probe call with a stored key.
type APIKeyTestResult struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Valid    bool        `json:"valid"`
	Error    FailureKind `json:"error,omitempty"`
	Hint     string      `json:"hint,omitempty"`
}
