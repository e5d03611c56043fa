package llm

import (
	"context"
	"fmt"
	"time"
)

// MockClient streams a deterministic reply without network access.
type MockClient struct {
	name  string
	delay time.Duration
}

// NewMockClient creates a mock provider registered under name. delay is slept
// between fragments.
func NewMockClient(name string, delay time.Duration) *MockClient {
	return &MockClient{name: name, delay: delay}
}

// Ensure MockClient implements Provider interface.
var _ Provider = (*MockClient)(nil)

// Name returns the vendor identifier the mock stands in for.
func (m *MockClient) Name() string { return m.name }

// Stream simulates a streaming response.
func (m *MockClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
	responseContent := m.generateMockResponse(req)
	chunks := splitIntoChunks(responseContent, 10)

	return NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		for _, chunk := range chunks {
			if m.delay > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(m.delay):
				}
			}
			if err := emit(chunk); err != nil {
				return err
			}
		}
		return nil
	}), nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *Request) string {
	// Get the last user message
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}

	if lastUserMessage == "" {
		return fmt.Sprintf("[MOCK] %s/%s has nothing to respond to.", m.name, req.Model)
	}

	return fmt.Sprintf("[MOCK] %s/%s received %q. This is a mock response.", m.name, req.Model, truncate(lastUserMessage, 100))
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func splitIntoChunks(s string, chunkSize int) []string {
	var chunks []string
	runes := []rune(s)
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
