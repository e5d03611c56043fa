package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/michael213532/ai-debate/internal/domain"
)

// Default endpoints for OpenAI-compatible vendors.
const (
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"
	DefaultDeepseekBaseURL = "https://api.deepseek.com/v1"
	DefaultXAIBaseURL      = "https://api.x.ai/v1"
)

// OpenAIClient speaks the OpenAI chat completions protocol. Deepseek and xAI
// expose the same protocol under a different base URL.
type OpenAIClient struct {
	name      string
	vision    bool
	transport *transport
}

// Ensure OpenAIClient implements Provider.
var _ Provider = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for an OpenAI-compatible vendor.
// Images are dropped from requests when vision is false.
func NewOpenAIClient(name, defaultBaseURL string, vision bool, cfg ClientConfig) *OpenAIClient {
	return &OpenAIClient{
		name:      name,
		vision:    vision,
		transport: newTransport(name, defaultBaseURL, cfg),
	}
}

// NewOpenAI creates the OpenAI client.
func NewOpenAI(cfg ClientConfig) *OpenAIClient {
	return NewOpenAIClient(VendorOpenAI, DefaultOpenAIBaseURL, true, cfg)
}

// NewDeepseek creates the Deepseek client. Deepseek has no vision support.
func NewDeepseek(cfg ClientConfig) *OpenAIClient {
	return NewOpenAIClient(VendorDeepseek, DefaultDeepseekBaseURL, false, cfg)
}

// NewXAI creates the xAI client.
func NewXAI(cfg ClientConfig) *OpenAIClient {
	return NewOpenAIClient(VendorXAI, DefaultXAIBaseURL, true, cfg)
}

// Name returns the vendor identifier.
func (c *OpenAIClient) Name() string { return c.name }

// chatCompletionRequest is the OpenAI chat completion request body.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// chatMessage carries either a plain string or a list of content parts.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// streamChunk is a single SSE chunk from the stream.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

// Stream sends a streaming chat completion request.
func (c *OpenAIClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("%s: model is required", c.name)
	}
	body := c.buildRequest(req)
	header := http.Header{}
	if req.APIKey != "" {
		header.Set("Authorization", "Bearer "+req.APIKey)
	}

	return NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		return c.transport.streamSSE(ctx, c.transport.baseURL+"/chat/completions", header, body, func(data []byte) error {
			if string(data) == "[DONE]" {
				return errStreamDone
			}
			var chunk streamChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				// Skip malformed chunks
				return nil
			}
			if len(chunk.Choices) == 0 {
				return nil
			}
			return emit(chunk.Choices[0].Delta.Content)
		})
	}), nil
}

func (c *OpenAIClient) buildRequest(req *Request) *chatCompletionRequest {
	out := &chatCompletionRequest{
		Model:       req.Model,
		Stream:      true,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		out.MaxTokens = &maxTokens
	}
	if req.SystemPrompt != "" {
		out.Messages = append(out.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{Role: string(m.Role), Content: c.content(m)})
	}
	return out
}

func (c *OpenAIClient) content(m ChatMessage) any {
	if !c.vision || len(m.Images) == 0 {
		return m.Content
	}
	parts := []contentPart{{Type: "text", Text: m.Content}}
	for _, img := range m.Images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURL(img)}})
	}
	return parts
}

func dataURL(img domain.Image) string {
	return "data:" + img.MediaType + ";base64," + img.Data
}
