package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/michael213532/ai-debate/internal/domain"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 4096
)

// AnthropicClient streams from the Anthropic messages API.
type AnthropicClient struct {
	transport *transport
}

// Ensure AnthropicClient implements Provider.
var _ Provider = (*AnthropicClient)(nil)

// NewAnthropic creates the Anthropic client.
func NewAnthropic(cfg ClientConfig) *AnthropicClient {
	return &AnthropicClient{transport: newTransport(VendorAnthropic, DefaultAnthropicBaseURL, cfg)}
}

// Name returns the vendor identifier.
func (c *AnthropicClient) Name() string { return VendorAnthropic }

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Stream      bool               `json:"stream"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// anthropicEvent covers the stream event types the client reacts to.
type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream sends a streaming messages request.
func (c *AnthropicClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("%s: model is required", VendorAnthropic)
	}
	body := buildAnthropicRequest(req)
	header := http.Header{}
	header.Set("x-api-key", req.APIKey)
	header.Set("anthropic-version", anthropicVersion)

	return NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		return c.transport.streamSSE(ctx, c.transport.baseURL+"/v1/messages", header, body, func(data []byte) error {
			var ev anthropicEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				return nil
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Type == "text_delta" {
					return emit(ev.Delta.Text)
				}
			case "message_stop":
				return errStreamDone
			case "error":
				return anthropicStreamError(ev)
			}
			return nil
		})
	}), nil
}

func buildAnthropicRequest(req *Request) *anthropicRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	out := &anthropicRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Stream:      true,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		var blocks []anthropicBlock
		for _, img := range m.Images {
			blocks = append(blocks, anthropicBlock{
				Type:   "image",
				Source: &anthropicImageSource{Type: "base64", MediaType: img.MediaType, Data: img.Data},
			})
		}
		blocks = append(blocks, anthropicBlock{Type: "text", Text: m.Content})
		out.Messages = append(out.Messages, anthropicMessage{Role: string(m.Role), Content: blocks})
	}
	return out
}

// anthropicStreamError classifies an error event delivered inside a 200 stream.
func anthropicStreamError(ev anthropicEvent) error {
	pe := &ProviderError{Provider: VendorAnthropic, Kind: domain.FailureProviderFault}
	if ev.Error == nil {
		pe.Message = "stream error"
		return pe
	}
	pe.Code = ev.Error.Type
	pe.Message = ev.Error.Message
	switch ev.Error.Type {
	case "overloaded_error":
		pe.Kind = domain.FailureModelUnavailable
	case "rate_limit_error":
		pe.Kind = domain.FailureRateLimited
	case "authentication_error", "permission_error":
		pe.Kind = domain.FailureAuthInvalid
	case "not_found_error":
		pe.Kind = domain.FailureModelUnavailable
	}
	return pe
}
