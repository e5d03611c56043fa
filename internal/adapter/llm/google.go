package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/michael213532/ai-debate/internal/domain"
)

const DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com"

const googleTemperature = 0.7

// GoogleClient streams from the Gemini generateContent API.
type GoogleClient struct {
	transport *transport
}

// Ensure GoogleClient implements Provider.
var _ Provider = (*GoogleClient)(nil)

// NewGoogle creates the Gemini client.
func NewGoogle(cfg ClientConfig) *GoogleClient {
	return &GoogleClient{transport: newTransport(VendorGoogle, DefaultGoogleBaseURL, cfg)}
}

// Name returns the vendor identifier.
func (c *GoogleClient) Name() string { return VendorGoogle }

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inline_data,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiChunk struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Stream sends a streamGenerateContent request.
func (c *GoogleClient) Stream(ctx context.Context, req *Request) (*Stream, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("%s: model is required", VendorGoogle)
	}
	body := buildGeminiRequest(req)
	header := http.Header{}
	header.Set("x-goog-api-key", req.APIKey)
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		c.transport.baseURL, url.PathEscape(strings.TrimPrefix(req.Model, "models/")))

	return NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		return c.transport.streamSSE(ctx, endpoint, header, body, func(data []byte) error {
			var chunk geminiChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				return nil
			}
			if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
				return &ProviderError{
					Provider: VendorGoogle,
					Kind:     domain.FailureProviderFault,
					Code:     chunk.PromptFeedback.BlockReason,
					Message:  "prompt blocked: " + chunk.PromptFeedback.BlockReason,
				}
			}
			for _, cand := range chunk.Candidates {
				for _, part := range cand.Content.Parts {
					if err := emit(part.Text); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}), nil
}

func buildGeminiRequest(req *Request) *geminiRequest {
	temperature := googleTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	out := &geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.SystemPrompt != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}
	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		parts := []geminiPart{{Text: m.Content}}
		for _, img := range m.Images {
			parts = append(parts, geminiPart{InlineData: &geminiInline{MimeType: img.MediaType, Data: img.Data}})
		}
		out.Contents = append(out.Contents, geminiContent{Role: role, Parts: parts})
	}
	return out
}
