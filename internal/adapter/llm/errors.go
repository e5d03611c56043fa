package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/michael213532/ai-debate/internal/domain"
)

// ProviderError is a classified provider failure.
type ProviderError struct {
	Provider   string
	Kind       domain.FailureKind
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf(" (http %d)", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Classify maps any error returned by a Stream to a failure kind.
func Classify(err error) domain.FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.Canceled) {
		return domain.FailureCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureNetwork
	}
	return domain.FailureProviderFault
}

// Hint returns a short human-readable explanation of a failure.
func Hint(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if msg := strings.TrimSpace(pe.Message); msg != "" {
			return msg
		}
		if pe.StatusCode != 0 {
			return http.StatusText(pe.StatusCode)
		}
		return string(pe.Kind)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case err == nil:
		return ""
	}
	return err.Error()
}

// classifyHTTP builds a ProviderError from a non-2xx response.
func classifyHTTP(provider string, status int, body []byte) *ProviderError {
	msg, code := parseErrorEnvelope(body)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &ProviderError{
		Provider:   provider,
		Kind:       kindForStatus(status, strings.ToLower(msg+" "+code)),
		StatusCode: status,
		Code:       code,
		Message:    msg,
	}
}

func kindForStatus(status int, detail string) domain.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.FailureAuthInvalid
	case strings.Contains(detail, "api key not valid") || strings.Contains(detail, "api_key_invalid") || strings.Contains(detail, "invalid_api_key"):
		return domain.FailureAuthInvalid
	case status == http.StatusPaymentRequired || mentionsQuota(detail):
		return domain.FailureQuotaExceeded
	case status == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case status == http.StatusNotFound || status == http.StatusServiceUnavailable || status == 529:
		return domain.FailureModelUnavailable
	case status < 500 && mentionsMissingModel(detail):
		return domain.FailureModelUnavailable
	default:
		return domain.FailureProviderFault
	}
}

func mentionsQuota(detail string) bool {
	for _, marker := range []string{"quota", "billing", "credit balance", "insufficient_balance", "insufficient balance"} {
		if strings.Contains(detail, marker) {
			return true
		}
	}
	return false
}

func mentionsMissingModel(detail string) bool {
	if !strings.Contains(detail, "model") {
		return false
	}
	return strings.Contains(detail, "not found") ||
		strings.Contains(detail, "does not exist") ||
		strings.Contains(detail, "not supported") ||
		strings.Contains(detail, "model_not_found")
}

// errorEnvelope covers the OpenAI, Anthropic and Gemini error shapes.
type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseErrorEnvelope(raw []byte) (message string, code string) {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return "", ""
	}
	var codes []string
	for _, c := range []string{env.Error.Type, stringify(env.Error.Code), env.Error.Status} {
		if c != "" {
			codes = append(codes, c)
		}
	}
	return env.Error.Message, strings.Join(codes, " ")
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
