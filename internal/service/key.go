package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/michael213532/ai-debate/internal/adapter/llm"
	"github.com/michael213532/ai-debate/internal/credential"
	"github.com/michael213532/ai-debate/internal/domain"
)

const (
	keyTestTimeout   = 30 * time.Second
	keyTestPrompt    = "Reply with the single word OK."
	keyTestMaxTokens = 16
)

// ErrInvalidInput is returned for malformed request values.
var ErrInvalidInput = errors.New("invalid input")

// ListModels returns the model catalog.
func (s *Service) ListModels() []domain.ModelInfo {
	models := s.catalog.Models()
	if models == nil {
		models = []domain.ModelInfo{}
	}
	return models
}

// ListAPIKeys reports which catalog providers have a usable key for the user.
func (s *Service) ListAPIKeys(ctx context.Context, userID string) ([]domain.ProviderStatus, error) {
	return s.vault.Status(ctx, userID, s.catalog.ProviderIDs())
}

// SaveAPIKey stores a user's key for provider.
func (s *Service) SaveAPIKey(ctx context.Context, userID, provider, apiKey string) error {
	if err := s.checkProvider(provider); err != nil {
		return err
	}
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: api_key is required", ErrInvalidInput)
	}
	if err := s.vault.Save(ctx, userID, provider, apiKey); err != nil {
		return err
	}
	log.Printf("API key saved: user=%s provider=%s", userID, provider)
	return nil
}

// DeleteAPIKey removes a user's key for provider.
func (s *Service) DeleteAPIKey(ctx context.Context, userID, provider string) error {
	if err := s.checkProvider(provider); err != nil {
		return err
	}
	if err := s.vault.Delete(ctx, userID, provider); err != nil {
		return err
	}
	log.Printf("API key deleted: user=%s provider=%s", userID, provider)
	return nil
}

// TestAPIKey makes a short call to the provider's default model with the key
// the user would get in a session.
func (s *Service) TestAPIKey(ctx context.Context, userID, provider string) (*domain.APIKeyTestResult, error) {
	if err := s.checkProvider(provider); err != nil {
		return nil, err
	}
	p, _ := s.providers.Get(provider)
	model, ok := s.catalog.DefaultModel(provider)
	if !ok {
		return nil, fmt.Errorf("%w: no catalog model for %s", ErrUnknownProvider, provider)
	}
	result := &domain.APIKeyTestResult{Provider: provider, Model: model.ID}

	apiKey, err := s.vault.APIKey(ctx, userID, provider)
	if err != nil {
		if !errors.Is(err, credential.ErrNoCredential) {
			return nil, err
		}
		result.Error = domain.FailureAuthInvalid
		result.Hint = err.Error()
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, keyTestTimeout)
	defer cancel()

	stream, err := p.Stream(ctx, &llm.Request{
		Model:     model.ID,
		APIKey:    apiKey,
		Messages:  []llm.ChatMessage{{Role: llm.RoleUser, Content: keyTestPrompt}},
		MaxTokens: keyTestMaxTokens,
	})
	if err == nil {
		_, err = llm.Collect(stream)
	}
	if err != nil {
		result.Error = llm.Classify(err)
		result.Hint = llm.Hint(err)
		return result, nil
	}
	result.Valid = true
	return result, nil
}

func (s *Service) checkProvider(provider string) error {
	if _, ok := s.providers.Get(provider); !ok {
		return fmt.Errorf("%w %q", ErrUnknownProvider, provider)
	}
	return nil
}
